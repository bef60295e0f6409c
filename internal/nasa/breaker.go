package nasa

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var ErrCircuitOpen = errors.New("upstream circuit open")

// newBreaker 连续 threshold 次上游失败后熔断，cooldown 后放行一个试探请求；threshold <= 0 不熔断
func newBreaker(threshold int, cooldown time.Duration, logger *zap.Logger) *gobreaker.CircuitBreaker[*Response] {
	return gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "nasa",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: upstreamHealthy,
		IsExcluded:   callerGone,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// upstreamHealthy: 4xx other than 429 is the caller's fault, not the upstream's
func upstreamHealthy(err error) bool {
	if err == nil {
		return true
	}
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.Err != nil {
		return false
	}
	return upErr.StatusCode < 500 && upErr.StatusCode != http.StatusTooManyRequests
}

// callerGone 调用方取消或超时，不计入熔断统计
func callerGone(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr) && upErr.callerDone
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
