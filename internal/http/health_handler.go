package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger 可探活的依赖（文档存储、Redis 等）
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler /healthz：逐个探测依赖，任一失败返回 503
type HealthHandler struct {
	checks   map[string]Pinger
	sessions func() int
	logger   *zap.Logger
}

func NewHealthHandler(checks map[string]Pinger, sessions func() int, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, sessions: sessions, logger: logger}
}

type healthStatus struct {
	Status            string            `json:"status"`
	Checks            map[string]string `json:"checks"`
	TelemetrySessions int               `json:"telemetrySessions"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	out := healthStatus{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			out.Checks[name] = err.Error()
			out.Status = "degraded"
			continue
		}
		out.Checks[name] = "ok"
	}
	if h.sessions != nil {
		out.TelemetrySessions = h.sessions()
	}

	status := http.StatusOK
	if out.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, DetailResult{Success: status == http.StatusOK, Data: out})
}
