package nasa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Vintage-The-Gemini/space/internal/metrics"
	"github.com/Vintage-The-Gemini/space/internal/store"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.nasa.gov"
	DefaultRover   = "curiosity"
	DefaultSol     = 1000
)

// 端点名称（指标、缓存键使用）
const (
	EndpointAPOD         = "apod"
	EndpointMarsPhotos   = "mars-photos"
	EndpointNeoFeed      = "neo-feed"
	EndpointEarthImagery = "earth-imagery"
)

// Response 上游原始响应，body 原样返回给调用方
type Response struct {
	Body        []byte `json:"body"`
	ContentType string `json:"contentType"`
}

// Provider 外部太空数据源
type Provider interface {
	APOD(ctx context.Context) (*Response, error)
	MarsPhotos(ctx context.Context, rover string, sol int) (*Response, error)
	NeoFeed(ctx context.Context, startDate, endDate string) (*Response, error)
	EarthImagery(ctx context.Context, lat, lon, date string) (*Response, error)
}

// UpstreamError is a non-2xx answer or a transport failure from the NASA API.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Err        error

	callerDone bool // ctx of the caller ended before the upstream answered
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: upstream returned status %d", e.Endpoint, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Config NASA 客户端配置
type Config struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	RetryCount       int
	RateLimit        float64 // requests per second, 0 disables
	RateBurst        int
	BreakerThreshold int
	BreakerCooldown  time.Duration
	CacheTTL         time.Duration
}

// DefaultConfig 默认值
func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		Timeout:          10 * time.Second,
		RetryCount:       1,
		RateLimit:        5,
		RateBurst:        5,
		BreakerThreshold: 5,
		BreakerCooldown:  30 * time.Second,
	}
}

// Client NASA open API 客户端
type Client struct {
	httpClient *resty.Client
	apiKey     string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*Response]
	cache      store.KV
	cacheTTL   time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

var _ Provider = (*Client)(nil)

// NewClient 创建客户端；cache 和 m 可以为 nil
func NewClient(cfg Config, cache store.KV, m *metrics.Metrics, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= 500)
		}).
		SetHeader("Accept", "application/json")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	if cfg.CacheTTL <= 0 {
		cache = nil
	}

	return &Client{
		httpClient: httpClient,
		apiKey:     cfg.APIKey,
		limiter:    limiter,
		breaker:    newBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown, logger),
		cache:      cache,
		cacheTTL:   cfg.CacheTTL,
		metrics:    m,
		logger:     logger,
	}
}

func (c *Client) APOD(ctx context.Context) (*Response, error) {
	return c.fetch(ctx, EndpointAPOD, "/planetary/apod", nil)
}

// MarsPhotos 火星车照片；rover 为空时使用 curiosity，sol <= 0 时使用 1000
func (c *Client) MarsPhotos(ctx context.Context, rover string, sol int) (*Response, error) {
	if rover == "" {
		rover = DefaultRover
	}
	if sol <= 0 {
		sol = DefaultSol
	}
	path := "/mars-photos/api/v1/rovers/" + url.PathEscape(rover) + "/photos"
	return c.fetch(ctx, EndpointMarsPhotos, path, url.Values{"sol": {strconv.Itoa(sol)}})
}

func (c *Client) NeoFeed(ctx context.Context, startDate, endDate string) (*Response, error) {
	params := url.Values{}
	setIf(params, "start_date", startDate)
	setIf(params, "end_date", endDate)
	return c.fetch(ctx, EndpointNeoFeed, "/neo/rest/v1/feed", params)
}

func (c *Client) EarthImagery(ctx context.Context, lat, lon, date string) (*Response, error) {
	params := url.Values{}
	setIf(params, "lat", lat)
	setIf(params, "lon", lon)
	setIf(params, "date", date)
	return c.fetch(ctx, EndpointEarthImagery, "/planetary/earth/imagery", params)
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func cacheKey(endpoint string, params url.Values) string {
	return "nasa:" + endpoint + "?" + params.Encode()
}

func (c *Client) fetch(ctx context.Context, endpoint, path string, params url.Values) (*Response, error) {
	if params == nil {
		params = url.Values{}
	}
	key := cacheKey(endpoint, params)
	if cached, ok := c.fromCache(ctx, key); ok {
		c.metrics.UpstreamCall(endpoint, metrics.OutcomeCacheHit)
		return cached, nil
	}

	// 限流等待放在熔断之前，等待失败不占用半开状态的试探名额
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Err: err, callerDone: ctx.Err() != nil}
	}

	out, err := c.breaker.Execute(func() (*Response, error) {
		return c.call(ctx, endpoint, path, params)
	})
	if isBreakerRejection(err) {
		c.metrics.UpstreamCall(endpoint, metrics.OutcomeCircuitOpen)
		return nil, &UpstreamError{Endpoint: endpoint, Err: ErrCircuitOpen}
	}
	if err != nil {
		return nil, err
	}
	c.toCache(ctx, key, out)
	return out, nil
}

func (c *Client) call(ctx context.Context, endpoint, path string, params url.Values) (*Response, error) {
	c.logger.Debug("Calling NASA API", zap.String("endpoint", endpoint), zap.String("params", params.Encode()))

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("api_key", c.apiKey)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get(path)
	if err != nil {
		c.metrics.UpstreamCall(endpoint, metrics.OutcomeError)
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.logger.Debug("NASA API call abandoned", zap.String("endpoint", endpoint), zap.Error(ctxErr))
			return nil, &UpstreamError{Endpoint: endpoint, Err: ctxErr, callerDone: true}
		}
		c.logger.Error("NASA API call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode() >= 400 {
		c.metrics.UpstreamCall(endpoint, metrics.OutcomeError)
		c.logger.Error("NASA API returned error",
			zap.String("endpoint", endpoint),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode()}
	}

	c.metrics.UpstreamCall(endpoint, metrics.OutcomeOK)
	return &Response{Body: resp.Body(), ContentType: resp.Header().Get("Content-Type")}, nil
}

func (c *Client) fromCache(ctx context.Context, key string) (*Response, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			c.logger.Warn("NASA cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("NASA cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &out, true
}

func (c *Client) toCache(ctx context.Context, key string, r *Response) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
		c.logger.Warn("NASA cache write failed", zap.String("key", key), zap.Error(err))
	}
}
