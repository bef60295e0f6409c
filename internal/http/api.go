package httpapi

import (
	"net/http"

	"github.com/Vintage-The-Gemini/space/internal/metrics"
	"github.com/Vintage-The-Gemini/space/internal/nasa"
	"github.com/Vintage-The-Gemini/space/internal/service"

	"go.uber.org/zap"
)

// Deps 组装 HTTP 层所需的依赖；nil 的可选项不注册路由
type Deps struct {
	Instruments service.Resource
	Discoveries service.Resource
	Updates     service.Resource
	NASA        nasa.Provider
	Telemetry   http.Handler
	Health      *HealthHandler
	Metrics     *metrics.Metrics
	MetricsHTTP http.Handler
	Logger      *zap.Logger
}

// NewHandler builds the router and wraps it with recover, CORS and access logging.
func NewHandler(d Deps) http.Handler {
	r := NewRouter(d.Logger)
	r.RegisterResourceRoutes("/api/instruments", NewResourceHandler(d.Instruments, d.Logger))
	r.RegisterResourceRoutes("/api/discoveries", NewResourceHandler(d.Discoveries, d.Logger))
	r.RegisterResourceRoutes("/api/updates", NewResourceHandler(d.Updates, d.Logger))
	if d.NASA != nil {
		r.RegisterNASARoutes(NewNASAHandler(d.NASA, d.Logger))
	}
	if d.Telemetry != nil {
		r.RegisterTelemetryRoutes(d.Telemetry)
	}
	if d.Health != nil {
		r.RegisterHealthRoutes(d.Health)
	}
	if d.MetricsHTTP != nil {
		r.RegisterMetricsRoutes(d.MetricsHTTP)
	}
	return Chain(r, Recover(d.Logger), CORS(), AccessLog(d.Logger, d.Metrics))
}
