package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（Go 1.22 方法 + 路径参数模式）
type Router struct {
	mux       *http.ServeMux
	logger    *zap.Logger
	websocket http.Handler
}

func NewRouter(logger *zap.Logger) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
	r.mux.HandleFunc("/", r.fallback)
	return r
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（metrics、websocket）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// fallback serves WebSocket upgrades on any unmatched path (clients connect
// to the bare host) and answers everything else with a JSON 404.
func (r *Router) fallback(w http.ResponseWriter, req *http.Request) {
	if r.websocket != nil && websocket.IsWebSocketUpgrade(req) {
		r.websocket.ServeHTTP(w, req)
		return
	}
	writeJSON(w, http.StatusNotFound, Fail("Not found - "+req.URL.Path))
}

// RegisterResourceRoutes 注册一个集合的 CRUD 路由
func (r *Router) RegisterResourceRoutes(prefix string, h *ResourceHandler) {
	r.Handle("GET "+prefix, h.List)
	r.Handle("POST "+prefix, h.Create)
	r.Handle("GET "+prefix+"/stats", h.Stats)
	r.Handle("GET "+prefix+"/export", h.Export)
	r.Handle("GET "+prefix+"/{id}", h.Get)
	r.Handle("PUT "+prefix+"/{id}", h.Update)
	r.Handle("DELETE "+prefix+"/{id}", h.Delete)
}

// RegisterNASARoutes 外部数据代理
func (r *Router) RegisterNASARoutes(h *NASAHandler) {
	r.Handle("GET /api/nasa/apod", h.APOD)
	r.Handle("GET /api/nasa/mars-photos", h.MarsPhotos)
	r.Handle("GET /api/nasa/neo-feed", h.NeoFeed)
	r.Handle("GET /api/nasa/neo", h.NeoFeed)
	r.Handle("GET /api/nasa/earth-imagery", h.EarthImagery)
}

// RegisterTelemetryRoutes mounts the telemetry stream at /ws and at the root.
func (r *Router) RegisterTelemetryRoutes(h http.Handler) {
	r.websocket = h
	r.HandleHandler("GET /ws", h)
}

func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	r.Handle("GET /healthz", h.Health)
}

func (r *Router) RegisterMetricsRoutes(h http.Handler) {
	r.HandleHandler("GET /metrics", h)
}
