package httpapi

import (
	"context"
	"net/http"

	"github.com/Vintage-The-Gemini/space/internal/nasa"

	"go.uber.org/zap"
)

// NASAHandler 转发到 NASA open API，成功时原样返回上游 body
type NASAHandler struct {
	provider nasa.Provider
	logger   *zap.Logger
}

func NewNASAHandler(provider nasa.Provider, logger *zap.Logger) *NASAHandler {
	return &NASAHandler{provider: provider, logger: logger}
}

func (h *NASAHandler) APOD(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "Error fetching APOD", func(ctx context.Context) (*nasa.Response, error) {
		return h.provider.APOD(ctx)
	})
}

// MarsPhotos 查询参数 rover（默认 curiosity）、sol（默认 1000）
func (h *NASAHandler) MarsPhotos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rover := q.Get("rover")
	sol := parseInt(q.Get("sol"), nasa.DefaultSol)
	h.serve(w, r, "Error fetching Mars Rover photos", func(ctx context.Context) (*nasa.Response, error) {
		return h.provider.MarsPhotos(ctx, rover, sol)
	})
}

func (h *NASAHandler) NeoFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.serve(w, r, "Error fetching NEO feed", func(ctx context.Context) (*nasa.Response, error) {
		return h.provider.NeoFeed(ctx, q.Get("start_date"), q.Get("end_date"))
	})
}

func (h *NASAHandler) EarthImagery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.serve(w, r, "Error fetching Earth imagery", func(ctx context.Context) (*nasa.Response, error) {
		return h.provider.EarthImagery(ctx, q.Get("lat"), q.Get("lon"), q.Get("date"))
	})
}

func (h *NASAHandler) serve(w http.ResponseWriter, r *http.Request, message string, call func(context.Context) (*nasa.Response, error)) {
	resp, err := call(r.Context())
	if err != nil {
		h.logger.Error(message, zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, UpstreamErrorResult{Message: message, Error: err.Error()})
		return
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Body)
}
