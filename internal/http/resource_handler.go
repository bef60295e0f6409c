package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Vintage-The-Gemini/space/internal/domain"
	"github.com/Vintage-The-Gemini/space/internal/service"

	"go.uber.org/zap"
)

const duplicateMessage = "Duplicate field value entered"

// ResourceHandler 一个集合的 REST 处理器
type ResourceHandler struct {
	svc    service.Resource
	logger *zap.Logger
}

func NewResourceHandler(svc service.Resource, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{svc: svc, logger: logger}
}

// fail maps service errors to HTTP responses. Unexpected errors are logged
// and reported as a generic 500.
func (h *ResourceHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, Fail(verr.Messages()))
	case errors.Is(err, errBodyTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, Fail([]string{"Request body too large"}))
	case errors.Is(err, service.ErrDuplicate):
		writeJSON(w, http.StatusBadRequest, Fail([]string{duplicateMessage}))
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail(h.svc.Name()+" not found"))
	default:
		h.logger.Error("Request failed",
			zap.String("resource", h.svc.Name()),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("Server Error"))
	}
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	req := service.ParseListRequest(r.URL.Query(), h.svc.ListSpec())
	res, err := h.svc.List(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResult{Success: true, ListResult: res})
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(item))
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, maxBodyBytes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.svc.Create(r.Context(), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(item))
}

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, maxBodyBytes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.svc.Update(r.Context(), r.PathValue("id"), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(item))
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(struct{}{}))
}

func (h *ResourceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

// Export 导出 xlsx（忽略分页，保留过滤和排序）
func (h *ResourceHandler) Export(w http.ResponseWriter, r *http.Request) {
	req := service.ParseListRequest(r.URL.Query(), h.svc.ListSpec())
	table, err := h.svc.Export(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := GenerateTableExcel(table)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	filename := fmt.Sprintf("%s-%s.xlsx", table.Sheet, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
