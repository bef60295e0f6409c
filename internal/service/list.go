package service

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Vintage-The-Gemini/space/internal/repository"
)

const (
	DefaultPage  = 1
	DefaultLimit = 25
	MaxLimit     = 100
	DefaultSort  = "-createdAt"
)

// reserved query keys, never treated as filters
var reservedListKeys = map[string]bool{"select": true, "sort": true, "page": true, "limit": true}

// ListSpec 每个集合的列表参数约定
type ListSpec struct {
	Filterable   []string
	DefaultSort  string
	DefaultLimit int
}

// ListRequest 解析后的列表查询
type ListRequest struct {
	Filters map[string]string
	Select  []string
	Sort    []string
	Page    int
	Limit   int
}

// ParseListRequest 从 query string 解析列表参数
// Unknown keys are ignored; page and limit fall back to defaults when not
// positive integers, limit is capped at MaxLimit and page at MaxInt/limit.
func ParseListRequest(q url.Values, spec ListSpec) ListRequest {
	defLimit := spec.DefaultLimit
	if defLimit <= 0 {
		defLimit = DefaultLimit
	}
	defSort := spec.DefaultSort
	if defSort == "" {
		defSort = DefaultSort
	}

	req := ListRequest{
		Filters: map[string]string{},
		Page:    positiveInt(q.Get("page"), DefaultPage),
		Limit:   positiveInt(q.Get("limit"), defLimit),
		Sort:    splitFields(q.Get("sort")),
		Select:  splitFields(q.Get("select")),
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	// page*limit 必须能用 int 表示
	if maxPage := math.MaxInt / req.Limit; req.Page > maxPage {
		req.Page = maxPage
	}
	if len(req.Sort) == 0 {
		req.Sort = []string{defSort}
	}
	for _, key := range spec.Filterable {
		if reservedListKeys[key] {
			continue
		}
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			req.Filters[key] = v
		}
	}
	return req
}

func positiveInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil || i <= 0 {
		return def
	}
	return i
}

// splitFields accepts comma or space separated field lists ("name,-createdAt").
func splitFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

// Query converts the request to a store query. all drops pagination.
func (r ListRequest) Query(all bool) repository.Query {
	q := repository.Query{Filters: r.Filters, Sort: r.Sort, Page: r.Page, Limit: r.Limit}
	if all {
		q.Page, q.Limit = 0, 0
	}
	return q
}

// PageRef 分页游标
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// ListResult 列表响应体（除 success 外）
type ListResult struct {
	Count      int        `json:"count"`
	Total      int        `json:"total"`
	Pagination Pagination `json:"pagination"`
	Data       []any      `json:"data"`
}

// NewPagination next exists iff page*limit < total (computed without overflow); prev iff page > 1.
func NewPagination(page, limit, total int) Pagination {
	var p Pagination
	if limit > 0 && page <= (total-1)/limit {
		p.Next = &PageRef{Page: page + 1, Limit: limit}
	}
	if page > 1 {
		p.Prev = &PageRef{Page: page - 1, Limit: limit}
	}
	return p
}

// project keeps only the selected top-level fields plus _id.
func project(item any, fields []string) (any, error) {
	if len(fields) == 0 {
		return item, nil
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item: %w", err)
	}
	var full map[string]any
	if err := json.Unmarshal(raw, &full); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	out := map[string]any{"_id": full["_id"]}
	for _, f := range fields {
		if f == "id" {
			continue
		}
		if v, ok := full[f]; ok {
			out[f] = v
		}
	}
	return out, nil
}
