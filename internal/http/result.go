package httpapi

import "github.com/Vintage-The-Gemini/space/internal/service"

// DetailResult 单条数据响应 {success, data}
type DetailResult struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ListResult 列表响应 {success, count, total, pagination, data}
type ListResult struct {
	Success bool `json:"success"`
	*service.ListResult
}

// ErrorResult 错误响应；Error 为字符串或字符串数组（校验错误）
type ErrorResult struct {
	Success bool `json:"success"`
	Error   any  `json:"error"`
}

// UpstreamErrorResult 外部数据源失败 {message, error}
type UpstreamErrorResult struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func Ok(data any) DetailResult {
	return DetailResult{Success: true, Data: data}
}

func Fail(err any) ErrorResult {
	return ErrorResult{Success: false, Error: err}
}
