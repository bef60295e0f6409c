package domain

import (
	"strings"
	"time"
)

// SchemaVersion 当前文档结构版本, 写入每个存储文档的 schemaVersion 字段
const SchemaVersion = 1

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field failure of one document so the
// client gets all messages in a single 400 response.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Messages returns the human readable messages in field order.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Message)
	}
	return out
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

type validator struct {
	fields []FieldError
}

func (v *validator) add(field, message string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
}

func (v *validator) required(field, value, message string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, message)
	}
}

func (v *validator) enum(field, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if a == value {
			return
		}
	}
	v.add(field, "`"+value+"` is not a valid enum value for path `"+field+"`.")
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// Document 所有存储实体的公共方法
type Document interface {
	DocumentID() string
	Normalize(now time.Time)
	Validate() error
}
