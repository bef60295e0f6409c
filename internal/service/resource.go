package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Vintage-The-Gemini/space/internal/domain"
	"github.com/Vintage-The-Gemini/space/internal/events"
	"github.com/Vintage-The-Gemini/space/internal/repository"

	"go.uber.org/zap"
)

// 服务层错误（HTTP 层据此映射状态码）
var (
	ErrNotFound  = repository.ErrNotFound
	ErrDuplicate = repository.ErrDuplicate
)

// Resource is the collection-agnostic surface the HTTP layer serves.
type Resource interface {
	// Name is the singular entity name used in messages ("Instrument").
	Name() string
	ListSpec() ListSpec
	List(ctx context.Context, req ListRequest) (*ListResult, error)
	Get(ctx context.Context, id string) (any, error)
	Create(ctx context.Context, body []byte) (any, error)
	Update(ctx context.Context, id string, body []byte) (any, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) ([]TypeCount, error)
	Export(ctx context.Context, req ListRequest) (*Table, error)
}

// TypeCount 按类型聚合计数
type TypeCount struct {
	Type  string `json:"_id"`
	Count int    `json:"count"`
}

// store is the typed repository shape shared by every collection.
type store[T any] interface {
	Create(ctx context.Context, v *T) error
	Get(ctx context.Context, id string) (*T, error)
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q repository.Query) ([]*T, int, error)
	CountByType(ctx context.Context) (map[string]int, error)
}

// entity is the pointer type of a stored document.
type entity[T any] interface {
	*T
	domain.Document
	KeepSystemFields(prev *T)
}

// crud 通用 CRUD 实现，各集合服务在此基础上加钩子
type crud[T any, P entity[T]] struct {
	name       string
	collection string
	repo       store[T]
	spec       ListSpec
	columns    []Column
	notifier   *events.Notifier
	logger     *zap.Logger
	now        func() time.Time

	// optional hooks
	beforeSave  func(ctx context.Context, v P) error
	afterCreate func(ctx context.Context, v P)
	present     func(v P)
}

func (c *crud[T, P]) Name() string       { return c.name }
func (c *crud[T, P]) ListSpec() ListSpec { return c.spec }

func (c *crud[T, P]) view(v *T) *T {
	if c.present != nil {
		c.present(P(v))
	}
	return v
}

func (c *crud[T, P]) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	items, total, err := c.repo.List(ctx, req.Query(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.collection, err)
	}
	data := make([]any, 0, len(items))
	for _, item := range items {
		out, err := project(c.view(item), req.Select)
		if err != nil {
			return nil, err
		}
		data = append(data, out)
	}
	return &ListResult{
		Count:      len(data),
		Total:      total,
		Pagination: NewPagination(req.Page, req.Limit, total),
		Data:       data,
	}, nil
}

func (c *crud[T, P]) Get(ctx context.Context, id string) (any, error) {
	v, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.view(v), nil
}

// decode parses a request body onto v. Syntax and type errors become validation errors.
func decode(body []byte, v any) error {
	if len(body) == 0 {
		return domain.NewValidationError("body", "Request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return domain.NewValidationError(typeErr.Field, fmt.Sprintf("Cast to %s failed for path `%s`", typeErr.Type, typeErr.Field))
		}
		return domain.NewValidationError("body", "Invalid JSON body")
	}
	return nil
}

func (c *crud[T, P]) prepare(ctx context.Context, v P) error {
	v.Normalize(c.now())
	if err := v.Validate(); err != nil {
		return err
	}
	if c.beforeSave != nil {
		return c.beforeSave(ctx, v)
	}
	return nil
}

func (c *crud[T, P]) Create(ctx context.Context, body []byte) (any, error) {
	var v T
	if err := decode(body, &v); err != nil {
		return nil, err
	}
	p := P(&v)
	if err := c.prepare(ctx, p); err != nil {
		return nil, err
	}
	if err := c.repo.Create(ctx, &v); err != nil {
		return nil, c.wrap("create", err)
	}
	if c.afterCreate != nil {
		c.afterCreate(ctx, p)
	}
	c.notifier.Notify(ctx, events.TypeCreated, c.collection, p.DocumentID(), &v)
	return c.view(&v), nil
}

// Update merges the submitted fields onto the stored document and re-validates.
func (c *crud[T, P]) Update(ctx context.Context, id string, body []byte) (any, error) {
	prev, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := *prev
	if err := decode(body, &merged); err != nil {
		return nil, err
	}
	p := P(&merged)
	p.KeepSystemFields(prev)
	if err := c.prepare(ctx, p); err != nil {
		return nil, err
	}
	if err := c.repo.Update(ctx, &merged); err != nil {
		return nil, c.wrap("update", err)
	}
	c.notifier.Notify(ctx, events.TypeUpdated, c.collection, id, &merged)
	return c.view(&merged), nil
}

func (c *crud[T, P]) Delete(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return c.wrap("delete", err)
	}
	c.notifier.Notify(ctx, events.TypeDeleted, c.collection, id, nil)
	return nil
}

// Stats counts documents by type, largest group first.
func (c *crud[T, P]) Stats(ctx context.Context) ([]TypeCount, error) {
	counts, err := c.repo.CountByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", c.collection, err)
	}
	out := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TypeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

// wrap keeps sentinel errors matchable and adds context to the rest.
func (c *crud[T, P]) wrap(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) {
		return err
	}
	return fmt.Errorf("failed to %s %s: %w", op, c.collection, err)
}
