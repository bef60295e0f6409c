package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// collection wraps a DocumentStore for a single named collection and does
// the JSON (de)serialisation shared by the typed repositories.
type collection struct {
	store DocumentStore
	name  string
	now   func() time.Time
}

func newCollection(store DocumentStore, name string) collection {
	return collection{store: store, name: name, now: func() time.Time { return time.Now().UTC() }}
}

// validID rejects ids that can never exist, so every driver answers not-found alike.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (c collection) insert(ctx context.Context, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", c.name, err)
	}
	return c.store.Insert(ctx, c.name, id, raw)
}

func (c collection) replace(ctx context.Context, id string, v any, keep ...string) error {
	if !validID(id) {
		return ErrNotFound
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", c.name, err)
	}
	return c.store.Replace(ctx, c.name, id, raw, keep...)
}

func (c collection) get(ctx context.Context, id string, out any) error {
	if !validID(id) {
		return ErrNotFound
	}
	raw, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s document: %w", c.name, err)
	}
	return nil
}

func (c collection) delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return c.store.Delete(ctx, c.name, id)
}

func (c collection) increment(ctx context.Context, id, field string, delta int) error {
	if !validID(id) {
		return ErrNotFound
	}
	return c.store.Increment(ctx, c.name, id, field, delta)
}

func findAll[T any](ctx context.Context, c collection, q Query) ([]*T, int, error) {
	raws, total, err := c.store.Find(ctx, c.name, q)
	if err != nil {
		return nil, 0, err
	}
	items := make([]*T, 0, len(raws))
	for _, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, 0, fmt.Errorf("failed to decode %s document: %w", c.name, err)
		}
		items = append(items, &item)
	}
	return items, total, nil
}
