package repository

import (
	"context"
	"encoding/json"
	"errors"
	"math"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// 集合名称
const (
	CollectionInstruments = "instruments"
	CollectionDiscoveries = "discoveries"
	CollectionUpdates     = "updates"
)

// CollectionSpec 集合定义：名称 + 唯一字段
type CollectionSpec struct {
	Name   string
	Unique []string
}

// Collections 所有集合（存储实现和迁移共用）
var Collections = []CollectionSpec{
	{Name: CollectionInstruments, Unique: []string{"name"}},
	{Name: CollectionDiscoveries, Unique: []string{"title"}},
	{Name: CollectionUpdates},
}

// Query 列表查询条件
// Filters are equality matches on top-level document fields.
// Sort keys use a leading "-" for descending order.
// Limit <= 0 returns every matching document.
type Query struct {
	Filters map[string]string
	Sort    []string
	Page    int
	Limit   int
}

// Offset 跳过的文档数；超大的 page 饱和到 math.MaxInt，不会溢出成负数
func (q Query) Offset() int {
	if q.Limit <= 0 || q.Page <= 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// DocumentStore 文档存储接口
// Documents are JSON objects carrying their own "_id". Every write is
// atomic per document; concurrent replaces are last-writer-wins except for
// the keep fields of Replace, whose stored values are carried over in the
// same atomic step.
type DocumentStore interface {
	Insert(ctx context.Context, collection, id string, doc json.RawMessage) error
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Replace(ctx context.Context, collection, id string, doc json.RawMessage, keep ...string) error
	Delete(ctx context.Context, collection, id string) error
	Find(ctx context.Context, collection string, q Query) ([]json.RawMessage, int, error)
	CountBy(ctx context.Context, collection, field string) (map[string]int, error)
	Increment(ctx context.Context, collection, id, field string, delta int) error
	Ping(ctx context.Context) error
	Close() error
}

func uniqueFields(collection string) []string {
	for _, c := range Collections {
		if c.Name == collection {
			return c.Unique
		}
	}
	return nil
}
