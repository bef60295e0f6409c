package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
)

// pq error codes
const (
	pqUniqueViolation = "23505"
	pqInvalidTextRepr = "22P02"
)

// PostgresStore DocumentStore 的 PostgreSQL 实现
// All collections share the documents table (see schema.go); bodies are JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore 创建文档存储
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// 确保实现了接口
var _ DocumentStore = (*PostgresStore)(nil)

func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return ErrDuplicate
		case pqInvalidTextRepr:
			return ErrNotFound
		}
	}
	return err
}

func (s *PostgresStore) Insert(ctx context.Context, collection, id string, doc json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body, created_at, updated_at)
		 VALUES ($1, $2::uuid, $3::jsonb, now(), now())`,
		collection, id, []byte(doc),
	)
	if err != nil {
		if mapped := mapPQError(err); mapped == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert %s document: %w", collection, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = $1 AND id = $2::uuid`,
		collection, id,
	).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows || mapPQError(err) == ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s document: %w", collection, err)
	}
	return json.RawMessage(body), nil
}

func (s *PostgresStore) Replace(ctx context.Context, collection, id string, doc json.RawMessage, keep ...string) error {
	query := `UPDATE documents SET body = $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2::uuid`
	args := []any{collection, id, []byte(doc)}
	if len(keep) > 0 {
		// keep 字段取自更新前的行
		query = `UPDATE documents
		 SET body = ($3::jsonb - $4::text[]) || COALESCE(
		         (SELECT jsonb_object_agg(key, value) FROM jsonb_each(body) WHERE key = ANY($4::text[])),
		         '{}'::jsonb),
		     updated_at = now()
		 WHERE collection = $1 AND id = $2::uuid`
		args = append(args, pq.Array(keep))
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if mapped := mapPQError(err); mapped == ErrDuplicate || mapped == ErrNotFound {
			return mapped
		}
		return fmt.Errorf("failed to replace %s document: %w", collection, err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2::uuid`,
		collection, id,
	)
	if err != nil {
		if mapPQError(err) == ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s document: %w", collection, err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// orderExpr maps a sort key to a SQL expression. Field names are quoted as
// literals, never interpolated raw.
func orderExpr(key string) string {
	dir := "ASC"
	if strings.HasPrefix(key, "-") {
		dir = "DESC"
		key = strings.TrimPrefix(key, "-")
	}
	switch key {
	case "createdAt":
		return "created_at " + dir
	case "updatedAt":
		return "updated_at " + dir
	}
	return fmt.Sprintf("body->%s %s NULLS FIRST", pq.QuoteLiteral(key), dir)
}

func (s *PostgresStore) Find(ctx context.Context, collection string, q Query) ([]json.RawMessage, int, error) {
	where := []string{"collection = $1"}
	args := []any{collection}
	argIdx := 2

	// deterministic placeholder order
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		where = append(where, fmt.Sprintf("body->>%s = $%d", pq.QuoteLiteral(k), argIdx))
		args = append(args, q.Filters[k])
		argIdx++
	}
	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM documents %s`, whereClause)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}

	if offset := q.Offset(); offset > 0 && offset >= total {
		return []json.RawMessage{}, total, nil
	}

	sortKeys := q.Sort
	if len(sortKeys) == 0 {
		sortKeys = []string{"createdAt"}
	}
	order := make([]string, 0, len(sortKeys)+1)
	for _, k := range sortKeys {
		order = append(order, orderExpr(k))
	}
	order = append(order, "id ASC")

	query := fmt.Sprintf(`SELECT body FROM documents %s ORDER BY %s`, whereClause, strings.Join(order, ", "))
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, q.Limit, q.Offset())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []json.RawMessage{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, 0, fmt.Errorf("failed to scan %s document: %w", collection, err)
		}
		docs = append(docs, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}
	return docs, total, nil
}

func (s *PostgresStore) CountBy(ctx context.Context, collection, field string) (map[string]int, error) {
	query := fmt.Sprintf(
		`SELECT COALESCE(body->>%s, '') AS k, COUNT(*) FROM documents WHERE collection = $1 GROUP BY k`,
		pq.QuoteLiteral(field),
	)
	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", collection, err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, fmt.Errorf("failed to scan %s aggregate: %w", collection, err)
		}
		counts[k] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) Increment(ctx context.Context, collection, id, field string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET body = jsonb_set(body, ARRAY[$3::text], to_jsonb(COALESCE((body->>$3::text)::int, 0) + $4::int)),
		     updated_at = now()
		 WHERE collection = $1 AND id = $2::uuid`,
		collection, id, field, delta,
	)
	if err != nil {
		if mapPQError(err) == ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to increment %s.%s: %w", collection, field, err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
