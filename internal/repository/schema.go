package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT        NOT NULL,
	id         UUID        NOT NULL,
	body       JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

// SchemaStatements 返回建表与索引语句（幂等）
func SchemaStatements() []string {
	stmts := []string{
		createDocumentsTable,
		`CREATE INDEX IF NOT EXISTS documents_collection_created_idx ON documents (collection, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS documents_body_gin_idx ON documents USING GIN (body jsonb_path_ops)`,
	}
	for _, c := range Collections {
		for _, field := range c.Unique {
			stmts = append(stmts, fmt.Sprintf(
				`CREATE UNIQUE INDEX IF NOT EXISTS %s ON documents ((body->>%s)) WHERE collection = %s`,
				pq.QuoteIdentifier("documents_"+c.Name+"_"+field+"_key"),
				pq.QuoteLiteral(field),
				pq.QuoteLiteral(c.Name),
			))
		}
	}
	return stmts
}

// ApplySchema 执行迁移
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range SchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
