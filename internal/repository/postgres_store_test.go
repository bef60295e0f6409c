package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresStore(db)
}

func TestPostgresStore_Insert(t *testing.T) {
	db, mock, s := setupMockStore(t)
	defer db.Close()

	id := "0b8f4f38-6c4b-4d4c-9d7e-3a37d1d2a2e1"
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(CollectionInstruments, id, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(CollectionInstruments, id, sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, CollectionInstruments, id, json.RawMessage(`{"name":"Hubble"}`)))
	assert.ErrorIs(t, s.Insert(ctx, CollectionInstruments, id, json.RawMessage(`{"name":"Hubble"}`)), ErrDuplicate)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	db, mock, s := setupMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT body FROM documents WHERE collection = \$1 AND id = \$2::uuid`).
		WithArgs(CollectionDiscoveries, "missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT body FROM documents`).
		WithArgs(CollectionDiscoveries, "bad").
		WillReturnError(&pq.Error{Code: "22P02"})

	_, err := s.Get(context.Background(), CollectionDiscoveries, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(context.Background(), CollectionDiscoveries, "bad")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceAndDeleteMissing(t *testing.T) {
	db, mock, s := setupMockStore(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE documents SET body`).
		WithArgs(CollectionUpdates, "id-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM documents`).
		WithArgs(CollectionUpdates, "id-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM documents`).
		WithArgs(CollectionUpdates, "id-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	assert.ErrorIs(t, s.Replace(ctx, CollectionUpdates, "id-1", json.RawMessage(`{}`)), ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, CollectionUpdates, "id-1"), ErrNotFound)
	assert.NoError(t, s.Delete(ctx, CollectionUpdates, "id-2"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceKeepsFields(t *testing.T) {
	db, mock, s := setupMockStore(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE documents\s+SET body = \(\$3::jsonb - \$4::text\[\]\) \|\| COALESCE\(\s+\(SELECT jsonb_object_agg\(key, value\) FROM jsonb_each\(body\) WHERE key = ANY\(\$4::text\[\]\)\)`).
		WithArgs(CollectionInstruments, "id-1", sqlmock.AnyArg(), pq.Array([]string{"discoveryCount"})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Replace(context.Background(), CollectionInstruments, "id-1", json.RawMessage(`{"name":"Kepler","discoveryCount":0}`), "discoveryCount")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Find(t *testing.T) {
	db, mock, s := setupMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM documents WHERE collection = \$1 AND body->>'status' = \$2 AND body->>'type' = \$3`).
		WithArgs(CollectionInstruments, "Active", "Telescope").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(15))
	mock.ExpectQuery(`SELECT body FROM documents WHERE .* ORDER BY body->'name' DESC NULLS FIRST, created_at ASC, id ASC LIMIT \$4 OFFSET \$5`).
		WithArgs(CollectionInstruments, "Active", "Telescope", 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).
			AddRow([]byte(`{"name":"b"}`)).
			AddRow([]byte(`{"name":"a"}`)))

	docs, total, err := s.Find(context.Background(), CollectionInstruments, Query{
		Filters: map[string]string{"type": "Telescope", "status": "Active"},
		Sort:    []string{"-name", "createdAt"},
		Page:    2,
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	require.Len(t, docs, 2)
	assert.JSONEq(t, `{"name":"b"}`, string(docs[0]))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindPageBeyondTotal(t *testing.T) {
	db, mock, s := setupMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM documents WHERE collection = \$1`).
		WithArgs(CollectionInstruments).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(15))

	docs, total, err := s.Find(context.Background(), CollectionInstruments, Query{Page: math.MaxInt/4 + 2, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	assert.Empty(t, docs)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountByAndIncrement(t *testing.T) {
	db, mock, s := setupMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COALESCE\(body->>'type', ''\) AS k, COUNT\(\*\) FROM documents WHERE collection = \$1 GROUP BY k`).
		WithArgs(CollectionInstruments).
		WillReturnRows(sqlmock.NewRows([]string{"k", "count"}).AddRow("Telescope", 3).AddRow("Probe", 1))
	mock.ExpectExec(`UPDATE documents\s+SET body = jsonb_set`).
		WithArgs(CollectionInstruments, "id-1", "discoveryCount", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	counts, err := s.CountBy(context.Background(), CollectionInstruments, "type")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Telescope": 3, "Probe": 1}, counts)

	require.NoError(t, s.Increment(context.Background(), CollectionInstruments, "id-1", "discoveryCount", 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaStatements(t *testing.T) {
	stmts := SchemaStatements()
	// table + 2 indexes + one unique index per unique field
	require.Len(t, stmts, 5)
	assert.Contains(t, stmts[3], `"documents_instruments_name_key"`)
	assert.Contains(t, stmts[3], `WHERE collection = 'instruments'`)
	assert.Contains(t, stmts[4], `(body->>'title')`)
}

func TestApplySchema(t *testing.T) {
	db, mock, _ := setupMockStore(t)
	defer db.Close()

	for range SchemaStatements() {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, ApplySchema(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}
