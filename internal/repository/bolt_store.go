package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStore implements DocumentStore on a single bbolt file, one bucket per collection.
type BoltStore struct {
	db *bolt.DB
}

var _ DocumentStore = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the database file and its buckets.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, c := range Collections {
			if _, err := tx.CreateBucketIfNotExists([]byte(c.Name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", c.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func bucket(tx *bolt.Tx, collection string) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(collection))
	if b == nil {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	return b, nil
}

func loadAll(b *bolt.Bucket) ([]document, error) {
	var docs []document
	err := b.ForEach(func(_, v []byte) error {
		// bolt values are only valid inside the transaction
		raw := make(json.RawMessage, len(v))
		copy(raw, v)
		d, err := parseDocument(raw)
		if err != nil {
			return err
		}
		docs = append(docs, d)
		return nil
	})
	return docs, err
}

func (s *BoltStore) Insert(_ context.Context, collection, id string, raw json.RawMessage) error {
	d, err := parseDocument(raw)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, collection)
		if err != nil {
			return err
		}
		if b.Get([]byte(id)) != nil {
			return ErrDuplicate
		}
		if unique := uniqueFields(collection); len(unique) > 0 {
			docs, err := loadAll(b)
			if err != nil {
				return err
			}
			if conflicts(docs, d, unique) {
				return ErrDuplicate
			}
		}
		return b.Put([]byte(id), raw)
	})
}

func (s *BoltStore) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	var out json.RawMessage
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, collection)
		if err != nil {
			return err
		}
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		out = make(json.RawMessage, len(v))
		copy(out, v)
		return nil
	})
	return out, err
}

func (s *BoltStore) Replace(_ context.Context, collection, id string, raw json.RawMessage, keep ...string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, collection)
		if err != nil {
			return err
		}
		stored := b.Get([]byte(id))
		if stored == nil {
			return ErrNotFound
		}
		raw, err := keepFields(stored, raw, keep)
		if err != nil {
			return err
		}
		d, err := parseDocument(raw)
		if err != nil {
			return err
		}
		if unique := uniqueFields(collection); len(unique) > 0 {
			docs, err := loadAll(b)
			if err != nil {
				return err
			}
			if conflicts(docs, d, unique) {
				return ErrDuplicate
			}
		}
		return b.Put([]byte(id), raw)
	})
}

func (s *BoltStore) Delete(_ context.Context, collection, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, collection)
		if err != nil {
			return err
		}
		if b.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (s *BoltStore) Find(_ context.Context, collection string, q Query) ([]json.RawMessage, int, error) {
	var (
		out   []json.RawMessage
		total int
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, collection)
		if err != nil {
			return err
		}
		docs, err := loadAll(b)
		if err != nil {
			return err
		}
		out, total = applyQuery(docs, q)
		return nil
	})
	return out, total, err
}

func (s *BoltStore) CountBy(_ context.Context, collection, field string) (map[string]int, error) {
	var counts map[string]int
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, collection)
		if err != nil {
			return err
		}
		docs, err := loadAll(b)
		if err != nil {
			return err
		}
		counts = countBy(docs, field)
		return nil
	})
	return counts, err
}

func (s *BoltStore) Increment(_ context.Context, collection, id, field string, delta int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, collection)
		if err != nil {
			return err
		}
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		raw, err := incrementField(v, field, delta)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), raw)
	})
}

func (s *BoltStore) Ping(context.Context) error {
	return s.db.View(func(*bolt.Tx) error { return nil })
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
