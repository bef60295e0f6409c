package repository

import (
	"context"

	"github.com/Vintage-The-Gemini/space/internal/domain"

	"github.com/google/uuid"
)

// InstrumentsRepository 仪器Repository接口
type InstrumentsRepository interface {
	// Create assigns id, timestamps and schema version before storing.
	Create(ctx context.Context, in *domain.Instrument) error
	Get(ctx context.Context, id string) (*domain.Instrument, error)
	// Update replaces the document and bumps updatedAt. discoveryCount keeps
	// the stored value so concurrent IncrementDiscoveryCount calls survive.
	Update(ctx context.Context, in *domain.Instrument) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q Query) ([]*domain.Instrument, int, error)
	CountByType(ctx context.Context) (map[string]int, error)
	IncrementDiscoveryCount(ctx context.Context, id string) error
}

type instrumentsRepo struct {
	c collection
}

func NewInstrumentsRepo(store DocumentStore) InstrumentsRepository {
	return &instrumentsRepo{c: newCollection(store, CollectionInstruments)}
}

func (r *instrumentsRepo) Create(ctx context.Context, in *domain.Instrument) error {
	now := r.c.now()
	in.ID = uuid.NewString()
	in.CreatedAt = now
	in.UpdatedAt = now
	in.SchemaVersion = domain.SchemaVersion
	return r.c.insert(ctx, in.ID, in)
}

func (r *instrumentsRepo) Get(ctx context.Context, id string) (*domain.Instrument, error) {
	var in domain.Instrument
	if err := r.c.get(ctx, id, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (r *instrumentsRepo) Update(ctx context.Context, in *domain.Instrument) error {
	in.UpdatedAt = r.c.now()
	in.SchemaVersion = domain.SchemaVersion
	return r.c.replace(ctx, in.ID, in, "discoveryCount")
}

func (r *instrumentsRepo) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, id)
}

func (r *instrumentsRepo) List(ctx context.Context, q Query) ([]*domain.Instrument, int, error) {
	return findAll[domain.Instrument](ctx, r.c, q)
}

func (r *instrumentsRepo) CountByType(ctx context.Context) (map[string]int, error) {
	return r.c.store.CountBy(ctx, r.c.name, "type")
}

func (r *instrumentsRepo) IncrementDiscoveryCount(ctx context.Context, id string) error {
	return r.c.increment(ctx, id, "discoveryCount", 1)
}
