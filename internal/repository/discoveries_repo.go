package repository

import (
	"context"

	"github.com/Vintage-The-Gemini/space/internal/domain"

	"github.com/google/uuid"
)

// DiscoveriesRepository 发现Repository接口
type DiscoveriesRepository interface {
	Create(ctx context.Context, d *domain.Discovery) error
	Get(ctx context.Context, id string) (*domain.Discovery, error)
	Update(ctx context.Context, d *domain.Discovery) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q Query) ([]*domain.Discovery, int, error)
	CountByType(ctx context.Context) (map[string]int, error)
}

type discoveriesRepo struct {
	c collection
}

func NewDiscoveriesRepo(store DocumentStore) DiscoveriesRepository {
	return &discoveriesRepo{c: newCollection(store, CollectionDiscoveries)}
}

func (r *discoveriesRepo) Create(ctx context.Context, d *domain.Discovery) error {
	now := r.c.now()
	d.ID = uuid.NewString()
	d.CreatedAt = now
	d.UpdatedAt = now
	d.SchemaVersion = domain.SchemaVersion
	return r.c.insert(ctx, d.ID, d)
}

func (r *discoveriesRepo) Get(ctx context.Context, id string) (*domain.Discovery, error) {
	var d domain.Discovery
	if err := r.c.get(ctx, id, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *discoveriesRepo) Update(ctx context.Context, d *domain.Discovery) error {
	d.UpdatedAt = r.c.now()
	d.SchemaVersion = domain.SchemaVersion
	return r.c.replace(ctx, d.ID, d)
}

func (r *discoveriesRepo) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, id)
}

func (r *discoveriesRepo) List(ctx context.Context, q Query) ([]*domain.Discovery, int, error) {
	return findAll[domain.Discovery](ctx, r.c, q)
}

func (r *discoveriesRepo) CountByType(ctx context.Context) (map[string]int, error) {
	return r.c.store.CountBy(ctx, r.c.name, "type")
}
