package repository

import (
	"context"

	"github.com/Vintage-The-Gemini/space/internal/domain"

	"github.com/google/uuid"
)

// UpdatesRepository 任务动态Repository接口
type UpdatesRepository interface {
	Create(ctx context.Context, u *domain.Update) error
	Get(ctx context.Context, id string) (*domain.Update, error)
	Update(ctx context.Context, u *domain.Update) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q Query) ([]*domain.Update, int, error)
	CountByType(ctx context.Context) (map[string]int, error)
}

type updatesRepo struct {
	c collection
}

func NewUpdatesRepo(store DocumentStore) UpdatesRepository {
	return &updatesRepo{c: newCollection(store, CollectionUpdates)}
}

func (r *updatesRepo) Create(ctx context.Context, u *domain.Update) error {
	now := r.c.now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.SchemaVersion = domain.SchemaVersion
	return r.c.insert(ctx, u.ID, u)
}

func (r *updatesRepo) Get(ctx context.Context, id string) (*domain.Update, error) {
	var u domain.Update
	if err := r.c.get(ctx, id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *updatesRepo) Update(ctx context.Context, u *domain.Update) error {
	u.UpdatedAt = r.c.now()
	u.SchemaVersion = domain.SchemaVersion
	return r.c.replace(ctx, u.ID, u)
}

func (r *updatesRepo) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, id)
}

func (r *updatesRepo) List(ctx context.Context, q Query) ([]*domain.Update, int, error) {
	return findAll[domain.Update](ctx, r.c, q)
}

func (r *updatesRepo) CountByType(ctx context.Context) (map[string]int, error) {
	return r.c.store.CountBy(ctx, r.c.name, "type")
}
