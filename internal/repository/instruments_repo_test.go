package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Vintage-The-Gemini/space/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentsRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewInstrumentsRepo(NewMemoryStore())

	date := time.Date(1990, 4, 24, 0, 0, 0, 0, time.UTC)
	in := &domain.Instrument{Name: "Hubble", Type: "Telescope", Status: domain.InstrumentActive, DiscoveryDate: &date}
	require.NoError(t, repo.Create(ctx, in))
	assert.NotEmpty(t, in.ID)
	assert.Equal(t, domain.SchemaVersion, in.SchemaVersion)
	assert.False(t, in.CreatedAt.IsZero())

	got, err := repo.Get(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hubble", got.Name)
	assert.True(t, date.Equal(*got.DiscoveryDate))

	require.NoError(t, repo.IncrementDiscoveryCount(ctx, in.ID))
	got, err = repo.Get(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.DiscoveryCount)

	got.Status = domain.InstrumentRetired
	require.NoError(t, repo.Update(ctx, got))
	items, total, err := repo.List(ctx, Query{Filters: map[string]string{"status": domain.InstrumentRetired}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, in.ID, items[0].ID)

	counts, err := repo.CountByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Telescope": 1}, counts)

	require.NoError(t, repo.Delete(ctx, in.ID))
	_, err = repo.Get(ctx, in.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInstrumentsRepo_UpdateKeepsConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]DocumentStore{
		"memory": NewMemoryStore(),
		"bolt":   newTestBoltStore(t),
	} {
		t.Run(name, func(t *testing.T) {
			repo := NewInstrumentsRepo(store)
			date := time.Date(2009, 3, 7, 0, 0, 0, 0, time.UTC)
			in := &domain.Instrument{Name: "Kepler", Type: "Telescope", Status: domain.InstrumentActive, DiscoveryDate: &date}
			require.NoError(t, repo.Create(ctx, in))

			const n = 20
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					assert.NoError(t, repo.IncrementDiscoveryCount(ctx, in.ID))
				}()
				go func() {
					defer wg.Done()
					stale := *in
					stale.Description = "updated"
					assert.NoError(t, repo.Update(ctx, &stale))
				}()
			}
			wg.Wait()

			got, err := repo.Get(ctx, in.ID)
			require.NoError(t, err)
			assert.Equal(t, n, got.DiscoveryCount)
			assert.Equal(t, "updated", got.Description)
		})
	}
}

func TestRepos_InvalidIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := NewInstrumentsRepo(store).Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = NewDiscoveriesRepo(store).Get(ctx, "123")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, NewUpdatesRepo(store).Delete(ctx, "xyz"), ErrNotFound)
}
