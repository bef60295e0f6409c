package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/Vintage-The-Gemini/space/internal/domain"
	"github.com/Vintage-The-Gemini/space/internal/events"
	"github.com/Vintage-The-Gemini/space/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMQTT struct {
	topics []string
}

func (f *fakeMQTT) Publish(topic string, _ byte, _ bool, _ []byte) error {
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakeMQTT) Disconnect() {}

type services struct {
	instruments *InstrumentService
	discoveries *DiscoveryService
	updates     *UpdateService
	published   *fakeMQTT
}

func newServices(t *testing.T) *services {
	t.Helper()
	store := repository.NewMemoryStore()
	logger := zap.NewNop()
	mq := &fakeMQTT{}
	notifier := events.NewNotifier(events.NewMQTTPublisher(mq, "space", 0), nil, logger)

	instRepo := repository.NewInstrumentsRepo(store)
	return &services{
		instruments: NewInstrumentService(instRepo, notifier, logger),
		discoveries: NewDiscoveryService(repository.NewDiscoveriesRepo(store), instRepo, notifier, logger),
		updates:     NewUpdateService(repository.NewUpdatesRepo(store), instRepo, notifier, logger),
		published:   mq,
	}
}

func createInstrument(t *testing.T, s *InstrumentService, name string) *domain.Instrument {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"type":"Telescope","status":"Active","discoveryDate":"1990-04-24T00:00:00Z","location":"LEO"}`, name)
	out, err := s.Create(context.Background(), []byte(body))
	require.NoError(t, err)
	return out.(*domain.Instrument)
}

func TestInstrumentService_RoundTrip(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()

	created := createInstrument(t, svc.instruments, "  Hubble  ")
	assert.Equal(t, "Hubble", created.Name)
	assert.NotEmpty(t, created.ID)

	got, err := svc.instruments.Get(ctx, created.ID)
	require.NoError(t, err)
	inst := got.(*domain.Instrument)
	assert.Equal(t, "Hubble", inst.Name)
	assert.Equal(t, "Telescope", inst.Type)
	assert.Equal(t, "Active", inst.Status)
	assert.Equal(t, "LEO", inst.Location)
	assert.Equal(t, "1990-04-24", inst.DiscoveryDate.Format("2006-01-02"))

	require.NoError(t, svc.instruments.Delete(ctx, created.ID))
	_, err = svc.instruments.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.instruments.Delete(ctx, created.ID), ErrNotFound)

	assert.Equal(t, []string{"space/instruments/created", "space/instruments/deleted"}, svc.published.topics)
}

func TestInstrumentService_Validation(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()

	_, err := svc.instruments.Create(ctx, []byte(`{"type":"Telescope","status":"Broken"}`))
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Messages(), "Please add a name")
	assert.Contains(t, verr.Messages(), "`Broken` is not a valid enum value for path `status`.")
	assert.Contains(t, verr.Messages(), "Path `discoveryDate` is required.")

	_, err = svc.instruments.Create(ctx, []byte(`{"name":`))
	assert.True(t, errors.As(err, &verr))

	_, err = svc.instruments.Create(ctx, []byte(`{"name":42}`))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Fields[0].Field)

	_, err = svc.instruments.Create(ctx, nil)
	assert.True(t, errors.As(err, &verr))
	assert.Empty(t, svc.published.topics)
}

func TestInstrumentService_Duplicate(t *testing.T) {
	svc := newServices(t)
	createInstrument(t, svc.instruments, "JWST")

	body := `{"name":"JWST","type":"Telescope","status":"Active","discoveryDate":"2021-12-25T00:00:00Z"}`
	_, err := svc.instruments.Create(context.Background(), []byte(body))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestInstrumentService_PartialUpdate(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()
	created := createInstrument(t, svc.instruments, "Kepler")

	out, err := svc.instruments.Update(ctx, created.ID, []byte(`{"status":"Retired","_id":"other","discoveryCount":99}`))
	require.NoError(t, err)
	updated := out.(*domain.Instrument)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Retired", updated.Status)
	assert.Equal(t, "Kepler", updated.Name)
	assert.Equal(t, "LEO", updated.Location)
	assert.Equal(t, 0, updated.DiscoveryCount)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	_, err = svc.instruments.Update(ctx, created.ID, []byte(`{"status":"Exploded"}`))
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = svc.instruments.Update(ctx, "4a1f6f0e-5a1c-4f5e-9a53-6a7c1a7b2d10", []byte(`{"status":"Active"}`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInstrumentService_ListPagination(t *testing.T) {
	svc := newServices(t)
	for i := 0; i < 15; i++ {
		createInstrument(t, svc.instruments, fmt.Sprintf("inst-%02d", i))
	}
	ctx := context.Background()

	page1, err := svc.instruments.List(ctx, ParseListRequest(url.Values{"page": {"1"}, "limit": {"10"}}, svc.instruments.ListSpec()))
	require.NoError(t, err)
	assert.Equal(t, 10, page1.Count)
	assert.Equal(t, 15, page1.Total)
	require.NotNil(t, page1.Pagination.Next)
	assert.Equal(t, 2, page1.Pagination.Next.Page)
	assert.Nil(t, page1.Pagination.Prev)

	page2, err := svc.instruments.List(ctx, ParseListRequest(url.Values{"page": {"2"}, "limit": {"10"}}, svc.instruments.ListSpec()))
	require.NoError(t, err)
	assert.Equal(t, 5, page2.Count)
	assert.Len(t, page2.Data, 5)
	assert.Nil(t, page2.Pagination.Next)
	require.NotNil(t, page2.Pagination.Prev)
	assert.Equal(t, 1, page2.Pagination.Prev.Page)
}

func TestInstrumentService_ListFilterSelectSort(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()
	createInstrument(t, svc.instruments, "Alpha")
	createInstrument(t, svc.instruments, "Beta")
	_, err := svc.instruments.Create(ctx, []byte(`{"name":"Gamma","type":"Probe","status":"Active","discoveryDate":"2000-01-01T00:00:00Z"}`))
	require.NoError(t, err)

	res, err := svc.instruments.List(ctx, ParseListRequest(url.Values{
		"type":   {"Telescope"},
		"sort":   {"-name"},
		"select": {"name"},
	}, svc.instruments.ListSpec()))
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	first := res.Data[0].(map[string]any)
	assert.Equal(t, "Beta", first["name"])
	assert.NotEmpty(t, first["_id"])
	assert.NotContains(t, first, "type")

	stats, err := svc.instruments.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TypeCount{{Type: "Telescope", Count: 2}, {Type: "Probe", Count: 1}}, stats)
}

func discoveryBody(title, instrumentID string) []byte {
	return []byte(fmt.Sprintf(`{
		"title": %q,
		"description": "A hot Jupiter",
		"type": "Exoplanet",
		"coordinates": {"rightAscension": "19h 22m", "declination": "+41 40", "distance": {"value": 1200}},
		"instrument": %q,
		"significance": "First of its kind",
		"discoveryDate": "2020-01-01T00:00:00Z",
		"tags": ["planet", "transit"]
	}`, title, instrumentID))
}

func TestDiscoveryService_CreateIncrementsInstrument(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()
	inst := createInstrument(t, svc.instruments, "Kepler")

	out, err := svc.discoveries.Create(ctx, discoveryBody("Kepler-22b", inst.ID))
	require.NoError(t, err)
	d := out.(*domain.Discovery)
	assert.Equal(t, "Unverified", d.VerificationStatus)
	assert.Equal(t, "ly", d.Coordinates.Distance.Unit)
	require.NotNil(t, d.Age)
	assert.Greater(t, *d.Age, 0)

	got, err := svc.instruments.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.(*domain.Instrument).DiscoveryCount)

	// age is computed, never stored
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"age"`)
}

func TestDiscoveryService_UnknownInstrument(t *testing.T) {
	svc := newServices(t)
	_, err := svc.discoveries.Create(context.Background(), discoveryBody("Orphan", "4a1f6f0e-5a1c-4f5e-9a53-6a7c1a7b2d10"))
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "instrument", verr.Fields[0].Field)
}

func TestUpdateService_Defaults(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, err := svc.updates.Create(ctx, []byte(fmt.Sprintf(`{"title":"update %d","content":"c","type":"General"}`, i)))
		require.NoError(t, err)
	}

	res, err := svc.updates.List(ctx, ParseListRequest(url.Values{}, svc.updates.ListSpec()))
	require.NoError(t, err)
	assert.Equal(t, 10, res.Count)
	assert.Equal(t, 12, res.Total)
	newest := res.Data[0].(*domain.Update)
	assert.Equal(t, "update 11", newest.Title)
	assert.Equal(t, "Low", newest.Severity)
	assert.NotNil(t, newest.Date)

	_, err = svc.updates.Create(ctx, []byte(`{"title":"x","content":"c","type":"General","relatedInstrument":"4a1f6f0e-5a1c-4f5e-9a53-6a7c1a7b2d10"}`))
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestExport(t *testing.T) {
	svc := newServices(t)
	for i := 0; i < 30; i++ {
		createInstrument(t, svc.instruments, fmt.Sprintf("inst-%02d", i))
	}

	table, err := svc.instruments.Export(context.Background(), ParseListRequest(url.Values{"sort": {"name"}, "limit": {"5"}}, svc.instruments.ListSpec()))
	require.NoError(t, err)
	assert.Equal(t, "instruments", table.Sheet)
	require.Len(t, table.Rows, 30)
	assert.Equal(t, "inst-00", table.Rows[0][1])
	assert.Equal(t, "Telescope", table.Rows[0][2])
	// absent nested telemetry renders as an empty cell
	assert.Equal(t, "", table.Rows[0][6])
	assert.Len(t, table.Rows[0], len(table.Columns))
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, "a, b", cellValue([]any{"a", "b"}))
	assert.Equal(t, "", cellValue(nil))
	assert.Equal(t, `{"k":1}`, cellValue(map[string]any{"k": float64(1)}))
	assert.Equal(t, 3.5, cellValue(3.5))
}
