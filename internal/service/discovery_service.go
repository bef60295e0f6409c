package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Vintage-The-Gemini/space/internal/domain"
	"github.com/Vintage-The-Gemini/space/internal/events"
	"github.com/Vintage-The-Gemini/space/internal/repository"

	"go.uber.org/zap"
)

// DiscoveryService 天文发现服务
// Creating a discovery requires an existing instrument and bumps its
// discoveryCount.
type DiscoveryService struct {
	*crud[domain.Discovery, *domain.Discovery]
	instruments repository.InstrumentsRepository
}

func NewDiscoveryService(repo repository.DiscoveriesRepository, instruments repository.InstrumentsRepository, notifier *events.Notifier, logger *zap.Logger) *DiscoveryService {
	s := &DiscoveryService{instruments: instruments}
	now := func() time.Time { return time.Now().UTC() }
	s.crud = &crud[domain.Discovery, *domain.Discovery]{
		name:       "Discovery",
		collection: repository.CollectionDiscoveries,
		repo:       repo,
		spec: ListSpec{
			Filterable: []string{"type", "verificationStatus", "instrument"},
		},
		columns: []Column{
			{Header: "ID", Field: "_id", Width: 38},
			{Header: "Title", Field: "title", Width: 30},
			{Header: "Type", Field: "type", Width: 12},
			{Header: "Right Ascension", Field: "coordinates.rightAscension", Width: 16},
			{Header: "Declination", Field: "coordinates.declination", Width: 16},
			{Header: "Distance", Field: "coordinates.distance.value", Width: 12},
			{Header: "Distance Unit", Field: "coordinates.distance.unit", Width: 12},
			{Header: "Instrument", Field: "instrument", Width: 38},
			{Header: "Verification", Field: "verificationStatus", Width: 14},
			{Header: "Discovery Date", Field: "discoveryDate", Width: 22},
			{Header: "Age (days)", Field: "age", Width: 10},
			{Header: "Tags", Field: "tags", Width: 25},
		},
		notifier:    notifier,
		logger:      logger,
		now:         now,
		beforeSave:  s.checkInstrument,
		afterCreate: s.countDiscovery,
		present:     func(d *domain.Discovery) { d.ComputeAge(now()) },
	}
	return s
}

func (s *DiscoveryService) checkInstrument(ctx context.Context, d *domain.Discovery) error {
	if _, err := s.instruments.Get(ctx, d.Instrument); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewValidationError("instrument", fmt.Sprintf("No instrument with the id of %s", d.Instrument))
		}
		return fmt.Errorf("failed to check instrument: %w", err)
	}
	return nil
}

// countDiscovery is best-effort; the discovery is already stored.
func (s *DiscoveryService) countDiscovery(ctx context.Context, d *domain.Discovery) {
	if err := s.instruments.IncrementDiscoveryCount(ctx, d.Instrument); err != nil {
		s.logger.Warn("Failed to increment instrument discovery count",
			zap.String("instrument_id", d.Instrument),
			zap.String("discovery_id", d.ID),
			zap.Error(err),
		)
	}
}
