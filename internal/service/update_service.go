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

// UpdateService 任务动态服务；列表默认最新 10 条
type UpdateService struct {
	*crud[domain.Update, *domain.Update]
	instruments repository.InstrumentsRepository
}

func NewUpdateService(repo repository.UpdatesRepository, instruments repository.InstrumentsRepository, notifier *events.Notifier, logger *zap.Logger) *UpdateService {
	s := &UpdateService{instruments: instruments}
	s.crud = &crud[domain.Update, *domain.Update]{
		name:       "Update",
		collection: repository.CollectionUpdates,
		repo:       repo,
		spec: ListSpec{
			Filterable:   []string{"type", "severity", "relatedInstrument"},
			DefaultSort:  "-createdAt",
			DefaultLimit: 10,
		},
		columns: []Column{
			{Header: "ID", Field: "_id", Width: 38},
			{Header: "Title", Field: "title", Width: 30},
			{Header: "Type", Field: "type", Width: 14},
			{Header: "Severity", Field: "severity", Width: 10},
			{Header: "Related Instrument", Field: "relatedInstrument", Width: 38},
			{Header: "Date", Field: "date", Width: 22},
			{Header: "Content", Field: "content", Width: 50},
		},
		notifier:   notifier,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		beforeSave: s.checkRelatedInstrument,
	}
	return s
}

// relatedInstrument is optional, but when set it must exist.
func (s *UpdateService) checkRelatedInstrument(ctx context.Context, u *domain.Update) error {
	if u.RelatedInstrument == "" || s.instruments == nil {
		return nil
	}
	if _, err := s.instruments.Get(ctx, u.RelatedInstrument); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewValidationError("relatedInstrument", fmt.Sprintf("No instrument with the id of %s", u.RelatedInstrument))
		}
		return fmt.Errorf("failed to check instrument: %w", err)
	}
	return nil
}
