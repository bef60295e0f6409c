package service

import (
	"time"

	"github.com/Vintage-The-Gemini/space/internal/domain"
	"github.com/Vintage-The-Gemini/space/internal/events"
	"github.com/Vintage-The-Gemini/space/internal/repository"

	"go.uber.org/zap"
)

// InstrumentService 仪器服务
type InstrumentService struct {
	*crud[domain.Instrument, *domain.Instrument]
}

// NewInstrumentService 创建仪器服务
func NewInstrumentService(repo repository.InstrumentsRepository, notifier *events.Notifier, logger *zap.Logger) *InstrumentService {
	return &InstrumentService{crud: &crud[domain.Instrument, *domain.Instrument]{
		name:       "Instrument",
		collection: repository.CollectionInstruments,
		repo:       repo,
		spec: ListSpec{
			Filterable: []string{"type", "status"},
		},
		columns: []Column{
			{Header: "ID", Field: "_id", Width: 38},
			{Header: "Name", Field: "name", Width: 25},
			{Header: "Type", Field: "type", Width: 15},
			{Header: "Status", Field: "status", Width: 15},
			{Header: "Discovery Date", Field: "discoveryDate", Width: 22},
			{Header: "Location", Field: "location", Width: 20},
			{Header: "Signal Strength", Field: "telemetry.signalStrength", Width: 15},
			{Header: "Temperature", Field: "telemetry.temperature", Width: 15},
			{Header: "Discoveries", Field: "discoveryCount", Width: 12},
			{Header: "Created At", Field: "createdAt", Width: 22},
		},
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}}
}
