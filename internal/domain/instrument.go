package domain

import (
	"strings"
	"time"
)

// 仪器状态
const (
	InstrumentActive      = "Active"
	InstrumentInactive    = "Inactive"
	InstrumentMaintenance = "Maintenance"
	InstrumentRetired     = "Retired"
)

var InstrumentStatuses = []string{InstrumentActive, InstrumentInactive, InstrumentMaintenance, InstrumentRetired}

// InstrumentTelemetry 仪器最近一次遥测读数
type InstrumentTelemetry struct {
	SignalStrength *float64   `json:"signalStrength,omitempty"`
	Temperature    *float64   `json:"temperature,omitempty"`
	LastUpdate     *time.Time `json:"lastUpdate,omitempty"`
}

// Instrument 观测仪器（instruments 集合）
type Instrument struct {
	ID             string               `json:"_id"`
	Name           string               `json:"name"`
	Type           string               `json:"type"`
	Status         string               `json:"status"`
	DiscoveryDate  *time.Time           `json:"discoveryDate,omitempty"`
	Telemetry      *InstrumentTelemetry `json:"telemetry,omitempty"`
	Location       string               `json:"location,omitempty"`
	Description    string               `json:"description,omitempty"`
	DiscoveryCount int                  `json:"discoveryCount"`
	SchemaVersion  int                  `json:"schemaVersion"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// Normalize trims strings and fills defaults.
func (i *Instrument) Normalize(now time.Time) {
	i.Name = strings.TrimSpace(i.Name)
	i.Type = strings.TrimSpace(i.Type)
	i.Status = strings.TrimSpace(i.Status)
	if i.Telemetry != nil && i.Telemetry.LastUpdate == nil {
		t := now
		i.Telemetry.LastUpdate = &t
	}
}

func (i *Instrument) Validate() error {
	var v validator
	v.required("name", i.Name, "Please add a name")
	v.required("type", i.Type, "Path `type` is required.")
	v.required("status", i.Status, "Path `status` is required.")
	v.enum("status", i.Status, InstrumentStatuses)
	if i.DiscoveryDate == nil || i.DiscoveryDate.IsZero() {
		v.add("discoveryDate", "Path `discoveryDate` is required.")
	}
	return v.err()
}

func (i *Instrument) DocumentID() string { return i.ID }

// KeepSystemFields restores fields a client update must not change.
func (i *Instrument) KeepSystemFields(prev *Instrument) {
	i.ID = prev.ID
	i.CreatedAt = prev.CreatedAt
	i.DiscoveryCount = prev.DiscoveryCount
}
