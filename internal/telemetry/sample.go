package telemetry

import "encoding/json"

// SystemStatus 子系统状态
type SystemStatus string

const (
	StatusNominal  SystemStatus = "NOMINAL"
	StatusWarning  SystemStatus = "WARNING"
	StatusCritical SystemStatus = "CRITICAL"
)

// 消息类型
const (
	TypeTelemetryUpdate       = "TELEMETRY_UPDATE"
	TypeSubscribeMission      = "SUBSCRIBE_MISSION"
	TypeRequestHistoricalData = "REQUEST_HISTORICAL_DATA"
)

type Signals struct {
	Strength float64 `json:"strength"`
	Quality  float64 `json:"quality"`
	Latency  float64 `json:"latency"`
}

type Systems struct {
	Primary       SystemStatus `json:"primary"`
	Backup        SystemStatus `json:"backup"`
	Communication SystemStatus `json:"communication"`
}

// Sample 一次遥测快照
// Timestamp is milliseconds since the Unix epoch.
type Sample struct {
	Timestamp   int64   `json:"timestamp"`
	Altitude    float64 `json:"altitude"`
	Velocity    float64 `json:"velocity"`
	Temperature float64 `json:"temperature"`
	Radiation   float64 `json:"radiation"`
	Power       float64 `json:"power"`
	Signals     Signals `json:"signals"`
	Systems     Systems `json:"systems"`
}

// Envelope 服务端 → 客户端消息
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Inbound 客户端 → 服务端消息
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type SubscribeMission struct {
	MissionID string `json:"missionId"`
}

type HistoricalDataRequest struct {
	MissionID string  `json:"missionId"`
	Hours     float64 `json:"hours"`
}

// bound is a half-open interval [Min, Max).
type bound struct {
	Min, Max float64
}

// Field ranges.
var (
	AltitudeRange    = bound{100, 500}
	VelocityRange    = bound{3000, 30000}
	TemperatureRange = bound{-50, 50}
	RadiationRange   = bound{0, 1000}
	PowerRange       = bound{0, 100}
	StrengthRange    = bound{0, 100}
	QualityRange     = bound{0, 100}
	LatencyRange     = bound{0, 1000}
)

func (b bound) Contains(v float64) bool {
	return v >= b.Min && v < b.Max
}
