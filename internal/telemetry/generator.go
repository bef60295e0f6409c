package telemetry

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

const (
	ModeWalk    = "walk"
	ModeUniform = "uniform"
)

// walkStep is the largest per-tick move as a fraction of a field's range.
const walkStep = 0.05

// Generator 遥测样本生成器
// Implementations are not safe for concurrent use; each session owns one.
type Generator interface {
	Next(now time.Time) Sample
}

// Source is the randomness a generator draws from. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Factory builds a fresh generator for each new session.
type Factory func() Generator

// NewFactory returns a factory for the given mode ("" means walk).
func NewFactory(mode string) (Factory, error) {
	switch mode {
	case "", ModeWalk:
		return func() Generator { return NewWalkGenerator(newSource()) }, nil
	case ModeUniform:
		return func() Generator { return NewUniformGenerator(newSource()) }, nil
	}
	return nil, fmt.Errorf("unknown telemetry mode %q", mode)
}

func newSource() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// clamp forces v into [b.Min, b.Max).
func clamp(v float64, b bound) float64 {
	if v < b.Min || math.IsNaN(v) {
		return b.Min
	}
	if v >= b.Max {
		return math.Nextafter(b.Max, b.Min)
	}
	return v
}

func uniform(src Source, b bound) float64 {
	return clamp(b.Min+src.Float64()*(b.Max-b.Min), b)
}

// weighted returns nominal with probability p, degraded otherwise.
func weighted(src Source, p float64, degraded SystemStatus) SystemStatus {
	if src.Float64() < p {
		return StatusNominal
	}
	return degraded
}

func drawSystems(src Source) Systems {
	return Systems{
		Primary:       weighted(src, 0.97, StatusWarning),
		Backup:        weighted(src, 0.99, StatusCritical),
		Communication: weighted(src, 0.98, StatusWarning),
	}
}

type uniformGenerator struct {
	src Source
}

// NewUniformGenerator 每个字段在范围内独立均匀取值
func NewUniformGenerator(src Source) Generator {
	return &uniformGenerator{src: src}
}

func (g *uniformGenerator) Next(now time.Time) Sample {
	return Sample{
		Timestamp:   now.UnixMilli(),
		Altitude:    uniform(g.src, AltitudeRange),
		Velocity:    uniform(g.src, VelocityRange),
		Temperature: uniform(g.src, TemperatureRange),
		Radiation:   uniform(g.src, RadiationRange),
		Power:       uniform(g.src, PowerRange),
		Signals: Signals{
			Strength: uniform(g.src, StrengthRange),
			Quality:  uniform(g.src, QualityRange),
			Latency:  uniform(g.src, LatencyRange),
		},
		Systems: drawSystems(g.src),
	}
}

type walkGenerator struct {
	src  Source
	prev *Sample
}

// NewWalkGenerator 随机游走：从上一个样本小步移动，并夹紧到范围内
// The first sample is uniform.
func NewWalkGenerator(src Source) Generator {
	return &walkGenerator{src: src}
}

func (g *walkGenerator) step(v float64, b bound) float64 {
	delta := (g.src.Float64()*2 - 1) * walkStep * (b.Max - b.Min)
	return clamp(v+delta, b)
}

func (g *walkGenerator) Next(now time.Time) Sample {
	if g.prev == nil {
		s := NewUniformGenerator(g.src).Next(now)
		g.prev = &s
		return s
	}
	p := *g.prev
	s := Sample{
		Timestamp:   now.UnixMilli(),
		Altitude:    g.step(p.Altitude, AltitudeRange),
		Velocity:    g.step(p.Velocity, VelocityRange),
		Temperature: g.step(p.Temperature, TemperatureRange),
		Radiation:   g.step(p.Radiation, RadiationRange),
		Power:       g.step(p.Power, PowerRange),
		Signals: Signals{
			Strength: g.step(p.Signals.Strength, StrengthRange),
			Quality:  g.step(p.Signals.Quality, QualityRange),
			Latency:  g.step(p.Signals.Latency, LatencyRange),
		},
		Systems: drawSystems(g.src),
	}
	g.prev = &s
	return s
}
