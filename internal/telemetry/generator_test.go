package telemetry

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constSource always returns the same draw.
type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

func assertInRange(t *testing.T, s Sample) {
	t.Helper()
	assert.True(t, AltitudeRange.Contains(s.Altitude), "altitude %v", s.Altitude)
	assert.True(t, VelocityRange.Contains(s.Velocity), "velocity %v", s.Velocity)
	assert.True(t, TemperatureRange.Contains(s.Temperature), "temperature %v", s.Temperature)
	assert.True(t, RadiationRange.Contains(s.Radiation), "radiation %v", s.Radiation)
	assert.True(t, PowerRange.Contains(s.Power), "power %v", s.Power)
	assert.True(t, StrengthRange.Contains(s.Signals.Strength), "strength %v", s.Signals.Strength)
	assert.True(t, QualityRange.Contains(s.Signals.Quality), "quality %v", s.Signals.Quality)
	assert.True(t, LatencyRange.Contains(s.Signals.Latency), "latency %v", s.Signals.Latency)
	for _, st := range []SystemStatus{s.Systems.Primary, s.Systems.Backup, s.Systems.Communication} {
		assert.Contains(t, []SystemStatus{StatusNominal, StatusWarning, StatusCritical}, st)
	}
}

func TestGenerators_StayInRange(t *testing.T) {
	now := time.Unix(1700000000, 0)
	for _, mode := range []string{ModeWalk, ModeUniform} {
		t.Run(mode, func(t *testing.T) {
			factory, err := NewFactory(mode)
			require.NoError(t, err)
			gen := factory()
			for i := 0; i < 5000; i++ {
				s := gen.Next(now)
				assert.Equal(t, now.UnixMilli(), s.Timestamp)
				assertInRange(t, s)
			}
		})
	}
}

func TestGenerators_ExtremeDraws(t *testing.T) {
	now := time.Now()
	for _, src := range []Source{constSource(0), constSource(0.9999999999999999)} {
		assertInRange(t, NewUniformGenerator(src).Next(now))

		walk := NewWalkGenerator(src)
		for i := 0; i < 100; i++ {
			assertInRange(t, walk.Next(now))
		}
	}
}

func TestWalkGenerator_Continuity(t *testing.T) {
	gen := NewWalkGenerator(rand.New(rand.NewPCG(1, 2)))
	prev := gen.Next(time.Now())
	maxStep := walkStep * (AltitudeRange.Max - AltitudeRange.Min)
	for i := 0; i < 1000; i++ {
		s := gen.Next(time.Now())
		assert.LessOrEqual(t, abs(s.Altitude-prev.Altitude), maxStep+1e-9)
		prev = s
	}
}

func TestDrawSystems_Weights(t *testing.T) {
	assert.Equal(t, Systems{StatusNominal, StatusNominal, StatusNominal}, drawSystems(constSource(0.5)))
	assert.Equal(t, Systems{StatusWarning, StatusCritical, StatusWarning}, drawSystems(constSource(0.995)))
	// between the primary and communication thresholds
	assert.Equal(t, Systems{StatusWarning, StatusNominal, StatusNominal}, drawSystems(constSource(0.975)))
}

func TestNewFactory_UnknownMode(t *testing.T) {
	_, err := NewFactory("sine")
	assert.Error(t, err)

	f, err := NewFactory("")
	require.NoError(t, err)
	assert.IsType(t, &walkGenerator{}, f())
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
