package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestInstrument_Validate(t *testing.T) {
	d := now.AddDate(-10, 0, 0)
	ok := Instrument{Name: "  Hubble ", Type: "Telescope", Status: InstrumentActive, DiscoveryDate: &d,
		Telemetry: &InstrumentTelemetry{}}
	ok.Normalize(now)
	require.NoError(t, ok.Validate())
	assert.Equal(t, "Hubble", ok.Name)
	require.NotNil(t, ok.Telemetry.LastUpdate)
	assert.Equal(t, now, *ok.Telemetry.LastUpdate)

	bad := Instrument{Status: "Broken"}
	err := bad.Validate()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Messages(), "Please add a name")
	assert.Contains(t, ve.Messages(), "Path `discoveryDate` is required.")
	assert.Contains(t, ve.Messages(), "`Broken` is not a valid enum value for path `status`.")
}

func TestDiscovery_NormalizeAndValidate(t *testing.T) {
	disc := Discovery{
		Title:        "TRAPPIST-1e",
		Description:  "Rocky planet",
		Type:         "Exoplanet",
		Coordinates:  Coordinates{RightAscension: "23h 06m", Declination: "-05° 02′", Distance: &Measure{}},
		Instrument:   "0b8f4f38-6c4b-4d4c-9d7e-3a37d1d2a2e1",
		Significance: "Habitable zone",
		Images:       []Image{{URL: "https://example.org/a.png"}},
	}
	disc.Normalize(now)
	require.NoError(t, disc.Validate())
	assert.Equal(t, "Unverified", disc.VerificationStatus)
	assert.Equal(t, "ly", disc.Coordinates.Distance.Unit)
	assert.Equal(t, now, *disc.DiscoveryDate)
	assert.Equal(t, now, *disc.Images[0].DateAdded)

	disc.Title = strings.Repeat("x", 101)
	disc.Type = "Planet"
	err := disc.Validate()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Fields, 2)
	assert.Equal(t, "title", ve.Fields[0].Field)
	assert.Equal(t, "type", ve.Fields[1].Field)
}

func TestDiscovery_ComputeAge(t *testing.T) {
	d := now.AddDate(0, 0, -10).Add(-time.Hour)
	disc := Discovery{DiscoveryDate: &d}
	disc.ComputeAge(now)
	require.NotNil(t, disc.Age)
	assert.Equal(t, 10, *disc.Age)

	disc.Normalize(now)
	assert.Nil(t, disc.Age)
}

func TestUpdate_Defaults(t *testing.T) {
	u := Update{Title: "Launch", Content: "Liftoff", Type: "Mission"}
	u.Normalize(now)
	require.NoError(t, u.Validate())
	assert.Equal(t, "Low", u.Severity)
	assert.Equal(t, now, *u.Date)

	u.Severity = "Extreme"
	assert.Error(t, u.Validate())
}
