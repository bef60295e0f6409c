package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

var DiscoveryTypes = []string{"Exoplanet", "Star", "Galaxy", "Nebula", "BlackHole", "Asteroid", "Comet", "Other"}

var VerificationStatuses = []string{"Unverified", "Pending", "Verified", "Disputed"}

var DistanceUnits = []string{"ly", "au", "pc"}

const maxDiscoveryTitle = 100

// Measure 数值 + 单位
type Measure struct {
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`
}

type Coordinates struct {
	RightAscension string   `json:"rightAscension"`
	Declination    string   `json:"declination"`
	Distance       *Measure `json:"distance,omitempty"`
}

type Characteristics struct {
	Mass         *Measure `json:"mass,omitempty"`
	Size         *Measure `json:"size,omitempty"`
	Temperature  *Measure `json:"temperature,omitempty"`
	Composition  []string `json:"composition,omitempty"`
	SpectralType string   `json:"spectralType,omitempty"`
}

type Publication struct {
	Title           string     `json:"title,omitempty"`
	Authors         []string   `json:"authors,omitempty"`
	JournalName     string     `json:"journalName,omitempty"`
	PublicationDate *time.Time `json:"publicationDate,omitempty"`
	DOI             string     `json:"doi,omitempty"`
}

type Image struct {
	URL       string     `json:"url,omitempty"`
	Caption   string     `json:"caption,omitempty"`
	DateAdded *time.Time `json:"dateAdded,omitempty"`
}

// Discovery 天文发现（discoveries 集合）
// Age is computed on read and never persisted.
type Discovery struct {
	ID                 string           `json:"_id"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Type               string           `json:"type"`
	Coordinates        Coordinates      `json:"coordinates"`
	DiscoveryDate      *time.Time       `json:"discoveryDate,omitempty"`
	Instrument         string           `json:"instrument"`
	Characteristics    *Characteristics `json:"characteristics,omitempty"`
	Significance       string           `json:"significance"`
	VerificationStatus string           `json:"verificationStatus"`
	Publications       []Publication    `json:"publications,omitempty"`
	Images             []Image          `json:"images,omitempty"`
	Tags               []string         `json:"tags,omitempty"`
	Age                *int             `json:"age,omitempty"`
	SchemaVersion      int              `json:"schemaVersion"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

func (d *Discovery) Normalize(now time.Time) {
	d.Title = strings.TrimSpace(d.Title)
	d.Instrument = strings.TrimSpace(d.Instrument)
	d.Age = nil
	if d.DiscoveryDate == nil {
		t := now
		d.DiscoveryDate = &t
	}
	if d.VerificationStatus == "" {
		d.VerificationStatus = "Unverified"
	}
	if d.Coordinates.Distance != nil && d.Coordinates.Distance.Unit == "" {
		d.Coordinates.Distance.Unit = "ly"
	}
	for i := range d.Images {
		if d.Images[i].DateAdded == nil {
			t := now
			d.Images[i].DateAdded = &t
		}
	}
}

func (d *Discovery) Validate() error {
	var v validator
	v.required("title", d.Title, "Please add a title")
	if utf8.RuneCountInString(d.Title) > maxDiscoveryTitle {
		v.add("title", "Title cannot be more than 100 characters")
	}
	v.required("description", d.Description, "Please add a description")
	v.required("type", d.Type, "Please specify the type of discovery")
	v.enum("type", d.Type, DiscoveryTypes)
	v.required("coordinates.rightAscension", d.Coordinates.RightAscension, "Please add right ascension coordinates")
	v.required("coordinates.declination", d.Coordinates.Declination, "Please add declination coordinates")
	if d.Coordinates.Distance != nil {
		v.enum("coordinates.distance.unit", d.Coordinates.Distance.Unit, DistanceUnits)
	}
	v.required("instrument", d.Instrument, "Path `instrument` is required.")
	v.required("significance", d.Significance, "Please explain the significance of this discovery")
	v.enum("verificationStatus", d.VerificationStatus, VerificationStatuses)
	return v.err()
}

// ComputeAge sets Age to whole days elapsed since the discovery date.
func (d *Discovery) ComputeAge(now time.Time) {
	if d.DiscoveryDate == nil {
		d.Age = nil
		return
	}
	days := int(now.Sub(*d.DiscoveryDate).Hours() / 24)
	d.Age = &days
}

func (d *Discovery) DocumentID() string { return d.ID }

func (d *Discovery) KeepSystemFields(prev *Discovery) {
	d.ID = prev.ID
	d.CreatedAt = prev.CreatedAt
}
