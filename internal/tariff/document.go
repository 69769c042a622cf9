// Package tariff defines the typed tariff document model plus the time-band
// classifier and rate resolver that operate on it. Documents arrive as JSON,
// are validated once at the boundary, and are immutable afterwards: a new
// version supersedes, never replaces.
package tariff

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTimeZone applies when a document does not name its own zone.
const DefaultTimeZone = "Australia/Melbourne"

// Document is a parsed, validated tariff definition.
type Document struct {
	TimeZone   string      `json:"time_zone,omitempty"`
	TimeBands  []TimeBand  `json:"time_bands"`
	Components []Component `json:"components"`
}

// TimeBand classifies timestamps into usage categories like peak/off_peak.
type TimeBand struct {
	ID         string      `json:"id"`
	Days       []string    `json:"days"`
	Times      []TimeSpan  `json:"times"`
	DateRanges []DateRange `json:"date_ranges,omitempty"`
}

// TimeSpan is a half-open [From, To) span of local HH:MM times. A span
// crossing midnight is not supported and must be split in two by the
// tariff author.
type TimeSpan struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DateRange is an inclusive window of local YYYY-MM-DD dates.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RateTier is one row of a rate schedule. Absent bounds are open-ended.
type RateTier struct {
	From  *float64 `json:"from,omitempty"`
	To    *float64 `json:"to,omitempty"`
	Value float64  `json:"value"`
}

// Season restricts a component to an inclusive date window.
type Season struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Component is one billable line item of a tariff.
type Component struct {
	ID           string     `json:"id"`
	Unit         string     `json:"unit"`
	RateSchedule []RateTier `json:"rate_schedule"`
	AppliesTo    []string   `json:"applies_to"`
	Season       *Season    `json:"season,omitempty"`
	LossFactor   *float64   `json:"loss_factor,omitempty"`
	Calculation  string     `json:"calculation"`
}

// ParseDocument decodes and validates a tariff document in one pass so the
// engine only ever sees typed, structurally sound input.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the structural invariants the engine relies on.
// Season and date-range values are deliberately not validated here: the
// calculation treats malformed ones as tolerantly as the schema allows.
func (d *Document) Validate() error {
	if d == nil {
		return ErrInvalidDocument
	}
	if len(d.Components) == 0 {
		return fmt.Errorf("%w: no components", ErrInvalidDocument)
	}
	if d.TimeZone != "" {
		if _, err := time.LoadLocation(d.TimeZone); err != nil {
			return fmt.Errorf("%w: time zone %q", ErrInvalidDocument, d.TimeZone)
		}
	}
	seen := make(map[string]bool, len(d.Components))
	for i, comp := range d.Components {
		if comp.ID == "" {
			return fmt.Errorf("%w: component %d has no id", ErrInvalidDocument, i)
		}
		if seen[comp.ID] {
			return fmt.Errorf("%w: duplicate component id %q", ErrInvalidDocument, comp.ID)
		}
		seen[comp.ID] = true
		if comp.Calculation == "" {
			return fmt.Errorf("%w: component %q has no calculation", ErrInvalidDocument, comp.ID)
		}
		if len(comp.RateSchedule) == 0 {
			return fmt.Errorf("%w: component %q has no rate schedule", ErrInvalidDocument, comp.ID)
		}
	}
	for _, band := range d.TimeBands {
		if band.ID == "" {
			return fmt.Errorf("%w: time band without id", ErrInvalidDocument)
		}
		for _, span := range band.Times {
			if !validClock(span.From) || !validClock(span.To) {
				return fmt.Errorf("%w: band %q has invalid time span %s-%s",
					ErrInvalidDocument, band.ID, span.From, span.To)
			}
		}
	}
	return nil
}

// Location resolves the document's time zone, falling back to the default.
func (d *Document) Location() (*time.Location, error) {
	name := d.TimeZone
	if name == "" {
		name = DefaultTimeZone
	}
	return time.LoadLocation(name)
}

// CanonicalJSON re-marshals the typed document. Field order is fixed by the
// struct definitions, so equal documents produce equal bytes for hashing.
func (d *Document) CanonicalJSON() ([]byte, error) {
	return json.Marshal(d)
}

func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}
