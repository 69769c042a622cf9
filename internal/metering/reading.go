// Package metering turns raw interval meter readings into the canonical
// 30-minute usage and demand aggregates the billing engine consumes. All
// transforms are pure: readings in, aggregate out, configuration explicit.
package metering

import (
	"sort"
	"time"
)

// Reading is one immutable metered fact. KWh is the per-interval energy
// (not cumulative). KVA and KW are optional instantaneous demand values;
// nil means the meter did not report them.
type Reading struct {
	Timestamp time.Time
	KWh       float64
	KVA       *float64
	KW        *float64
}

// demand returns the reading's demand value, preferring kVA over kW.
func (r Reading) demand() (float64, bool) {
	if r.KVA != nil {
		return *r.KVA, true
	}
	if r.KW != nil {
		return *r.KW, true
	}
	return 0, false
}

// sortReadings orders readings by timestamp without mutating the input.
func sortReadings(readings []Reading) []Reading {
	out := make([]Reading, len(readings))
	copy(out, readings)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// ParseLocal parses a timestamp string into loc. Naive timestamps are
// interpreted in loc (DST-ambiguous local times resolve to the first
// occurrence, nonexistent ones shift forward, per Go's zone resolution);
// zoned timestamps are converted, not re-localized.
func ParseLocal(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.In(loc), nil
		}
	}
	var lastErr error
	for _, layout := range []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	} {
		ts, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
