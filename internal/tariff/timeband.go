package tariff

import (
	"strings"
	"time"
)

// DefaultBand is assigned when no time band matches a timestamp, so the
// classifier is total: every reading lands in exactly one band.
const DefaultBand = "off_peak"

// AssignBand returns the id of the first time band matching ts, in
// declaration order. A band matches when its date ranges (if any) contain
// the local date, its day list contains the local weekday or "all", and at
// least one span satisfies from <= HH:MM < to by string comparison.
//
// Demand-specific rolling windows are out of scope here; this classifies
// usage only.
func AssignBand(ts time.Time, doc *Document) string {
	if doc == nil {
		return DefaultBand
	}
	day := strings.ToLower(ts.Format("Mon"))
	clock := ts.Format("15:04")
	date := ts.Format("2006-01-02")

	for _, band := range doc.TimeBands {
		if len(band.DateRanges) > 0 && !inDateRanges(date, band.DateRanges) {
			continue
		}
		if !dayMatches(day, band.Days) {
			continue
		}
		for _, span := range band.Times {
			if span.From == "" || span.To == "" {
				continue
			}
			// Zero-padded HH:MM compares correctly as strings. This
			// cannot express a span crossing midnight; authors split
			// those at 00:00.
			if span.From <= clock && clock < span.To {
				if band.ID == "" {
					return DefaultBand
				}
				return band.ID
			}
		}
	}
	return DefaultBand
}

func dayMatches(day string, days []string) bool {
	for _, d := range days {
		d = strings.ToLower(d)
		if d == "all" || d == day {
			return true
		}
	}
	return false
}

// inDateRanges checks inclusive YYYY-MM-DD windows; malformed ranges are
// skipped rather than failing the whole classification.
func inDateRanges(date string, ranges []DateRange) bool {
	for _, r := range ranges {
		if !validDate(r.From) || !validDate(r.To) {
			continue
		}
		if r.From <= date && date <= r.To {
			return true
		}
	}
	return false
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
