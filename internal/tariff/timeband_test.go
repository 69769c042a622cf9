package tariff

import (
	"testing"
	"time"
)

func bandDoc() *Document {
	return &Document{
		Components: []Component{{ID: "c", Calculation: "1"}},
		TimeBands: []TimeBand{
			{
				ID:    "peak",
				Days:  []string{"mon", "tue", "wed", "thu", "fri"},
				Times: []TimeSpan{{From: "07:00", To: "09:00"}, {From: "17:00", To: "21:00"}},
			},
			{
				ID:    "shoulder",
				Days:  []string{"all"},
				Times: []TimeSpan{{From: "09:00", To: "17:00"}},
			},
		},
	}
}

func TestAssignBandFirstMatchWins(t *testing.T) {
	doc := bandDoc()
	// Monday 2024-01-08 07:30 is both within peak and, by clock alone,
	// outside shoulder; peak declared first.
	ts := time.Date(2024, 1, 8, 7, 30, 0, 0, time.UTC)
	if got := AssignBand(ts, doc); got != "peak" {
		t.Fatalf("AssignBand = %q, want peak", got)
	}
}

func TestAssignBandAllDays(t *testing.T) {
	doc := bandDoc()
	// Sunday midday: weekday bands skip it, "all" shoulder matches.
	ts := time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC)
	if got := AssignBand(ts, doc); got != "shoulder" {
		t.Fatalf("AssignBand = %q, want shoulder", got)
	}
}

func TestAssignBandDefaultsOffPeak(t *testing.T) {
	doc := bandDoc()
	ts := time.Date(2024, 1, 8, 3, 0, 0, 0, time.UTC)
	if got := AssignBand(ts, doc); got != DefaultBand {
		t.Fatalf("AssignBand = %q, want %q", got, DefaultBand)
	}
}

func TestAssignBandHalfOpenSpan(t *testing.T) {
	doc := bandDoc()
	// 09:00 belongs to shoulder ([09:00, 17:00)), not peak ([07:00, 09:00)).
	ts := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	if got := AssignBand(ts, doc); got != "shoulder" {
		t.Fatalf("AssignBand at 09:00 = %q, want shoulder", got)
	}
	// 21:00 is past the evening peak span.
	ts = time.Date(2024, 1, 8, 21, 0, 0, 0, time.UTC)
	if got := AssignBand(ts, doc); got != DefaultBand {
		t.Fatalf("AssignBand at 21:00 = %q, want %q", got, DefaultBand)
	}
}

func TestAssignBandDateRanges(t *testing.T) {
	doc := &Document{
		Components: []Component{{ID: "c", Calculation: "1"}},
		TimeBands: []TimeBand{
			{
				ID:         "summer_peak",
				Days:       []string{"all"},
				Times:      []TimeSpan{{From: "14:00", To: "20:00"}},
				DateRanges: []DateRange{{From: "2024-12-01", To: "2025-02-28"}},
			},
		},
	}
	inside := time.Date(2024, 12, 15, 15, 0, 0, 0, time.UTC)
	if got := AssignBand(inside, doc); got != "summer_peak" {
		t.Fatalf("AssignBand inside range = %q, want summer_peak", got)
	}
	// Inclusive end date.
	edge := time.Date(2025, 2, 28, 15, 0, 0, 0, time.UTC)
	if got := AssignBand(edge, doc); got != "summer_peak" {
		t.Fatalf("AssignBand on end date = %q, want summer_peak", got)
	}
	outside := time.Date(2024, 6, 15, 15, 0, 0, 0, time.UTC)
	if got := AssignBand(outside, doc); got != DefaultBand {
		t.Fatalf("AssignBand outside range = %q, want %q", got, DefaultBand)
	}
}

func TestAssignBandMalformedDateRangeSkipped(t *testing.T) {
	doc := &Document{
		Components: []Component{{ID: "c", Calculation: "1"}},
		TimeBands: []TimeBand{
			{
				ID:         "broken",
				Days:       []string{"all"},
				Times:      []TimeSpan{{From: "00:00", To: "24:00"}},
				DateRanges: []DateRange{{From: "not-a-date", To: "2024-12-31"}},
			},
		},
	}
	ts := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	if got := AssignBand(ts, doc); got != DefaultBand {
		t.Fatalf("AssignBand = %q, want %q", got, DefaultBand)
	}
}

func TestAssignBandIsTotal(t *testing.T) {
	doc := bandDoc()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 48; i++ {
		if got := AssignBand(ts, doc); got == "" {
			t.Fatalf("AssignBand returned empty band at %v", ts)
		}
		ts = ts.Add(30 * time.Minute)
	}
}
