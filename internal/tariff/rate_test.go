package tariff

import (
	"math"
	"testing"
	"time"
)

func fp(v float64) *float64 { return &v }

func TestSelectRateSingleTier(t *testing.T) {
	schedule := []RateTier{{Value: 12.5}}
	for _, usage := range []float64{0, 100, 1e9} {
		if got := SelectRate(schedule, usage); got != 12.5 {
			t.Errorf("SelectRate(single, %v) = %v, want 12.5", usage, got)
		}
	}
}

func TestSelectRateEmptySchedule(t *testing.T) {
	if got := SelectRate(nil, 100); got != 0 {
		t.Fatalf("SelectRate(nil) = %v, want 0", got)
	}
}

func TestSelectRateTiers(t *testing.T) {
	schedule := []RateTier{
		{To: fp(100), Value: 10},
		{From: fp(100), To: fp(500), Value: 8},
		{From: fp(500), Value: 6},
	}
	cases := []struct {
		usage float64
		want  float64
	}{
		{0, 10},
		{100, 10}, // to-only tier is inclusive at its bound and wins first
		{150, 8},
		{499.9, 8},
		{500, 6},
		{1e6, 6}, // open-ended top tier
	}
	for _, tc := range cases {
		if got := SelectRate(schedule, tc.usage); got != tc.want {
			t.Errorf("SelectRate(%v) = %v, want %v", tc.usage, got, tc.want)
		}
	}
}

func TestSelectRateBoundedTierInclusiveFrom(t *testing.T) {
	// With no earlier tier shadowing the bound, usage at from belongs to
	// the [from, to) tier; just below it nothing matches and the last
	// tier wins.
	schedule := []RateTier{
		{From: fp(100), To: fp(500), Value: 8},
		{From: fp(500), Value: 6},
	}
	if got := SelectRate(schedule, 100); got != 8 {
		t.Fatalf("SelectRate(100) = %v, want 8", got)
	}
	if got := SelectRate(schedule, 99); got != 6 {
		t.Fatalf("SelectRate(99) = %v, want last tier 6", got)
	}
}

func TestSelectRateLastTierFallback(t *testing.T) {
	// Gapped schedule: nothing covers usage in [100, 200). The last tier
	// wins, not the nearest one.
	schedule := []RateTier{
		{From: fp(0), To: fp(100), Value: 10},
		{From: fp(200), To: fp(300), Value: 8},
	}
	if got := SelectRate(schedule, 150); got != 8 {
		t.Fatalf("SelectRate(gap) = %v, want last tier 8", got)
	}
}

func TestConvertRateCentsPerKWh(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := ConvertRate("c/kWh", 25.0, 30, start); got != 0.25 {
		t.Fatalf("ConvertRate(c/kWh) = %v, want 0.25", got)
	}
}

func TestConvertRateMonthlyProration(t *testing.T) {
	// February 2024 is a leap month with 29 days.
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	got := ConvertRate("$/kVA/Mth", 10.0, 15, start)
	want := 10.0 * 15.0 / 29.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("ConvertRate($/kVA/Mth) = %v, want %v", got, want)
	}
}

func TestConvertRateYearlyProration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := ConvertRate("$/meter/year", 365.0, 30, start)
	// Flat 365 divisor even in a leap year.
	if math.Abs(got-30.0) > 1e-9 {
		t.Fatalf("ConvertRate($/meter/year) = %v, want 30", got)
	}
}

func TestConvertRatePassThrough(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := ConvertRate("c/day", 90.0, 30, start); got != 0.9 {
		t.Fatalf("ConvertRate(c/day) = %v, want 0.9", got)
	}
	if got := ConvertRate("$/widget", 5.0, 30, start); got != 5.0 {
		t.Fatalf("ConvertRate(unknown) = %v, want unchanged 5", got)
	}
}

func TestConvertRateCaseAndSpaceInsensitive(t *testing.T) {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	got := ConvertRate(" $ / kVA / MTH ", 10.0, 15, start)
	want := 10.0 * 15.0 / 30.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("ConvertRate(spaced unit) = %v, want %v", got, want)
	}
}
