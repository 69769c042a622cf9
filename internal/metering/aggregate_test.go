package metering

import (
	"errors"
	"testing"
	"time"

	"github.com/minvoker/tariff-calculator/internal/tariff"
)

func aggDoc() *tariff.Document {
	return &tariff.Document{
		TimeZone: "Australia/Melbourne",
		Components: []tariff.Component{
			{ID: "c", Calculation: "1"},
		},
		TimeBands: []tariff.TimeBand{
			{
				ID:    "peak",
				Days:  []string{"all"},
				Times: []tariff.TimeSpan{{From: "07:00", To: "21:00"}},
			},
		},
	}
}

func TestAggregateByBand(t *testing.T) {
	loc := melbourne(t)
	doc := aggDoc()
	readings := []Reading{
		{Timestamp: time.Date(2024, 1, 1, 8, 0, 0, 0, loc), KWh: 3},  // peak
		{Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, loc), KWh: 4}, // peak
		{Timestamp: time.Date(2024, 1, 1, 23, 0, 0, 0, loc), KWh: 5}, // off peak
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, loc)
	agg, err := Aggregate(readings, doc, start, end, Options{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.TotalUsage != 12 {
		t.Errorf("TotalUsage = %v, want 12", agg.TotalUsage)
	}
	if agg.PeakUsage != 7 {
		t.Errorf("PeakUsage = %v, want 7", agg.PeakUsage)
	}
	if agg.OffPeakUsage != 5 {
		t.Errorf("OffPeakUsage = %v, want 5", agg.OffPeakUsage)
	}
	if agg.ShoulderUsage != 0 {
		t.Errorf("ShoulderUsage = %v, want 0", agg.ShoulderUsage)
	}
	if agg.Days != 30 {
		t.Errorf("Days = %v, want 30", agg.Days)
	}
}

func TestAggregateBandAliases(t *testing.T) {
	loc := melbourne(t)
	doc := aggDoc()
	doc.TimeBands[0].ID = "retail_peak"
	readings := []Reading{
		{Timestamp: time.Date(2024, 1, 1, 8, 0, 0, 0, loc), KWh: 3},
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, loc)
	agg, err := Aggregate(readings, doc, start, end, Options{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.PeakUsage != 3 {
		t.Fatalf("PeakUsage = %v, want 3 (alias folded into peak)", agg.PeakUsage)
	}
}

func TestAggregateExcludesOutsidePeriod(t *testing.T) {
	loc := melbourne(t)
	doc := aggDoc()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, loc)
	readings := []Reading{
		{Timestamp: start.Add(-time.Minute), KWh: 100},
		{Timestamp: start, KWh: 1},
		{Timestamp: end.Add(-time.Minute), KWh: 2},
		{Timestamp: end, KWh: 100}, // end-exclusive
	}
	agg, err := Aggregate(readings, doc, start, end, Options{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.TotalUsage != 3 {
		t.Fatalf("TotalUsage = %v, want 3", agg.TotalUsage)
	}
}

func TestAggregateNoReadings(t *testing.T) {
	loc := melbourne(t)
	doc := aggDoc()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, loc)
	_, err := Aggregate(nil, doc, start, end, Options{})
	if !errors.Is(err, ErrNoReadings) {
		t.Fatalf("expected ErrNoReadings, got %v", err)
	}
}

func TestAggregateDemandMetrics(t *testing.T) {
	loc := melbourne(t)
	doc := aggDoc()
	readings := []Reading{
		{Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, loc), KWh: 1, KVA: kva(10)},
		{Timestamp: time.Date(2024, 1, 1, 10, 1, 0, 0, loc), KWh: 1, KVA: kva(20)},
		{Timestamp: time.Date(2024, 1, 1, 10, 2, 0, 0, loc), KWh: 1, KVA: kva(30)},
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, loc)
	agg, err := Aggregate(readings, doc, start, end, Options{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.MaxKVA != 30 {
		t.Errorf("MaxKVA = %v, want 30", agg.MaxKVA)
	}
	// Rolling 30-minute means peak at (10+20+30)/3 = 20.
	if agg.IncentiveKVA != 20 {
		t.Errorf("IncentiveKVA = %v, want 20", agg.IncentiveKVA)
	}
}

func TestAggregateMinimumOneDay(t *testing.T) {
	loc := melbourne(t)
	doc := aggDoc()
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, loc)
	end := time.Date(2024, 1, 1, 20, 0, 0, 0, loc)
	readings := []Reading{{Timestamp: start, KWh: 1}}
	agg, err := Aggregate(readings, doc, start, end, Options{})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.Days != 1 {
		t.Fatalf("Days = %v, want 1", agg.Days)
	}
}

func TestAggregateRejectsBadMode(t *testing.T) {
	loc := melbourne(t)
	doc := aggDoc()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	readings := []Reading{{Timestamp: start, KWh: 1}}
	_, err := Aggregate(readings, doc, start, start.AddDate(0, 0, 1), Options{DemandAgg: "median"})
	if err == nil {
		t.Fatal("expected error for invalid demand aggregation mode")
	}
}
