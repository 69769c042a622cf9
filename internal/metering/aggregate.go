package metering

import (
	"fmt"
	"strings"
	"time"

	"github.com/minvoker/tariff-calculator/internal/tariff"
)

// Options configures demand aggregation. The zero value means: tariff's
// own time zone, 30-minute window, max aggregation.
type Options struct {
	// TimeZone overrides the tariff document's zone when non-empty.
	TimeZone string
	// DemandWindow is the rolling window for demand metrics.
	DemandWindow time.Duration
	// DemandAgg collapses rolled demand series: max or mean.
	DemandAgg Agg
}

func (o Options) withDefaults() Options {
	if o.DemandWindow <= 0 {
		o.DemandWindow = bucketSize
	}
	if o.DemandAgg == "" {
		o.DemandAgg = AggMax
	}
	return o
}

// UsageAggregate is the per-period usage summary exposed to tariff
// formulas. It is a pure function of readings, time bands and period
// bounds; nothing here is persisted.
type UsageAggregate struct {
	TotalUsage    float64
	PeakUsage     float64
	OffPeakUsage  float64
	ShoulderUsage float64
	MaxKVA        float64
	IncentiveKVA  float64
	Days          int
}

// Aggregate buckets the readings of [periodStart, periodEnd) by time band
// and derives the demand metrics. Returns ErrNoReadings when the period
// holds no data.
func Aggregate(readings []Reading, doc *tariff.Document, periodStart, periodEnd time.Time, opts Options) (UsageAggregate, error) {
	opts = opts.withDefaults()
	if !opts.DemandAgg.Valid() {
		return UsageAggregate{}, fmt.Errorf("metering: invalid demand aggregation %q", opts.DemandAgg)
	}
	loc, err := location(doc, opts)
	if err != nil {
		return UsageAggregate{}, err
	}

	inPeriod := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if r.Timestamp.Before(periodStart) || !r.Timestamp.Before(periodEnd) {
			continue
		}
		r.Timestamp = r.Timestamp.In(loc)
		inPeriod = append(inPeriod, r)
	}
	if len(inPeriod) == 0 {
		return UsageAggregate{}, ErrNoReadings
	}

	agg := UsageAggregate{
		Days: periodDays(periodStart.In(loc), periodEnd.In(loc)),
	}
	for _, r := range inPeriod {
		agg.TotalUsage += r.KWh
		switch normalizeBand(tariff.AssignBand(r.Timestamp, doc)) {
		case bandPeak:
			agg.PeakUsage += r.KWh
		case bandShoulder:
			agg.ShoulderUsage += r.KWh
		default:
			agg.OffPeakUsage += r.KWh
		}
	}

	for _, b := range ResampleHalfHour(inPeriod, loc, opts.DemandWindow, opts.DemandAgg) {
		if b.HasDemand && b.Demand > agg.MaxKVA {
			agg.MaxKVA = b.Demand
		}
	}
	if v, ok := IncentiveKVA(inPeriod, loc, opts.DemandWindow, opts.DemandAgg); ok {
		agg.IncentiveKVA = v
	}
	return agg, nil
}

func location(doc *tariff.Document, opts Options) (*time.Location, error) {
	if opts.TimeZone != "" {
		return time.LoadLocation(opts.TimeZone)
	}
	if doc != nil {
		return doc.Location()
	}
	return time.LoadLocation(tariff.DefaultTimeZone)
}

// periodDays counts whole days between the local start and end dates,
// end date exclusive, never less than one.
func periodDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	days := int(e.Sub(s) / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}

const (
	bandPeak     = "peak"
	bandShoulder = "shoulder"
	bandOffPeak  = "off_peak"
)

// normalizeBand folds band id aliases into the three usage buckets.
// Anything unrecognized is off-peak.
func normalizeBand(id string) string {
	switch strings.ToLower(id) {
	case "peak", "usage_peak", "retail_peak", "network_peak":
		return bandPeak
	case "shoulder", "usage_shoulder", "retail_shoulder", "network_shoulder":
		return bandShoulder
	default:
		return bandOffPeak
	}
}
