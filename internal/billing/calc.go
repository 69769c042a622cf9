// Package billing is the tariff evaluation engine: it turns a tariff
// document, a billing period and a list of meter readings into a cost
// breakdown. The calculation is a pure, synchronous transform; readings
// acquisition and result persistence belong to the caller.
package billing

import (
	"strings"
	"time"

	"github.com/minvoker/tariff-calculator/internal/metering"
	"github.com/minvoker/tariff-calculator/internal/tariff"
	"github.com/minvoker/tariff-calculator/internal/tariff/expr"
)

const defaultLossFactor = 1.0

// Calculate evaluates every component of doc against the usage aggregates
// of the period, in document order. A component whose expression fails or
// whose season excludes the period is skipped without affecting its
// siblings; structural problems (nil document, bad period, no readings)
// abort the whole calculation.
func Calculate(doc *tariff.Document, readings []metering.Reading, period Period, opts metering.Options) (*CalcResult, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	agg, err := metering.Aggregate(readings, doc, period.Start, period.End, opts)
	if err != nil {
		return nil, err
	}

	loc, err := documentLocation(doc, opts)
	if err != nil {
		return nil, err
	}
	startLocal := period.Start.In(loc)
	endLocal := period.End.In(loc)

	baseVars := map[string]float64{
		"total_usage":    agg.TotalUsage,
		"peak_usage":     agg.PeakUsage,
		"off_peak_usage": agg.OffPeakUsage,
		"shoulder_usage": agg.ShoulderUsage,
		// No separate network meter exists: network usage mirrors retail.
		"network_peak_usage":     agg.PeakUsage,
		"network_off_peak_usage": agg.OffPeakUsage,
		"network_total_usage":    agg.TotalUsage,
		"max_kva":                agg.MaxKVA,
		"incentive_kva":          agg.IncentiveKVA,
		"days":                   float64(agg.Days),
	}

	result := &CalcResult{
		Breakdown: make(map[string]ComponentLine),
		Units:     Currency,
	}
	total := 0.0
	for _, comp := range doc.Components {
		if comp.ID == "" {
			continue
		}
		if !seasonApplies(comp.Season, startLocal, endLocal) {
			continue
		}
		usageForTier, unitsUsed, label := resolveUsage(comp.AppliesTo, agg)

		rateValue := tariff.SelectRate(comp.RateSchedule, usageForTier)
		rateDollars := tariff.ConvertRate(comp.Unit, rateValue, agg.Days, startLocal)

		vars := make(map[string]float64, len(baseVars)+2)
		for k, v := range baseVars {
			vars[k] = v
		}
		vars["rate"] = rateDollars
		vars["loss_factor"] = defaultLossFactor
		if comp.LossFactor != nil {
			vars["loss_factor"] = *comp.LossFactor
		}

		cost, err := expr.Evaluate(comp.Calculation, vars)
		if err != nil {
			// Best effort: a failing formula drops its component, never
			// the whole bill.
			continue
		}
		result.Breakdown[comp.ID] = ComponentLine{
			UnitsUsed: round4(unitsUsed),
			UnitLabel: label,
			Cost:      round4(cost),
		}
		total += cost
	}
	result.TotalCost = round4(total)
	return result, nil
}

func documentLocation(doc *tariff.Document, opts metering.Options) (*time.Location, error) {
	if opts.TimeZone != "" {
		return time.LoadLocation(opts.TimeZone)
	}
	return doc.Location()
}

// seasonApplies is tolerant of malformed season dates: a season that
// cannot be parsed never excludes a component.
func seasonApplies(season *tariff.Season, start, end time.Time) bool {
	if season == nil {
		return true
	}
	from, err := time.Parse("2006-01-02", season.From)
	if err != nil {
		return true
	}
	to, err := time.Parse("2006-01-02", season.To)
	if err != nil {
		return true
	}
	endDate := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	startDate := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	if endDate.Before(from) || startDate.After(to) {
		return false
	}
	return true
}

// resolveUsage maps applies_to tags onto the quantity used for tier
// selection, the units recorded in the breakdown, and their label. The
// first matching category wins.
func resolveUsage(appliesTo []string, agg metering.UsageAggregate) (usageForTier, unitsUsed float64, label string) {
	tags := make(map[string]bool, len(appliesTo))
	for _, t := range appliesTo {
		tags[strings.ToLower(t)] = true
	}
	anyOf := func(names ...string) bool {
		for _, n := range names {
			if tags[n] {
				return true
			}
		}
		return false
	}
	switch {
	case anyOf("usage_peak", "network_peak"):
		return agg.PeakUsage, agg.PeakUsage, "kWh"
	case anyOf("usage_offpeak", "usage_off_peak", "network_offpeak", "network_off_peak"):
		return agg.OffPeakUsage, agg.OffPeakUsage, "kWh"
	case anyOf("usage_shoulder", "shoulder_usage", "network_shoulder"):
		return agg.ShoulderUsage, agg.ShoulderUsage, "kWh"
	case anyOf("usage_total", "total_usage", "usage_all"):
		return agg.TotalUsage, agg.TotalUsage, "kWh"
	case tags["demand"]:
		return agg.MaxKVA, agg.MaxKVA, "kVA"
	case tags["incentive_demand"]:
		return agg.IncentiveKVA, agg.IncentiveKVA, "kVA"
	case anyOf("fixed", "meter", "metering", "ancillary"):
		return 0, float64(agg.Days), "days"
	}
	return 0, 0, "unit"
}
