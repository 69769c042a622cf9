package tariff

import (
	"strings"
	"time"
)

// SelectRate picks the applicable tier value from a schedule for a usage
// quantity. A single-tier schedule always returns that tier. Otherwise
// tiers are evaluated in order and the first one whose [from, to) range
// contains usage wins; a tier with only an upper bound matches usage <= to.
// When nothing matches, the last tier's value applies: excess usage bills
// at the top tier.
func SelectRate(schedule []RateTier, usage float64) float64 {
	if len(schedule) == 0 {
		return 0
	}
	if len(schedule) == 1 {
		return schedule[0].Value
	}
	for _, tier := range schedule {
		switch {
		case tier.From == nil && (tier.To == nil || usage <= *tier.To):
			return tier.Value
		case tier.From != nil && tier.To == nil && usage >= *tier.From:
			return tier.Value
		case tier.From != nil && tier.To != nil && usage >= *tier.From && usage < *tier.To:
			return tier.Value
		}
	}
	return schedule[len(schedule)-1].Value
}

// ConvertRate turns a published rate into a dollar amount per unit for the
// billing period. A "c/" prefix converts cents to dollars before suffix
// matching. Monthly rates prorate by days over the length of the period's
// starting month; yearly rates prorate by days over a flat 365. Per-day and
// per-kWh rates pass through (the caller multiplies by days or usage), as
// does any unit the grammar does not recognize.
func ConvertRate(unit string, value float64, days int, periodStart time.Time) float64 {
	rate := value
	u := strings.ToLower(strings.ReplaceAll(unit, " ", ""))
	if strings.HasPrefix(u, "c/") {
		rate /= 100
		u = u[2:]
	}
	switch {
	case strings.HasSuffix(u, "/day"):
		return rate
	case strings.HasSuffix(u, "/kwh"):
		return rate
	case strings.HasSuffix(u, "/mth"), strings.HasSuffix(u, "/month"):
		return rate * float64(days) / float64(daysInMonth(periodStart))
	case strings.HasSuffix(u, "/meter/year"), strings.HasSuffix(u, "/year"):
		return rate * float64(days) / 365.0
	}
	return rate
}

func daysInMonth(t time.Time) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
