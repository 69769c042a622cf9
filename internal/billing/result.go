package billing

import (
	"math"
	"time"
)

// Currency is the unit of every monetary amount the engine produces.
const Currency = "AUD"

// Period is a half-open billing window [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the period is well-formed.
func (p Period) Valid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && p.Start.Before(p.End)
}

// ComponentLine is one line of a bill breakdown.
type ComponentLine struct {
	UnitsUsed float64 `json:"units_used"`
	UnitLabel string  `json:"unit_label"`
	Cost      float64 `json:"cost"`
}

// CalcResult is the deterministic outcome of one calculation. Amounts are
// rounded to four decimal places at the point of storage.
type CalcResult struct {
	TotalCost float64                  `json:"total_cost"`
	Breakdown map[string]ComponentLine `json:"breakdown"`
	Units     string                   `json:"units"`
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
