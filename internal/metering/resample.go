package metering

import (
	"math"
	"sort"
	"time"
)

// Agg selects how rolled demand series collapse to a single figure.
type Agg string

const (
	AggMax  Agg = "max"
	AggMean Agg = "mean"
)

// Valid reports whether the aggregation mode is recognized.
func (a Agg) Valid() bool { return a == AggMax || a == AggMean }

const (
	bucketSize   = 30 * time.Minute
	ffillLimit   = 5 // minutes a demand gap may be forward-filled
	minuteStride = time.Minute
)

// Bucket is one canonical half-hour of resampled data. HasEnergy and
// HasDemand distinguish absent columns from zero values; a bucket exists
// only when at least one column is present.
type Bucket struct {
	Start     time.Time
	Energy    float64
	HasEnergy bool
	Demand    float64
	HasDemand bool
}

// ResampleHalfHour converts raw readings into canonical, left-closed
// 30-minute buckets aligned to the local half-hour. Energy sums per bucket.
// Demand is averaged onto a 1-minute grid, forward-filled across gaps of at
// most five minutes, rolled over a trailing window (max or mean, minimum
// one observed point), then downsampled to each bucket by max.
func ResampleHalfHour(readings []Reading, loc *time.Location, window time.Duration, demandAgg Agg) []Bucket {
	if len(readings) == 0 {
		return nil
	}
	if window <= 0 {
		window = bucketSize
	}
	sorted := sortReadings(readings)

	energy := make(map[time.Time]float64)
	for _, r := range sorted {
		b := bucketStart(r.Timestamp.In(loc))
		energy[b] += r.KWh
	}

	demand := rollDemand(sorted, loc, window, demandAgg)

	starts := make(map[time.Time]bool, len(energy)+len(demand))
	for s := range energy {
		starts[s] = true
	}
	for s := range demand {
		starts[s] = true
	}
	out := make([]Bucket, 0, len(starts))
	for s := range starts {
		b := Bucket{Start: s}
		if v, ok := energy[s]; ok {
			b.Energy = v
			b.HasEnergy = true
		}
		if v, ok := demand[s]; ok {
			b.Demand = v
			b.HasDemand = true
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// rollDemand produces per-bucket demand maxima from the rolled 1-minute
// series, or nil when no reading carries demand.
func rollDemand(sorted []Reading, loc *time.Location, window time.Duration, demandAgg Agg) map[time.Time]float64 {
	grid := minuteGrid(sorted, loc, func(r Reading) (float64, bool) { return r.demand() })
	if grid == nil {
		return nil
	}
	rolled := rollingWindow(grid.values, int(window/minuteStride), demandAgg)

	buckets := make(map[time.Time]float64)
	seen := make(map[time.Time]bool)
	for i, v := range rolled {
		if math.IsNaN(v) {
			continue
		}
		b := bucketStart(grid.start.Add(time.Duration(i) * minuteStride))
		if !seen[b] || v > buckets[b] {
			buckets[b] = v
			seen[b] = true
		}
	}
	return buckets
}

// IncentiveKVA computes the incentive demand metric: a rolling mean of kVA
// over the window (right-closed, minimum one observed point) on the same
// forward-filled 1-minute grid, collapsed to the maximum or the mean of the
// series across the whole period. The second return is false when the
// readings carry no kVA at all.
func IncentiveKVA(readings []Reading, loc *time.Location, window time.Duration, demandAgg Agg) (float64, bool) {
	if window <= 0 {
		window = bucketSize
	}
	sorted := sortReadings(readings)
	grid := minuteGrid(sorted, loc, func(r Reading) (float64, bool) {
		if r.KVA != nil {
			return *r.KVA, true
		}
		return 0, false
	})
	if grid == nil {
		return 0, false
	}
	rolled := rollingWindow(grid.values, int(window/minuteStride), AggMean)

	sum := 0.0
	count := 0
	best := math.Inf(-1)
	for _, v := range rolled {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		count++
		if v > best {
			best = v
		}
	}
	if count == 0 {
		return 0, false
	}
	if demandAgg == AggMean {
		return sum / float64(count), true
	}
	return best, true
}

type series struct {
	start  time.Time
	values []float64 // NaN marks missing minutes
}

// minuteGrid averages the extracted value per minute across the observed
// span and forward-fills gaps of at most ffillLimit minutes. Longer gaps
// stay missing; there is no backfill.
func minuteGrid(sorted []Reading, loc *time.Location, extract func(Reading) (float64, bool)) *series {
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	var first, last time.Time
	for _, r := range sorted {
		v, ok := extract(r)
		if !ok {
			continue
		}
		m := minuteStart(r.Timestamp.In(loc))
		sums[m] += v
		counts[m]++
		if first.IsZero() || m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}
	if len(sums) == 0 {
		return nil
	}

	n := int(last.Sub(first)/minuteStride) + 1
	values := make([]float64, n)
	gap := 0
	lastVal := math.NaN()
	for i := 0; i < n; i++ {
		m := first.Add(time.Duration(i) * minuteStride)
		if c, ok := counts[m]; ok {
			lastVal = sums[m] / float64(c)
			gap = 0
			values[i] = lastVal
			continue
		}
		gap++
		if gap <= ffillLimit && !math.IsNaN(lastVal) {
			values[i] = lastVal
		} else {
			values[i] = math.NaN()
		}
	}
	return &series{start: first, values: values}
}

// rollingWindow applies a trailing window of n points (the current minute
// and the n-1 before it) with a minimum of one observed point. Missing
// output stays NaN only when the whole window is missing.
func rollingWindow(values []float64, n int, agg Agg) []float64 {
	if n < 1 {
		n = 1
	}
	out := make([]float64, len(values))
	for i := range values {
		lo := i - n + 1
		if lo < 0 {
			lo = 0
		}
		best := math.Inf(-1)
		sum := 0.0
		count := 0
		for j := lo; j <= i; j++ {
			v := values[j]
			if math.IsNaN(v) {
				continue
			}
			sum += v
			count++
			if v > best {
				best = v
			}
		}
		if count == 0 {
			out[i] = math.NaN()
		} else if agg == AggMean {
			out[i] = sum / float64(count)
		} else {
			out[i] = best
		}
	}
	return out
}

// bucketStart truncates to the enclosing local half-hour.
func bucketStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), (t.Minute()/30)*30, 0, 0, t.Location())
}

func minuteStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}
