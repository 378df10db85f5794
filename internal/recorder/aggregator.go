package recorder

import (
	"sort"

	"pywr/internal/calendar"
	"pywr/internal/network"
	"pywr/internal/scenario"
)

// bucketKey identifies one (scenario, calendar bucket) cell an Aggregator
// accumulates into before handing a single reduced row to its inner Sink.
type bucketKey struct {
	scenario int
	bucket   string
}

// Aggregator wraps a Sink and buckets every value it sees by calendar
// frequency, running accumulators keyed by calendar bucket, forwarding one
// reduced row per bucket to the inner sink at Finalize time.
// FreqRun collapses the whole scenario to a single bucket; Build never
// constructs an Aggregator for FreqNone, so that case isn't handled here.
type Aggregator struct {
	inner     Sink
	metricSet string
	agg       network.Aggregator

	order []bucketKey
	seen  map[bucketKey]bool
	rows  map[bucketKey]map[string][]float64
	ts    map[bucketKey]calendar.Timestep
}

func NewAggregator(inner Sink, metricSet string, agg network.Aggregator) *Aggregator {
	return &Aggregator{
		inner:     inner,
		metricSet: metricSet,
		agg:       agg,
		seen:      make(map[bucketKey]bool),
		rows:      make(map[bucketKey]map[string][]float64),
		ts:        make(map[bucketKey]calendar.Timestep),
	}
}

func (a *Aggregator) bucketFor(idx scenario.Index, ts calendar.Timestep) bucketKey {
	var b string
	switch a.agg.Frequency {
	case network.FreqMonthly:
		b = ts.Date.Format("2006-01")
	case network.FreqAnnual:
		b = ts.Date.Format("2006")
	default: // FreqRun
		b = "run"
	}
	return bucketKey{scenario: idx.Global, bucket: b}
}

func (a *Aggregator) Record(idx scenario.Index, ts calendar.Timestep, metricSet string, values map[string]float64) error {
	if metricSet != a.metricSet {
		return nil
	}
	key := a.bucketFor(idx, ts)
	if !a.seen[key] {
		a.seen[key] = true
		a.order = append(a.order, key)
		a.rows[key] = make(map[string][]float64)
		a.ts[key] = ts
	}
	// The bucket's representative timestep is its first: ts.Date is reported
	// on the row the inner sink receives, so later steps in the same bucket
	// only contribute values, not a new reported date.
	row := a.rows[key]
	for name, v := range values {
		row[name] = append(row[name], v)
	}
	return nil
}

func (a *Aggregator) Finalize() error {
	for _, key := range a.order {
		row := a.rows[key]
		reduced := make(map[string]float64, len(row))
		for name, vs := range row {
			reduced[name] = reduce(a.agg.Function, a.agg.Percentile, vs)
		}
		idx := scenario.Index{Global: key.scenario}
		if err := a.inner.Record(idx, a.ts[key], a.metricSet, reduced); err != nil {
			return err
		}
	}
	return a.inner.Finalize()
}

// reduce applies an AggregatorFunction to a bucket's accumulated samples.
func reduce(fn network.AggregatorFunction, percentile float64, vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	switch fn {
	case network.FnSum:
		var sum float64
		for _, v := range vs {
			sum += v
		}
		return sum
	case network.FnMin:
		min := vs[0]
		for _, v := range vs[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case network.FnMax:
		max := vs[0]
		for _, v := range vs[1:] {
			if v > max {
				max = v
			}
		}
		return max
	case network.FnPercentile:
		sorted := append([]float64(nil), vs...)
		sort.Float64s(sorted)
		p := percentile
		if p < 0 {
			p = 0
		} else if p > 100 {
			p = 100
		}
		rank := p / 100 * float64(len(sorted)-1)
		lo := int(rank)
		hi := lo + 1
		if hi >= len(sorted) {
			return sorted[len(sorted)-1]
		}
		frac := rank - float64(lo)
		return sorted[lo]*(1-frac) + sorted[hi]*frac
	default: // FnMean
		var sum float64
		for _, v := range vs {
			sum += v
		}
		return sum / float64(len(vs))
	}
}
