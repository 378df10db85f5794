package recorder

import (
	"sync"

	"pywr/internal/calendar"
	"pywr/internal/network"
	"pywr/internal/scenario"
)

// AggregatedScalarRecorder reduces every value a metric set ever reports,
// across the whole run, to a single value per metric, recoverable via
// AggregatedValue. Function defaults to Mean when the metric set declares
// no Aggregator.
type AggregatedScalarRecorder struct {
	metricSet string
	function  network.AggregatorFunction
	percentile float64

	mu   sync.Mutex
	vals map[string][]float64

	results map[string]float64
}

func NewAggregatedScalarRecorder(metricSet string) *AggregatedScalarRecorder {
	return &AggregatedScalarRecorder{
		metricSet: metricSet,
		function:  network.FnMean,
		vals:      make(map[string][]float64),
	}
}

// WithFunction overrides the reduction (called by Build when the output's
// metric set declares its own Aggregator function/percentile).
func (r *AggregatedScalarRecorder) WithFunction(fn network.AggregatorFunction, percentile float64) *AggregatedScalarRecorder {
	r.function = fn
	r.percentile = percentile
	return r
}

func (r *AggregatedScalarRecorder) Record(idx scenario.Index, ts calendar.Timestep, metricSet string, values map[string]float64) error {
	if metricSet != r.metricSet {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, v := range values {
		r.vals[name] = append(r.vals[name], v)
	}
	return nil
}

func (r *AggregatedScalarRecorder) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = make(map[string]float64, len(r.vals))
	for name, vs := range r.vals {
		r.results[name] = reduce(r.function, r.percentile, vs)
	}
	return nil
}

// AggregatedValue returns the final reduced value for a metric, available
// only after Finalize has run.
func (r *AggregatedScalarRecorder) AggregatedValue(name string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.results[name]
	return v, ok
}

// Results returns a copy of every reduced metric, available only after
// Finalize has run. Callers that don't know metric names ahead of time
// (e.g. a serve-layer run summary) use this instead of AggregatedValue.
func (r *AggregatedScalarRecorder) Results() map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]float64, len(r.results))
	for k, v := range r.results {
		out[k] = v
	}
	return out
}
