// Package recorder implements the metric-set output sinks: CSV (Long/Wide),
// an aggregated-scalar sink, and an XLSX sink, each wrapped in an optional
// calendar-bucketed aggregator. A Sink's method set matches
// internal/simulator.Recorder structurally (Record/Finalize) so this
// package never needs to import the simulator package that drives it.
package recorder

import (
	"sort"

	"pywr/internal/calendar"
	"pywr/internal/network"
	"pywr/internal/scenario"
)

// Sink receives one MetricSet's resolved values after every timestep
// solves, for every scenario in the run, and flushes buffered output once
// the whole run (every scenario) has finished.
type Sink interface {
	Record(idx scenario.Index, ts calendar.Timestep, metricSet string, values map[string]float64) error
	Finalize() error
}

// sortedKeys returns a map's keys in lexical order, the deterministic
// column/row order every sink in this package writes in.
func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build turns a model's declared Outputs into concrete Sinks, resolving
// each Output's MetricSet by name and wrapping the sink in a bucketed
// Aggregator when that set declares one with a real Frequency. outputDir
// prefixes every Output.Path that isn't already absolute.
func Build(m *network.Model, outputDir string) ([]Sink, error) {
	sets := make(map[string]*network.MetricSet, len(m.MetricSets))
	for i := range m.MetricSets {
		sets[m.MetricSets[i].Name] = &m.MetricSets[i]
	}

	sinks := make([]Sink, 0, len(m.Outputs))
	for _, out := range m.Outputs {
		ms, ok := sets[out.MetricSet]
		if !ok {
			return nil, &unknownMetricSetError{output: out.Name, metricSet: out.MetricSet}
		}

		sink, err := buildOne(out, ms, outputDir)
		if err != nil {
			return nil, err
		}
		if ms.Aggregator != nil && ms.Aggregator.Frequency != network.FreqNone {
			sink = NewAggregator(sink, out.MetricSet, *ms.Aggregator)
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}
