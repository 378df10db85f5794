package simulator

import (
	"pywr/internal/calendar"
	"pywr/internal/scenario"
)

// Recorder receives one named MetricSet's values after every timestep
// solves: metric sets pull typed values after each solve, and
// internal/recorder's CSV/XLSX/aggregated-scalar sinks implement this;
// the simulator itself only knows how to evaluate metrics and push them.
type Recorder interface {
	// Record is called once per MetricSet per scenario per timestep, with
	// one entry per NamedMetric in that set, keyed by its declared name.
	Record(idx scenario.Index, ts calendar.Timestep, metricSet string, values map[string]float64) error

	// Finalize is called once, after every scenario has finished (or the
	// run has failed), to flush any buffered output.
	Finalize() error
}

// pushRecorders evaluates every declared MetricSet against this step's
// (now solved) context and forwards the results to every registered
// Recorder.
func (e *Engine) pushRecorders(st *ScenarioState, ts calendar.Timestep, ec *evalContext) error {
	if len(e.Recorders) == 0 {
		return nil
	}
	for _, ms := range e.Model.MetricSets {
		values := make(map[string]float64, len(ms.Metrics))
		for _, nm := range ms.Metrics {
			v, err := ec.Metric(nm.Metric)
			if err != nil {
				return err
			}
			values[nm.Name] = v
		}
		for _, r := range e.Recorders {
			if err := r.Record(st.Scenario, ts, ms.Name, values); err != nil {
				return err
			}
		}
	}
	return nil
}
