package simulator

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/calendar"
	"pywr/internal/network"
	"pywr/internal/params"
)

// evalContext is the per-step params.EvalContext a Family's Compute/After
// methods see. It is rebuilt (cheaply — it's a handful of pointers and a
// bool) once per timestep per scenario and handed to every parameter
// evaluation that step, so every Family observes the same "is the LP solved
// yet" gate.
type evalContext struct {
	engine *Engine
	state  *ScenarioState
	ts     calendar.Timestep
	solved bool
}

var _ params.EvalContext = (*evalContext)(nil)

// Metric resolves one declarative Metric reference against this step's
// state. NodeInflow/Outflow/Loss and EdgeFlow are only meaningful once the
// LP has been solved this step; NodeVolume is always available, since it
// reflects committed state carried over from the previous step (or, on the
// very first step, the resolved initial volume) rather than anything the
// solve itself produces.
func (ec *evalContext) Metric(m network.Metric) (float64, error) {
	switch m.Kind {
	case network.MetricConstant:
		return m.Constant, nil

	case network.MetricNodeVolume:
		return ec.nodeVolumeFraction(m.NodeName)

	case network.MetricNodeInflow, network.MetricNodeOutflow, network.MetricNodeLoss:
		if !ec.solved {
			return 0, ec.stateErr(m)
		}
		return ec.nodeFlow(m, ec.state.flowValues)

	case network.MetricEdgeFlow:
		if !ec.solved {
			return 0, ec.stateErr(m)
		}
		col, ok := ec.engine.Expansion.EdgeColumn[m.EdgeID]
		if !ok {
			return 0, apperror.New(apperror.CodeDataError, fmt.Sprintf("edge %d has no LP column", m.EdgeID))
		}
		return ec.state.flowValues[col], nil

	case network.MetricParameterValue:
		return ec.state.arena.Evaluate(m.ParameterName, ec.ts, ec)

	case network.MetricAggregated:
		return ec.aggregate(m, func(op network.Metric) (float64, error) { return ec.Metric(op) })

	case network.MetricTimeseries:
		row := m.TimeseriesRow
		if row < 0 {
			row = 0
		}
		return ec.engine.Tables.Value(m.TimeseriesTable, m.TimeseriesColumn, ec.ts, row)
	}
	return 0, apperror.New(apperror.CodeBuildError, fmt.Sprintf("unknown metric kind %v", m.Kind))
}

func (ec *evalContext) stateErr(m network.Metric) error {
	return apperror.New(apperror.CodeStateError, fmt.Sprintf("metric %v on %q read before this timestep's LP solve", m.Kind, m.NodeName)).
		WithLocation("simulator", m.NodeName, ec.state.Scenario.Global, ec.ts.Index)
}

// PreviousMetricValue returns the same metric's value as of the previous
// timestep. There is no previous timestep at index 0 — the first timestep
// uses initial volumes, not a fictitious t-1 — so every case reports
// ok=false there.
func (ec *evalContext) PreviousMetricValue(m network.Metric) (float64, bool) {
	if ec.ts.Index == 0 {
		return 0, false
	}
	switch m.Kind {
	case network.MetricConstant:
		return m.Constant, true

	case network.MetricNodeVolume:
		id := ec.engine.Model.NodeID(m.NodeName)
		if id < 0 {
			return 0, false
		}
		b, ok := ec.engine.Expansion.StorageBindings[id]
		if !ok {
			return 0, false
		}
		maxVol, err := ec.resolveParamRef(b.MaxVolume)
		if err != nil || maxVol <= 0 {
			return 0, false
		}
		v, ok := ec.state.prevVolumes[id]
		if !ok {
			return 0, false
		}
		return v / maxVol, true

	case network.MetricNodeInflow, network.MetricNodeOutflow, network.MetricNodeLoss:
		if ec.state.prevFlowValues == nil {
			return 0, false
		}
		v, err := ec.nodeFlow(m, ec.state.prevFlowValues)
		if err != nil {
			return 0, false
		}
		return v, true

	case network.MetricEdgeFlow:
		if ec.state.prevFlowValues == nil {
			return 0, false
		}
		col, ok := ec.engine.Expansion.EdgeColumn[m.EdgeID]
		if !ok {
			return 0, false
		}
		return ec.state.prevFlowValues[col], true

	case network.MetricParameterValue:
		return ec.state.arena.PreviousValue(m.ParameterName)

	case network.MetricAggregated:
		return ec.previousAggregate(m)

	case network.MetricTimeseries:
		row := m.TimeseriesRow
		if row < 0 {
			row = 0
		}
		v, err := ec.engine.Tables.Value(m.TimeseriesTable, m.TimeseriesColumn, ec.ts, row-1)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func (ec *evalContext) previousAggregate(m network.Metric) (float64, bool) {
	if len(m.Operands) == 0 {
		return 0, false
	}
	vals := make([]float64, 0, len(m.Operands))
	for _, op := range m.Operands {
		v, ok := ec.PreviousMetricValue(op)
		if !ok {
			return 0, false
		}
		vals = append(vals, v)
	}
	return reduceAggregate(m.AggregateOp, vals), true
}

func (ec *evalContext) aggregate(m network.Metric, eval func(network.Metric) (float64, error)) (float64, error) {
	if len(m.Operands) == 0 {
		return 0, apperror.New(apperror.CodeBuildError, "aggregated metric has no operands")
	}
	vals := make([]float64, len(m.Operands))
	for i, op := range m.Operands {
		v, err := eval(op)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	return reduceAggregate(m.AggregateOp, vals), nil
}

func reduceAggregate(op network.AggregateOp, vals []float64) float64 {
	switch op {
	case network.AggSum:
		var s float64
		for _, v := range vals {
			s += v
		}
		return s
	case network.AggProduct:
		p := 1.0
		for _, v := range vals {
			p *= v
		}
		return p
	case network.AggMin:
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case network.AggMax:
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case network.AggMean:
		var s float64
		for _, v := range vals {
			s += v
		}
		return s / float64(len(vals))
	}
	return 0
}

func (ec *evalContext) nodeFlow(m network.Metric, values []float64) (float64, error) {
	id := ec.engine.Model.NodeID(m.NodeName)
	if id < 0 {
		return 0, apperror.New(apperror.CodeDataError, "node not found: "+m.NodeName)
	}
	acc, ok := ec.engine.Expansion.Accessors[id]
	if !ok {
		return 0, apperror.New(apperror.CodeDataError, "node has no accessor: "+m.NodeName)
	}
	var cols []int
	switch m.Kind {
	case network.MetricNodeInflow:
		cols = acc.InflowCols
	case network.MetricNodeOutflow:
		cols = acc.OutflowCols
	case network.MetricNodeLoss:
		cols = acc.LossCols
	}
	var sum float64
	for _, c := range cols {
		sum += values[c]
	}
	return sum, nil
}

func (ec *evalContext) nodeVolumeFraction(nodeName string) (float64, error) {
	id := ec.engine.Model.NodeID(nodeName)
	if id < 0 {
		return 0, apperror.New(apperror.CodeDataError, "node not found: "+nodeName)
	}
	b, ok := ec.engine.Expansion.StorageBindings[id]
	if !ok {
		return 0, apperror.New(apperror.CodeBuildError, "node is not storage-like: "+nodeName)
	}
	maxVol, err := ec.resolveParamRef(b.MaxVolume)
	if err != nil {
		return 0, err
	}
	if maxVol <= 0 {
		return 0, nil
	}
	return ec.state.volumes[id] / maxVol, nil
}

// resolveParamRef evaluates a ParamRef's current value: its Constant if it
// names no parameter, else the named parameter's value this timestep
// (transparently cached by Arena.Evaluate — whichever tier already ran this
// step, or, if called out of declared order, computed defensively now).
func (ec *evalContext) resolveParamRef(ref network.ParamRef) (float64, error) {
	if !ref.IsSet() {
		return ref.Constant, nil
	}
	return ec.state.arena.Evaluate(ref.Name, ec.ts, ec)
}

// ParamValue looks up a named parameter directly, the same way Metric does
// for a MetricParameterValue reference.
func (ec *evalContext) ParamValue(name string) (float64, error) {
	return ec.state.arena.Evaluate(name, ec.ts, ec)
}

// PreviousParamValue returns a named parameter's value from the prior
// timestep.
func (ec *evalContext) PreviousParamValue(name string) (float64, bool) {
	return ec.state.arena.PreviousValue(name)
}

// Table reads one value out of a loaded table, with Calendar-index
// alignment handled by the tables package.
func (ec *evalContext) Table(table, column string, rowOffset int) (float64, error) {
	return ec.engine.Tables.Value(table, column, ec.ts, rowOffset)
}

// External resolves a registered Callable by name, scoped to this scenario.
func (ec *evalContext) External(name string) (params.Callable, error) {
	c, ok := ec.state.externals[name]
	if !ok {
		return nil, apperror.New(apperror.CodeDataError, "no external registered: "+name)
	}
	return c, nil
}
