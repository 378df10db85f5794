// Package simulator runs a resolved, expanded network.Model one timestep at
// a time: refresh the LP from this step's parameter values, solve, write the
// flows back into storage/delay/virtual-storage state, then let the
// general-tier parameters react to what was solved. One
// Engine is built once per model; it owns the read-only Resolution and
// Expansion every scenario worker shares, and hands out a fresh, independent
// ScenarioState (Arena, solver Handle, state machines) per scenario.
package simulator

import (
	"errors"

	"pywr/internal/apperror"
	"pywr/internal/lp"
	"pywr/internal/network"
	"pywr/internal/network/expand"
	"pywr/internal/params"
	"pywr/internal/resolver"
	"pywr/internal/solver"
	"pywr/internal/tables"
)

// Engine is the immutable, shared-across-scenarios half of a simulation run.
type Engine struct {
	Model      *network.Model
	Expansion  *expand.Expansion
	Resolution *resolver.Resolution
	Tables     *tables.Store

	Solver      solver.Solver
	Options     *solver.Options
	IntegerCols []int

	// GeneralBeforeOrder/GeneralAfterOrder split resolver.Resolution's
	// single GeneralOrder into the two half-steps run on either side of
	// the LP solve: a general parameter only needs to wait for the solve
	// if it (transitively) depends on a flow/loss metric that the solve
	// itself produces.
	GeneralBeforeOrder []string
	GeneralAfterOrder  []string

	Recorders []Recorder

	externalFactories map[string]func() params.Callable
}

// New builds an Engine from a validated, resolved model: it runs the
// resolver and expander itself so callers never have to sequence those two
// passes correctly.
func New(m *network.Model, store *tables.Store, opts *solver.Options) (*Engine, error) {
	if errs := m.Validate(); len(errs) > 0 {
		ve := apperror.NewValidationErrors()
		for _, err := range errs {
			var ae *apperror.Error
			if errors.As(err, &ae) {
				ve.Add(ae)
			} else {
				ve.AddError(apperror.CodeSchemaError, err.Error())
			}
		}
		return nil, ve
	}

	res, err := resolver.Resolve(m)
	if err != nil {
		return nil, err
	}
	exp, err := expand.Expand(m)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = solver.DefaultOptions()
	}

	var integerCols []int
	for _, c := range exp.Problem.Columns {
		if c.Kind == lp.Binary {
			integerCols = append(integerCols, c.ID)
		}
	}

	var sv solver.Solver
	if len(integerCols) > 0 {
		sv = solver.NewMILPSolver()
	} else {
		sv = solver.NewSimplexSolver()
	}

	e := &Engine{
		Model:             m,
		Expansion:         exp,
		Resolution:        res,
		Tables:            store,
		Solver:            sv,
		Options:           opts,
		IntegerCols:       integerCols,
		externalFactories: make(map[string]func() params.Callable),
	}
	e.GeneralBeforeOrder, e.GeneralAfterOrder = splitGeneralOrder(m, exp, res)
	return e, nil
}

// RegisterExternal binds a name an ExternalParamConfig can reference to a
// factory that produces one Callable per scenario: external code hooks get
// exactly one instance per scenario, never shared, so a hook that keeps
// state can't see another scenario's values. Call before running any
// scenario.
func (e *Engine) RegisterExternal(name string, factory func() params.Callable) {
	e.externalFactories[name] = factory
}

// AddRecorder registers a sink that receives every MetricSet's values after
// each timestep solves. Call before running any scenario.
func (e *Engine) AddRecorder(r Recorder) {
	e.Recorders = append(e.Recorders, r)
}

// splitGeneralOrder partitions the general tier into the subset that must
// be evaluated before the LP solve (because nothing downstream of it needs
// a flow metric) and the subset that must wait until after (because it, or
// something it transitively depends on, reads a Node Inflow/Outflow/Loss or
// Edge Flow metric — none of which exist until the solve produces them).
// resolver.Resolve already computed this exact dependency graph internally
// (its unexported paramDeps) to classify parameters in the first place; we
// walk the same Metric shape again here, locally, rather than exporting that
// internal to this package.
func splitGeneralOrder(m *network.Model, exp *expand.Expansion, res *resolver.Resolution) (before, after []string) {
	needsAfter := make(map[string]bool)
	consider := func(name string) {
		if name != "" && res.ClassOf(name) == resolver.ClassGeneral {
			needsAfter[name] = true
		}
	}
	for _, d := range exp.ColumnDrivers {
		consider(d.CostParam)
		consider(d.MaxFlowParam)
		consider(d.MinFlowParam)
	}
	for _, d := range exp.RowDrivers {
		consider(d.MaxParam)
		consider(d.MinParam)
	}
	for _, d := range exp.LossFactors {
		consider(d.FactorName)
	}
	for _, b := range exp.StorageBindings {
		consider(b.MaxVolume.Name)
		consider(b.MinVolume.Name)
		for _, sl := range b.Slices {
			consider(sl.ControlCurve.Name)
			consider(sl.Cost.Name)
		}
	}
	for _, b := range exp.VirtualStorage {
		consider(b.MaxVolume.Name)
	}
	for _, d := range exp.Delays {
		consider(d.Cost.Name)
	}
	// Any parameter that itself reads a flow/loss metric needs the solve
	// too, regardless of whether anything feeds an LP coefficient from it.
	for _, p := range m.Parameters {
		if usesFlowMetric(p.Metrics) {
			needsAfter[p.Name] = true
		}
	}

	// Fixpoint: anything a needsAfter parameter depends on, that is itself
	// General, also needs to wait (its value must be fresh before the
	// dependent can compute).
	changed := true
	for changed {
		changed = false
		names := make([]string, 0, len(needsAfter))
		for name := range needsAfter {
			names = append(names, name)
		}
		for _, name := range names {
			p, ok := m.ParameterByName(name)
			if !ok {
				continue
			}
			for _, dep := range paramDependencyNames(p.Metrics) {
				if res.ClassOf(dep) == resolver.ClassGeneral && !needsAfter[dep] {
					needsAfter[dep] = true
					changed = true
				}
			}
		}
	}

	for _, name := range res.GeneralOrder {
		if needsAfter[name] {
			after = append(after, name)
		} else {
			before = append(before, name)
		}
	}
	return before, after
}

// paramDependencyNames flattens the named-parameter references a metric
// tree (a parameter's own Metrics, or an Aggregated metric's operands) is
// built from.
func paramDependencyNames(metrics []network.Metric) []string {
	var out []string
	var walk func([]network.Metric)
	walk = func(ms []network.Metric) {
		for _, mt := range ms {
			switch mt.Kind {
			case network.MetricParameterValue:
				out = append(out, mt.ParameterName)
			case network.MetricAggregated:
				walk(mt.Operands)
			}
		}
	}
	walk(metrics)
	return out
}

// usesFlowMetric reports whether a metric tree directly or transitively
// (through Aggregated operands) reads a node/edge flow metric — the signal
// that forces "general-after" classification, since those metrics don't
// exist until the LP solve produces them.
func usesFlowMetric(metrics []network.Metric) bool {
	for _, mt := range metrics {
		switch mt.Kind {
		case network.MetricNodeInflow, network.MetricNodeOutflow, network.MetricNodeLoss, network.MetricEdgeFlow:
			return true
		case network.MetricAggregated:
			if usesFlowMetric(mt.Operands) {
				return true
			}
		}
	}
	return false
}
