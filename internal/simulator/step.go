package simulator

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/calendar"
	"pywr/internal/lp"
	"pywr/internal/network/expand"
	"pywr/internal/solver"
)

// stepScenario advances one scenario by exactly one timestep, in order:
// const/simple/general-before evaluation, LP refresh, solve, state-machine
// advance, general-after evaluation, After hooks, then recorder push.
func (e *Engine) stepScenario(st *ScenarioState, ts calendar.Timestep) error {
	st.arena.BeginTimestep()
	if !st.initialized {
		st.prevVolumes = make(map[int]float64, len(st.volumes))
	} else {
		for k := range st.prevVolumes {
			delete(st.prevVolumes, k)
		}
		for k, v := range st.volumes {
			st.prevVolumes[k] = v
		}
	}
	st.prevFlowValues = st.flowValues

	ec := &evalContext{engine: e, state: st, ts: ts, solved: false}

	// Const parameters are cheap and side-effect-free, so re-evaluating
	// them every step (rather than special-casing "only at model start")
	// costs nothing and keeps Arena's per-step cache-clear uniform across
	// every tier.
	for _, name := range e.Resolution.ConstOrder {
		if _, err := st.arena.Evaluate(name, ts, ec); err != nil {
			return err
		}
	}
	for _, name := range e.Resolution.SimpleOrder {
		if _, err := st.arena.Evaluate(name, ts, ec); err != nil {
			return err
		}
	}
	for _, name := range e.GeneralBeforeOrder {
		if _, err := st.arena.Evaluate(name, ts, ec); err != nil {
			return err
		}
	}

	if !st.initialized {
		if err := e.initStorageVolumes(st, ts, ec); err != nil {
			return err
		}
		if err := e.initVirtualStorage(ec); err != nil {
			return err
		}
		st.initialized = true
	}

	upd := lp.NewUpdate()
	if err := e.applyColumnDrivers(st, ts, ec, upd); err != nil {
		return err
	}
	if err := e.applyRowDrivers(ts, ec, upd); err != nil {
		return err
	}
	if err := e.applyLossFactors(ts, ec, upd); err != nil {
		return err
	}
	if err := e.applyStorageBounds(st, ts, ec, upd); err != nil {
		return err
	}
	if err := e.applyVirtualStorageBounds(st, ts, ec, upd); err != nil {
		return err
	}
	e.applyDelayBounds(st, upd)

	if err := e.Solver.Update(st.handle, upd); err != nil {
		return apperror.Wrap(err, apperror.CodeSolveError, "lp update failed").
			WithLocation("simulator", "", st.Scenario.Global, ts.Index)
	}

	res, err := e.solveOne(st)
	if err != nil {
		return err
	}
	st.flowValues = res.Values
	ec.solved = true

	if err := e.updateStorageVolumes(st, ts, ec); err != nil {
		return err
	}
	e.advanceDelays(st)
	e.advanceVirtualStorage(st, ts)

	for _, name := range e.GeneralAfterOrder {
		if _, err := st.arena.Evaluate(name, ts, ec); err != nil {
			return err
		}
	}
	for _, order := range [][]string{e.Resolution.ConstOrder, e.Resolution.SimpleOrder, e.Resolution.GeneralOrder} {
		for _, name := range order {
			if err := st.arena.After(name, ts, ec); err != nil {
				return err
			}
		}
	}

	return e.pushRecorders(st, ts, ec)
}

func (e *Engine) solveOne(st *ScenarioState) (*solver.Result, error) {
	var res *solver.Result
	var err error
	if len(e.IntegerCols) > 0 {
		isolver, ok := e.Solver.(solver.IntegerSolver)
		if !ok {
			return nil, apperror.New(apperror.CodeBuildError, "model requires integer columns but solver is not an IntegerSolver")
		}
		res, err = isolver.SolveInteger(st.handle, e.IntegerCols, e.Options)
	} else {
		res, err = e.Solver.Solve(st.handle, e.Options)
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeSolveError, "lp solve failed").
			WithLocation("simulator", "", st.Scenario.Global, -1)
	}
	if res.Status != solver.StatusOptimal {
		return nil, apperror.New(apperror.CodeSolveError, fmt.Sprintf("lp solve did not reach optimality: %s", res.Status)).
			WithDetails("status", res.Status.String()).
			WithLocation("simulator", "", st.Scenario.Global, -1)
	}
	return res, nil
}

// applyColumnDrivers refreshes every column whose cost/min/max flow is
// driven by a named parameter. The non-dynamic half of a partially-dynamic
// column's bounds is read back from the built Problem, which never changes
// after Expand — only Update deltas are sent to the solver handle.
func (e *Engine) applyColumnDrivers(st *ScenarioState, ts calendar.Timestep, ec *evalContext, upd *lp.Update) error {
	for _, d := range e.Expansion.ColumnDrivers {
		col := e.Expansion.Problem.Columns[d.ColumnID]
		lower, upper := col.Lower, col.Upper
		if d.MinFlowParam != "" {
			v, err := st.arena.Evaluate(d.MinFlowParam, ts, ec)
			if err != nil {
				return err
			}
			lower = v
		}
		if d.MaxFlowParam != "" {
			v, err := st.arena.Evaluate(d.MaxFlowParam, ts, ec)
			if err != nil {
				return err
			}
			upper = v
		}
		if d.MinFlowParam != "" || d.MaxFlowParam != "" {
			upd.SetColumnBounds(d.ColumnID, lower, upper)
		}
		if d.CostParam != "" {
			v, err := st.arena.Evaluate(d.CostParam, ts, ec)
			if err != nil {
				return err
			}
			upd.SetCost(d.ColumnID, v)
		}
	}
	return nil
}

func (e *Engine) applyRowDrivers(ts calendar.Timestep, ec *evalContext, upd *lp.Update) error {
	for _, d := range e.Expansion.RowDrivers {
		row := e.Expansion.Problem.Rows[d.RowID]
		lower, upper := row.Lower, row.Upper
		if d.MinParam != "" {
			v, err := ec.state.arena.Evaluate(d.MinParam, ts, ec)
			if err != nil {
				return err
			}
			lower = v
		}
		if d.MaxParam != "" {
			v, err := ec.state.arena.Evaluate(d.MaxParam, ts, ec)
			if err != nil {
				return err
			}
			upper = v
		}
		if d.MinParam != "" || d.MaxParam != "" {
			upd.SetRowBounds(d.RowID, lower, upper)
		}
	}
	return nil
}

// applyLossFactors refreshes the basis-column coefficients of every row
// whose loss/split factor is a named parameter, choosing the coefficient
// formula the row's Form requires (internal/network/expand's
// LossFactorForm: FormDirect for loss_factor/rs_ratio rows, FormComplement
// for River's optional loss row).
func (e *Engine) applyLossFactors(ts calendar.Timestep, ec *evalContext, upd *lp.Update) error {
	for _, d := range e.Expansion.LossFactors {
		v, err := ec.state.arena.Evaluate(d.FactorName, ts, ec)
		if err != nil {
			return err
		}
		coeff := -v
		if d.Form == expand.FormComplement {
			coeff = v - 1
		}
		for _, c := range d.BasisCols {
			upd.SetCoeff(d.RowID, c, coeff)
		}
	}
	return nil
}

func (e *Engine) applyDelayBounds(st *ScenarioState, upd *lp.Update) {
	for nodeID, b := range e.Expansion.Delays {
		front := st.delays[nodeID].front()
		for _, c := range b.OutflowCols {
			upd.SetColumnBounds(c, front, front)
		}
	}
}
