package simulator

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/calendar"
	"pywr/internal/lp"
	"pywr/internal/network/expand"
)

// initStorageVolumes resolves every storage-like node's initial volume
// against max_volume(0), the first time the storage state machine runs
// for a scenario.
func (e *Engine) initStorageVolumes(st *ScenarioState, ts calendar.Timestep, ec *evalContext) error {
	for nodeID, b := range e.Expansion.StorageBindings {
		maxVol, err := ec.resolveParamRef(b.MaxVolume)
		if err != nil {
			return err
		}
		var v float64
		if b.Initial.IsProportional {
			v = b.Initial.Proportional * maxVol
		} else {
			v = b.Initial.Absolute
		}
		st.volumes[nodeID] = v
	}
	return nil
}

// applyStorageBounds refreshes each storage-like node's capacity row(s) from
// its volume at the start of this step. Plain Storage/Reservoir gets one
// row bounding outflow to what's available above MinVolume(t);
// PiecewiseStorage instead bounds each slice row to the band of volume that
// currently sits inside that slice, and re-prices the shared outflow
// columns at the topmost slice with any volume left in it — the LP has one
// physical outflow per node rather than one per slice, so the "active
// slice's cost" is an approximation of true per-slice pricing.
func (e *Engine) applyStorageBounds(st *ScenarioState, ts calendar.Timestep, ec *evalContext, upd *lp.Update) error {
	days := float64(ts.Days)
	if days <= 0 {
		days = 1
	}
	for nodeID, b := range e.Expansion.StorageBindings {
		cur := st.volumes[nodeID]
		if len(b.SliceRows) == 0 {
			minVol, err := ec.resolveParamRef(b.MinVolume)
			if err != nil {
				return err
			}
			remaining := cur - minVol
			if remaining < 0 {
				remaining = 0
			}
			upd.SetRowBounds(b.RowID, 0, remaining/days)
			continue
		}
		if err := e.applyPiecewiseStorageBounds(ec, b, cur, days, upd); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyPiecewiseStorageBounds(ec *evalContext, b *expand.StorageBinding, cur, days float64, upd *lp.Update) error {
	n := len(b.Slices)
	maxVol, err := ec.resolveParamRef(b.MaxVolume)
	if err != nil {
		return err
	}

	// upperFrac[i] is slice i's own control curve: slices stack top to
	// bottom, so each slice's lower edge is the next slice's upper edge and
	// the last slice reaches down to empty.
	upperFrac := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := ec.resolveParamRef(b.Slices[i].ControlCurve)
		if err != nil {
			return err
		}
		upperFrac[i] = v
	}
	lowerFrac := make([]float64, n)
	for i := 0; i < n-1; i++ {
		lowerFrac[i] = upperFrac[i+1]
	}
	lowerFrac[n-1] = 0

	active := n - 1
	for i := 0; i < n; i++ {
		lo := maxVol * lowerFrac[i]
		hi := maxVol * upperFrac[i]
		avail := cur
		if avail > hi {
			avail = hi
		}
		avail -= lo
		if avail < 0 {
			avail = 0
		}
		upd.SetRowBounds(b.SliceRows[i], 0, avail/days)
		if avail > 1e-9 && i < active {
			active = i
		}
	}

	cost, err := ec.resolveParamRef(b.Slices[active].Cost)
	if err != nil {
		return err
	}
	for _, c := range b.OutCols {
		upd.SetCost(c, cost)
	}
	return nil
}

// updateStorageVolumes applies the post-solve state machine: vol_t =
// clamp(vol_{t-1} + (inflow-outflow)*Δt, min_volume(t), max_volume(t)), with
// a tolerance of 1e-6*max_vol before the clamp is treated as absorbing LP
// slack rather than a sign of numerical divergence.
func (e *Engine) updateStorageVolumes(st *ScenarioState, ts calendar.Timestep, ec *evalContext) error {
	days := float64(ts.Days)
	for nodeID, b := range e.Expansion.StorageBindings {
		acc := e.Expansion.Accessors[nodeID]
		var inflow, outflow float64
		for _, c := range acc.InflowCols {
			inflow += st.flowValues[c]
		}
		for _, c := range acc.OutflowCols {
			outflow += st.flowValues[c]
		}

		maxVol, err := ec.resolveParamRef(b.MaxVolume)
		if err != nil {
			return err
		}
		minVol, err := ec.resolveParamRef(b.MinVolume)
		if err != nil {
			return err
		}

		newVol := st.volumes[nodeID] + (inflow-outflow)*days
		tol := 1e-6 * maxVol
		if newVol < minVol-tol || newVol > maxVol+tol {
			return storageClampError(e, nodeID, ts, st.Scenario.Global, newVol, minVol, maxVol)
		}
		if newVol < minVol {
			newVol = minVol
		}
		if newVol > maxVol {
			newVol = maxVol
		}
		st.volumes[nodeID] = newVol
	}
	return nil
}

func storageClampError(e *Engine, nodeID int, ts calendar.Timestep, scenarioGlobal int, newVol, minVol, maxVol float64) error {
	name := fmt.Sprintf("node[%d]", nodeID)
	if nodeID >= 0 && nodeID < len(e.Model.Nodes) {
		name = e.Model.Nodes[nodeID].Name
	}
	return apperror.New(apperror.CodeStateError, fmt.Sprintf(
		"storage %q volume %.6g outside [%.6g, %.6g] beyond clamp tolerance", name, newVol, minVol, maxVol)).
		WithLocation("simulator", name, scenarioGlobal, ts.Index)
}
