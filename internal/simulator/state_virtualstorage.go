package simulator

import (
	"pywr/internal/calendar"
	"pywr/internal/lp"
)

// initVirtualStorage seeds every virtual-storage node's remaining-capacity
// tracker. Plain VirtualStorage resolves its InitialVolume against
// max_volume(0), the same as a real Storage node; RollingVirtualStorage
// carries no Initial concept in its declaration (the window starts empty,
// full capacity available) so its tracker is left at zero debit.
func (e *Engine) initVirtualStorage(ec *evalContext) error {
	st := ec.state
	for nodeID, b := range e.Expansion.VirtualStorage {
		if b.Rolling {
			continue
		}
		maxVol, err := ec.resolveParamRef(b.MaxVolume)
		if err != nil {
			return err
		}
		var initVol float64
		if b.Initial.IsProportional {
			initVol = b.Initial.Proportional * maxVol
		} else {
			initVol = b.Initial.Absolute
		}
		debited := maxVol - initVol
		if debited < 0 {
			debited = 0
		}
		st.vstorage[nodeID].debited = debited
	}
	return nil
}

// applyVirtualStorageBounds refreshes each virtual-storage row's upper
// bound from its tracker's remaining capacity.
func (e *Engine) applyVirtualStorageBounds(st *ScenarioState, ts calendar.Timestep, ec *evalContext, upd *lp.Update) error {
	days := float64(ts.Days)
	if days <= 0 {
		days = 1
	}
	for nodeID, b := range e.Expansion.VirtualStorage {
		maxVol, err := ec.resolveParamRef(b.MaxVolume)
		if err != nil {
			return err
		}
		remaining := st.vstorage[nodeID].remaining(maxVol)
		upd.SetRowBounds(b.RowID, -posInfSim, remaining/days)
	}
	return nil
}

// advanceVirtualStorage folds this step's realised, factor-weighted,
// Δt-scaled use into every virtual-storage tracker.
func (e *Engine) advanceVirtualStorage(st *ScenarioState, ts calendar.Timestep) {
	days := float64(ts.Days)
	for nodeID, b := range e.Expansion.VirtualStorage {
		var use float64
		for _, mc := range b.Members {
			use += st.flowValues[mc.ColumnID] * mc.Factor
		}
		use *= days
		st.vstorage[nodeID].debit(use)
	}
}

const posInfSim = 1e18
