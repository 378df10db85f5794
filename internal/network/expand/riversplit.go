package expand

import (
	"fmt"
	"sort"

	"pywr/internal/apperror"
	"pywr/internal/lp"
	"pywr/internal/network"
)

// expandRiverSplit fixes the ratio between outgoing slot flows: each slot's
// column must equal Factor*Σinflow, realised as one equality row per slot.
// Slots are matched to outbound edges by Edge.FromSlot.
func expandRiverSplit(e *Expansion, n network.Node, in, out []network.Edge, edgeCols map[int]int) error {
	cfg, ok := n.Config.(network.RiverSplitConfig)
	if !ok {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: expected RiverSplitConfig", n.Name))
	}
	if len(cfg.Slots) == 0 {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: RiverSplit has no slots", n.Name))
	}

	inCols := colIDs(in, edgeCols)
	for _, c := range inCols {
		e.bindColumnBounds(c, network.ParamRef{}, network.ParamRef{}, cfg.Cost)
	}

	bySlot := make(map[network.Slot][]int, len(cfg.Slots))
	for _, ed := range out {
		bySlot[ed.FromSlot] = append(bySlot[ed.FromSlot], edgeCols[ed.ID])
	}

	var allOutCols []int
	for _, slot := range cfg.Slots {
		cols := bySlot[slot.Slot]
		sort.Ints(cols)
		if len(cols) == 0 {
			return apperror.New(apperror.CodeBuildError, fmt.Sprintf("river split %q: slot %q has no outgoing edge", n.Name, slot.Slot))
		}
		for _, c := range cols {
			e.bindColumnBounds(c, network.ParamRef{}, network.ParamRef{}, network.ParamRef{})
		}
		allOutCols = append(allOutCols, cols...)

		// Σslot_cols - Factor*Σin_cols = 0
		row := lp.Row{Name: fmt.Sprintf("rs_ratio[%s/%s]", n.Name, slot.Slot), Kind: lp.Equality, Coeffs: make(map[int]float64)}
		for _, c := range cols {
			row.Coeffs[c] += 1
		}
		for _, c := range inCols {
			row.Coeffs[c] -= slot.Factor.Constant
		}
		rowID := e.Problem.AddRow(row)
		if slot.Factor.IsSet() {
			// The dynamic part of this row is a coefficient (on inCols), not a
			// bound, so it rides the same refresh mechanism as a loss factor
			// rather than RowDriver (which only ever refreshes row bounds).
			e.LossFactors = append(e.LossFactors, LossFactorBinding{RowID: rowID, BasisCols: inCols, FactorName: slot.Factor.Name})
		}
	}

	e.massBalanceRow(fmt.Sprintf("balance[%s]", n.Name), inCols, allOutCols)

	acc := e.accessor(n.ID)
	acc.InflowCols = inCols
	acc.OutflowCols = allOutCols
	return nil
}

// expandRiver is sugar over Link, with an optional loss fraction (a
// constant or a named parameter) folded straight into an
// outflow = (1-LossFactor)*inflow equality row instead of LossLink's
// separate loss column: River carries no loss metric.
func expandRiver(e *Expansion, n network.Node, in, out []network.Edge, edgeCols map[int]int) error {
	cfg, ok := n.Config.(network.RiverConfig)
	if !ok {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: expected RiverConfig", n.Name))
	}
	inCols := colIDs(in, edgeCols)
	outCols := colIDs(out, edgeCols)
	for _, c := range outCols {
		e.bindColumnBounds(c, cfg.MaxFlow, network.ParamRef{}, cfg.Cost)
	}

	if cfg.LossFactor.Constant == 0 && !cfg.LossFactor.IsSet() {
		if len(inCols) > 0 && len(outCols) > 0 {
			e.massBalanceRow(fmt.Sprintf("balance[%s]", n.Name), inCols, outCols)
		}
	} else {
		// outflow - (1-loss)*inflow = 0
		row := lp.Row{Name: fmt.Sprintf("river_loss[%s]", n.Name), Kind: lp.Equality, Coeffs: make(map[int]float64)}
		for _, c := range outCols {
			row.Coeffs[c] += 1
		}
		for _, c := range inCols {
			row.Coeffs[c] -= 1 - cfg.LossFactor.Constant
		}
		rowID := e.Problem.AddRow(row)
		if cfg.LossFactor.IsSet() {
			// This row's inCols coefficient is factor-1, not -factor, so it
			// needs the complementary refresh formula rather than the one
			// loss_factor/rs_ratio rows use.
			e.LossFactors = append(e.LossFactors, LossFactorBinding{RowID: rowID, BasisCols: inCols, FactorName: cfg.LossFactor.Name, Form: FormComplement})
		}
	}

	acc := e.accessor(n.ID)
	acc.InflowCols = inCols
	acc.OutflowCols = outCols
	return nil
}

// expandReservoir is sugar over Storage with an optional Compensation
// parameter: a minimum release enforced on the outflow columns independent
// of downstream demand.
func expandReservoir(e *Expansion, n network.Node, in, out []network.Edge, edgeCols map[int]int) error {
	cfg, ok := n.Config.(network.ReservoirConfig)
	if !ok {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: expected ReservoirConfig", n.Name))
	}
	inCols := colIDs(in, edgeCols)
	outCols := colIDs(out, edgeCols)
	for _, c := range inCols {
		e.bindColumnBounds(c, network.ParamRef{}, network.ParamRef{}, network.ParamRef{})
	}
	for _, c := range outCols {
		e.bindColumnBounds(c, network.ParamRef{}, cfg.Compensation, cfg.Cost)
	}

	row := lp.Row{Name: fmt.Sprintf("storage_cap[%s]", n.Name), Kind: lp.Inequality, Lower: 0, Upper: posInf, Coeffs: make(map[int]float64)}
	for _, c := range outCols {
		row.Coeffs[c] = 1
	}
	rowID := e.Problem.AddRow(row)

	acc := e.accessor(n.ID)
	acc.InflowCols = inCols
	acc.OutflowCols = outCols
	acc.IsStorage = true
	acc.VolumeRow = rowID

	e.StorageBindings[n.ID] = &StorageBinding{
		RowID:     rowID,
		OutCols:   outCols,
		MaxVolume: cfg.MaxVolume,
		Initial:   cfg.Initial,
	}
	return nil
}
