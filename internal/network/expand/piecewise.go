package expand

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/lp"
	"pywr/internal/network"
)

// expandPiecewiseLink realises k parallel internal columns (one per step)
// between the node's inbound and outbound edge sets, each with its own
// cost/max_flow. Two mass-balance rows couple the real edges to the
// tranche columns: inbound = Σtranches, Σtranches = outbound.
func expandPiecewiseLink(e *Expansion, n network.Node, in, out []network.Edge, edgeCols map[int]int) error {
	cfg, ok := n.Config.(network.PiecewiseLinkConfig)
	if !ok {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: expected PiecewiseLinkConfig", n.Name))
	}
	if len(cfg.Steps) == 0 {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: PiecewiseLink has no steps", n.Name))
	}

	inCols := colIDs(in, edgeCols)
	outCols := colIDs(out, edgeCols)

	tranches := make([]int, len(cfg.Steps))
	for i, step := range cfg.Steps {
		col := e.Problem.AddColumn(lp.Column{Name: fmt.Sprintf("%s/step%d", n.Name, i)})
		e.bindColumnBounds(col, step.MaxFlow, network.ParamRef{}, step.Cost)
		tranches[i] = col
	}

	if len(inCols) > 0 {
		e.massBalanceRow(fmt.Sprintf("pwl_in[%s]", n.Name), inCols, tranches)
	}
	if len(outCols) > 0 {
		e.massBalanceRow(fmt.Sprintf("pwl_out[%s]", n.Name), tranches, outCols)
	}

	acc := e.accessor(n.ID)
	acc.InflowCols = inCols
	acc.OutflowCols = outCols
	return nil
}

// expandPiecewiseStorage realises k stacked storage slices: one capacity
// row per slice, each bounded by MaxVolume*ControlCurve(t) and carrying its
// own cost while drawn. The node's volume is a single total that the
// simulator tracks from its inflow and outflow columns, same as plain
// Storage.
func expandPiecewiseStorage(e *Expansion, n network.Node, in, out []network.Edge, edgeCols map[int]int) error {
	cfg, ok := n.Config.(network.PiecewiseStorageConfig)
	if !ok {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: expected PiecewiseStorageConfig", n.Name))
	}
	if len(cfg.Slices) == 0 {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: PiecewiseStorage has no slices", n.Name))
	}

	inCols := colIDs(in, edgeCols)
	outCols := colIDs(out, edgeCols)
	for _, c := range inCols {
		e.bindColumnBounds(c, network.ParamRef{}, network.ParamRef{}, network.ParamRef{})
	}
	for _, c := range outCols {
		e.bindColumnBounds(c, network.ParamRef{}, network.ParamRef{}, network.ParamRef{})
	}

	// One capacity row per slice; the simulator distributes draw order
	// across slices in declaration order when it sets each row's per-step
	// RHS from ControlCurve(t)*MaxVolume (internal/simulator/state_storage.go).
	sliceRows := make([]int, len(cfg.Slices))
	for i, slice := range cfg.Slices {
		row := lp.Row{Name: fmt.Sprintf("pws_slice[%s/%d]", n.Name, i), Kind: lp.Inequality, Lower: 0, Upper: posInf, Coeffs: make(map[int]float64)}
		for _, c := range outCols {
			row.Coeffs[c] = 1
		}
		rowID := e.Problem.AddRow(row)
		sliceRows[i] = rowID
		_ = slice // cost/control curve are consulted per step by the simulator via StorageBinding.Slices
	}

	acc := e.accessor(n.ID)
	acc.InflowCols = inCols
	acc.OutflowCols = outCols
	acc.IsStorage = true
	acc.VolumeRow = sliceRows[0]

	e.StorageBindings[n.ID] = &StorageBinding{
		RowID:     sliceRows[0],
		OutCols:   outCols,
		MaxVolume: cfg.MaxVolume,
		Initial:   cfg.Initial,
		SliceRows: sliceRows,
		Slices:    cfg.Slices,
	}
	return nil
}
