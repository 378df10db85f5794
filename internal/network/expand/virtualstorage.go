package expand

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/lp"
	"pywr/internal/network"
)

// expandVirtualStorage realises a VirtualStorage/RollingVirtualStorage node
// as a bookkeeping row over its members' outflow columns rather than a
// physical node in the flow graph: the row itself carries no mass-balance
// meaning, only a per-step RHS the simulator rewrites from
// remaining capacity. rolling selects RollingVirtualStorageConfig's sliding
// window over VirtualStorageConfig's unbounded cumulative use.
func expandVirtualStorage(e *Expansion, m *network.Model, n network.Node, rolling bool) error {
	var members []network.VirtualStorageMember
	var maxVolume network.ParamRef
	var initial network.InitialVolume
	windowSteps := 0

	switch cfg := n.Config.(type) {
	case network.VirtualStorageConfig:
		if rolling {
			return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: VirtualStorageConfig used with rolling dispatch", n.Name))
		}
		members, maxVolume, initial = cfg.Members, cfg.MaxVolume, cfg.Initial
	case network.RollingVirtualStorageConfig:
		if !rolling {
			return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: RollingVirtualStorageConfig used with non-rolling dispatch", n.Name))
		}
		members, maxVolume, windowSteps = cfg.Members, cfg.MaxVolume, cfg.WindowSteps
	default:
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: unexpected config for virtual storage kind", n.Name))
	}
	if len(members) == 0 {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: virtual storage has no members", n.Name))
	}

	memberCols := make([]VirtualStorageMemberColumn, 0, len(members))
	for _, mem := range members {
		id := m.NodeID(mem.NodeName)
		if id < 0 {
			return apperror.New(apperror.CodeBuildError, fmt.Sprintf("virtual storage %q references unknown node %q", n.Name, mem.NodeName))
		}
		acc, ok := e.Accessors[id]
		if !ok || len(acc.OutflowCols) == 0 {
			return apperror.New(apperror.CodeBuildError, fmt.Sprintf("virtual storage %q: member %q has no outflow column (expand it first)", n.Name, mem.NodeName))
		}
		factor := mem.Factor
		if factor == 0 {
			factor = 1
		}
		for _, c := range acc.OutflowCols {
			memberCols = append(memberCols, VirtualStorageMemberColumn{ColumnID: c, Factor: factor})
		}
	}

	// The row sums each member's factored outflow; its bounds track
	// remaining capacity and are refreshed every step by the virtual-storage
	// state machine. It never participates in the flow graph's own mass
	// balance, only constrains it.
	row := lp.Row{Name: fmt.Sprintf("vstorage_cap[%s]", n.Name), Kind: lp.Inequality, Lower: -posInf, Upper: posInf, Coeffs: make(map[int]float64)}
	for _, mc := range memberCols {
		row.Coeffs[mc.ColumnID] += mc.Factor
	}
	rowID := e.Problem.AddRow(row)

	e.VirtualStorage[n.ID] = &VirtualStorageBinding{
		RowID:       rowID,
		Members:     memberCols,
		Rolling:     rolling,
		WindowSteps: windowSteps,
		MaxVolume:   maxVolume,
		Initial:     initial,
	}
	return nil
}
