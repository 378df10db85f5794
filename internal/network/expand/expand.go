// Package expand implements the compound-node macros: each public node
// expands, once at build time, into the LP columns and rows its kind
// requires. The simulator never sees a compound node — only the flat
// Expansion this package produces, a pure function from schema shape to
// sub-columns, sub-rows, and metric accessors.
package expand

import (
	"fmt"
	"sort"

	"pywr/internal/apperror"
	"pywr/internal/lp"
	"pywr/internal/network"
)

// NodeAccessor records, for one public node, the set of internal columns
// (and, for storage-like nodes, the capacity row) that realise its
// Inflow/Outflow/Loss/Volume metrics.
type NodeAccessor struct {
	InflowCols  []int
	OutflowCols []int
	LossCols    []int

	IsStorage bool
	VolumeRow int // capacity row ID; -1 if not storage-like
}

// ColumnDriver ties an LP column back to the named parameters that supply
// its per-step cost/bounds, so the simulator only has to walk this slice
// (not the whole network) to build each timestep's lp.Update. Only columns
// with at least one dynamic (named, non-constant) ParamRef appear here.
type ColumnDriver struct {
	ColumnID    int
	CostParam   string
	MaxFlowParam string
	MinFlowParam string
}

// RowDriver is the same idea as ColumnDriver, for rows whose bounds depend
// on a named parameter (Aggregated nodes' min/max_flow).
type RowDriver struct {
	RowID     int
	MaxParam  string
	MinParam  string
}

// DelayBinding records the two decoupled columns of a Delay node: the
// outbound column's bounds are fixed every step directly from the FIFO
// queue's head by internal/simulator's applyDelayBounds (step.go), not via
// a named parameter.
type DelayBinding struct {
	InflowCols  []int
	OutflowCols []int
	Steps       int
	Initial     float64
	Cost        network.ParamRef
}

// VirtualStorageMemberColumn pairs a flow column with the factor applied to
// it when debiting a virtual storage's remaining capacity.
type VirtualStorageMemberColumn struct {
	ColumnID int
	Factor   float64
}

// VirtualStorageBinding records one virtual-storage node's coupling row and
// the member columns that drain it.
type VirtualStorageBinding struct {
	RowID       int
	Members     []VirtualStorageMemberColumn
	Rolling     bool
	WindowSteps int
	MaxVolume   network.ParamRef
	Initial     network.InitialVolume
}

// StorageBinding records a Storage node's capacity row plus enough of its
// declaration to drive the volume state machine (internal/simulator).
// SliceRows is nil for plain Storage/Reservoir; for PiecewiseStorage it holds
// every slice's row ID in declaration order (RowID duplicates SliceRows[0]
// for callers that only care about the top slice).
type StorageBinding struct {
	RowID      int
	OutCols    []int
	MaxVolume  network.ParamRef
	MinVolume  network.ParamRef
	Initial    network.InitialVolume
	SliceRows  []int
	Slices     []network.PiecewiseSlice
}

// Expansion is the complete output of expanding a network.Model: the
// compiled lp.Problem plus every accessor/binding the simulator needs to
// evaluate metrics, build per-step updates, and advance state machines.
type Expansion struct {
	Problem *lp.Problem

	Accessors map[int]*NodeAccessor // node ID -> accessor

	ColumnDrivers []ColumnDriver
	RowDrivers    []RowDriver

	StorageBindings       map[int]*StorageBinding        // node ID -> binding
	VirtualStorage        map[int]*VirtualStorageBinding // node ID -> binding
	Delays                map[int]*DelayBinding          // node ID -> binding
	Aggregated            map[int]*AggregatedBinding     // node ID -> binding
	LossFactors           []LossFactorBinding

	EdgeColumn map[int]int // edge ID -> its LP column (direct pass-through edges only)
}

// LossFactorForm distinguishes the two linear shapes a named factor
// parameter can drive in a LossFactorBinding's row: most rows fix the
// basis columns' coefficient directly to -factor (FormDirect), but
// River's loss-fraction row ("outflow - (1-factor)*inflow = 0") needs
// the complementary coefficient factor-1 instead (FormComplement).
type LossFactorForm int

const (
	FormDirect LossFactorForm = iota
	FormComplement
)

// LossFactorBinding records a row whose basis-column coefficients were
// seeded from a constant Factor at build time, so the simulator can
// refresh them when Factor is instead a named (Simple/General)
// parameter. Used by LossLink/WaterTreatmentWorks's loss_factor row,
// RiverSplit's per-slot ratio row, and River's optional loss row.
type LossFactorBinding struct {
	RowID      int
	BasisCols  []int
	FactorName string
	Form       LossFactorForm
}

func newExpansion() *Expansion {
	return &Expansion{
		Problem:         lp.New(),
		Accessors:       make(map[int]*NodeAccessor),
		StorageBindings: make(map[int]*StorageBinding),
		VirtualStorage:  make(map[int]*VirtualStorageBinding),
		Delays:          make(map[int]*DelayBinding),
		Aggregated:      make(map[int]*AggregatedBinding),
		EdgeColumn:      make(map[int]int),
	}
}

func (e *Expansion) accessor(nodeID int) *NodeAccessor {
	a, ok := e.Accessors[nodeID]
	if !ok {
		a = &NodeAccessor{VolumeRow: -1}
		e.Accessors[nodeID] = a
	}
	return a
}

// Expand translates m into a flat Expansion, dispatching on each node's
// Kind. Nodes are expanded in ID order for deterministic column/row
// numbering across builds of the same model.
func Expand(m *network.Model) (*Expansion, error) {
	e := newExpansion()

	inbound := make(map[int][]network.Edge, len(m.Nodes))
	outbound := make(map[int][]network.Edge, len(m.Nodes))
	for _, edge := range m.Edges {
		inbound[edge.To] = append(inbound[edge.To], edge)
		outbound[edge.From] = append(outbound[edge.From], edge)
	}

	// Pass 1: every edge gets its own column up front (Delay/RiverSplit/
	// PiecewiseLink rewire how these columns combine, but never share a
	// column across two edges).
	edgeCols := make(map[int]int, len(m.Edges))
	for _, edge := range m.Edges {
		col := e.Problem.AddColumn(lp.Column{
			Name:  fmt.Sprintf("edge[%d]", edge.ID),
			Lower: 0,
			Upper: posInf,
		})
		edgeCols[edge.ID] = col
		e.EdgeColumn[edge.ID] = col
	}

	for _, n := range m.Nodes {
		in := inbound[n.ID]
		out := outbound[n.ID]
		var err error
		switch n.Kind {
		case network.KindInput:
			err = expandBoundarySource(e, n, out, edgeCols)
		case network.KindOutput:
			err = expandBoundarySink(e, n, in, edgeCols)
		case network.KindCatchment:
			err = expandBoundarySource(e, n, out, edgeCols)
		case network.KindLink:
			err = expandLink(e, n, in, out, edgeCols)
		case network.KindStorage:
			err = expandStorage(e, n, in, out, edgeCols)
		case network.KindPiecewiseLink:
			err = expandPiecewiseLink(e, n, in, out, edgeCols)
		case network.KindPiecewiseStorage:
			err = expandPiecewiseStorage(e, n, in, out, edgeCols)
		case network.KindLossLink:
			err = expandLossLink(e, n, in, out, edgeCols)
		case network.KindWaterTreatmentWorks:
			err = expandWTW(e, n, in, out, edgeCols)
		case network.KindDelay:
			err = expandDelay(e, n, in, out, edgeCols)
		case network.KindRiverSplit:
			err = expandRiverSplit(e, n, in, out, edgeCols)
		case network.KindRiver:
			err = expandRiver(e, n, in, out, edgeCols)
		case network.KindReservoir:
			err = expandReservoir(e, n, in, out, edgeCols)
		case network.KindVirtualStorage:
			err = expandVirtualStorage(e, m, n, false)
		case network.KindRollingVirtualStorage:
			err = expandVirtualStorage(e, m, n, true)
		case network.KindAggregated:
			err = expandAggregated(e, m, n)
		default:
			err = apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q has unknown kind %v", n.Name, n.Kind))
		}
		if err != nil {
			return nil, err
		}
	}

	return e, nil
}

const posInf = 1e18 // effective +Inf for LP bounds; finite so solvers needn't special-case it

func colIDs(edges []network.Edge, edgeCols map[int]int) []int {
	ids := make([]int, len(edges))
	for i, ed := range edges {
		ids[i] = edgeCols[ed.ID]
	}
	sort.Ints(ids)
	return ids
}

// massBalanceRow adds Σin - Σout = 0 over the given column sets.
func (e *Expansion) massBalanceRow(name string, in, out []int) int {
	row := lp.Row{Name: name, Kind: lp.Equality, Lower: 0, Upper: 0, Coeffs: make(map[int]float64)}
	for _, c := range in {
		row.Coeffs[c] += 1
	}
	for _, c := range out {
		row.Coeffs[c] -= 1
	}
	return e.Problem.AddRow(row)
}

// bindColumnBounds sets a column's static bounds/cost from ParamRefs,
// registering a ColumnDriver for any that are named (dynamic). An unset
// ParamRef with a zero Constant means "no limit" for MaxFlow (+Inf) and
// "no floor" for MinFlow/Cost (0); a real max_flow of exactly 0 must be
// declared via a named Constant parameter to be distinguishable.
func (e *Expansion) bindColumnBounds(col int, maxFlow, minFlow, cost network.ParamRef) {
	lower := minFlow.Constant
	upper := posInf
	if maxFlow.Constant != 0 {
		upper = maxFlow.Constant
	}
	costVal := cost.Constant

	e.Problem.Columns[col].Lower = lower
	e.Problem.Columns[col].Upper = upper
	e.Problem.Columns[col].Cost = costVal

	var d ColumnDriver
	dynamic := false
	if cost.IsSet() {
		d.CostParam = cost.Name
		dynamic = true
	}
	if maxFlow.IsSet() {
		d.MaxFlowParam = maxFlow.Name
		dynamic = true
	}
	if minFlow.IsSet() {
		d.MinFlowParam = minFlow.Name
		dynamic = true
	}
	if dynamic {
		d.ColumnID = col
		e.ColumnDrivers = append(e.ColumnDrivers, d)
	}
}

func expandBoundarySource(e *Expansion, n network.Node, out []network.Edge, edgeCols map[int]int) error {
	var maxFlow, minFlow, cost network.ParamRef
	switch cfg := n.Config.(type) {
	case network.InputConfig:
		maxFlow, minFlow, cost = cfg.MaxFlow, cfg.MinFlow, cfg.Cost
	case network.CatchmentConfig:
		maxFlow, cost = cfg.Flow, cfg.Cost
		minFlow = cfg.Flow // catchment flow is fixed, not just capped
	default:
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: unexpected config for source kind", n.Name))
	}

	cols := colIDs(out, edgeCols)
	for _, c := range cols {
		e.bindColumnBounds(c, maxFlow, minFlow, cost)
	}
	acc := e.accessor(n.ID)
	acc.OutflowCols = cols
	return nil
}

func expandBoundarySink(e *Expansion, n network.Node, in []network.Edge, edgeCols map[int]int) error {
	cfg, ok := n.Config.(network.OutputConfig)
	if !ok {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: expected OutputConfig", n.Name))
	}
	cols := colIDs(in, edgeCols)
	for _, c := range cols {
		e.bindColumnBounds(c, cfg.MaxFlow, cfg.MinFlow, cfg.Cost)
	}
	acc := e.accessor(n.ID)
	acc.InflowCols = cols
	return nil
}

func expandLink(e *Expansion, n network.Node, in, out []network.Edge, edgeCols map[int]int) error {
	cfg, ok := n.Config.(network.LinkConfig)
	if !ok {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: expected LinkConfig", n.Name))
	}
	inCols := colIDs(in, edgeCols)
	outCols := colIDs(out, edgeCols)
	for _, c := range outCols {
		e.bindColumnBounds(c, cfg.MaxFlow, cfg.MinFlow, cfg.Cost)
	}
	acc := e.accessor(n.ID)
	acc.InflowCols = inCols
	acc.OutflowCols = outCols
	if len(inCols) > 0 && len(outCols) > 0 {
		e.massBalanceRow(fmt.Sprintf("balance[%s]", n.Name), inCols, outCols)
	}
	return nil
}

func expandStorage(e *Expansion, n network.Node, in, out []network.Edge, edgeCols map[int]int) error {
	cfg, ok := n.Config.(network.StorageConfig)
	if !ok {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: expected StorageConfig", n.Name))
	}
	inCols := colIDs(in, edgeCols)
	outCols := colIDs(out, edgeCols)
	for _, c := range inCols {
		e.bindColumnBounds(c, network.ParamRef{}, network.ParamRef{}, network.ParamRef{})
	}
	for _, c := range outCols {
		e.bindColumnBounds(c, network.ParamRef{}, network.ParamRef{}, cfg.Cost)
	}

	// Capacity row: Σout*1 <= remaining volume (RHS set per step by the
	// storage state machine, in "flow" units since Δt is folded into the
	// RHS by the simulator at Update time). Lower bound 0 keeps it a
	// one-sided cap; upper starts unconstrained until the first Update.
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
		MinVolume: cfg.MinVolume,
		Initial:   cfg.Initial,
	}
	return nil
}
