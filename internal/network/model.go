package network

import (
	"fmt"
	"sort"
	"sync"

	"pywr/internal/calendar"
	"pywr/internal/scenario"
)

// Output is a recorder sink attached to a MetricSet. Kind selects which
// concrete internal/recorder.Sink implementation handles it; HDF5 and
// Parquet are accepted here (so schema round-trips cleanly) but only wired
// to interface-only sinks, per the engine's declared I/O scope.
type OutputKind int

const (
	OutputCSVLong OutputKind = iota
	OutputCSVWide
	OutputAggregatedScalar
	OutputXLSX
	OutputHDF5
	OutputParquet
)

func (k OutputKind) String() string {
	switch k {
	case OutputCSVLong:
		return "csv_long"
	case OutputCSVWide:
		return "csv_wide"
	case OutputAggregatedScalar:
		return "aggregated_scalar"
	case OutputXLSX:
		return "xlsx"
	case OutputHDF5:
		return "hdf5"
	case OutputParquet:
		return "parquet"
	default:
		return "unknown"
	}
}

// Output names a MetricSet, a sink kind, and the destination path/table the
// sink writes.
type Output struct {
	Name       string
	MetricSet  string
	Kind       OutputKind
	Path       string
	DecimalPlaces int
}

// Metadata mirrors the model JSON's top-level metadata block.
type Metadata struct {
	Title           string
	Description     string
	MinimumVersion  string
}

// Model is the complete, immutable network a Simulator runs: the typed node/
// edge graph plus the parameters, metrics, metric sets, and recorders
// attached to it, the calendar, and the scenario grid. It is assembled once
// by internal/schema.Build and never mutated afterward; all entities are
// addressed by the stable dense ID assigned during build.
//
// Guarded by mu only for the rare case of concurrent read access during
// construction diagnostics; once schema.Build has returned, callers treat the
// Model as read-only and the lock is never contended.
type Model struct {
	Metadata Metadata
	Calendar *calendar.Calendar
	Scenario *scenario.Grid

	Nodes      []Node
	Edges      []Edge
	Parameters []Parameter

	MetricSets []MetricSet
	Outputs    []Output

	nodeIndex  map[string]int
	edgeIndex  map[string]int
	paramIndex map[string]int

	mu sync.RWMutex
}

// New returns an empty Model ready to be populated by internal/schema.Build.
func New() *Model {
	return &Model{
		nodeIndex:  make(map[string]int),
		edgeIndex:  make(map[string]int),
		paramIndex: make(map[string]int),
	}
}

// AddParameter appends a parameter declaration, assigning it the next dense
// index. Duplicate names are reported by Validate, matching AddNode.
func (m *Model) AddParameter(p Parameter) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := len(m.Parameters)
	m.Parameters = append(m.Parameters, p)
	if _, exists := m.paramIndex[p.Name]; !exists {
		m.paramIndex[p.Name] = id
	}
	return id
}

// ParameterByName resolves a parameter declaration by name.
func (m *Model) ParameterByName(name string) (Parameter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.paramIndex[name]
	if !ok {
		return Parameter{}, false
	}
	return m.Parameters[id], true
}

// AddNode appends a node, assigning it the next dense ID. Names must be
// unique per the data model's invariant; duplicate names are reported by
// Validate rather than rejected here, so a schema pass can collect every
// problem in one shot.
func (m *Model) AddNode(n Node) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n.ID = len(m.Nodes)
	m.Nodes = append(m.Nodes, n)
	if _, exists := m.nodeIndex[n.Name]; !exists {
		m.nodeIndex[n.Name] = n.ID
	}
	return n.ID
}

// AddEdge appends an edge, assigning it the next dense ID.
func (m *Model) AddEdge(e Edge) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.ID = len(m.Edges)
	m.Edges = append(m.Edges, e)
	return e.ID
}

// NodeByName resolves a node by its declared name.
func (m *Model) NodeByName(name string) (Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.nodeIndex[name]
	if !ok {
		return Node{}, false
	}
	return m.Nodes[id], true
}

// NodeID resolves a node's dense ID by name, -1 if not found.
func (m *Model) NodeID(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.nodeIndex[name]
	if !ok {
		return -1
	}
	return id
}

// EdgesFrom returns every edge whose From matches nodeID, in declaration
// order, matching the deterministic-ordering requirement on parameter and
// constraint construction.
func (m *Model) EdgesFrom(nodeID int) []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Edge
	for _, e := range m.Edges {
		if e.From == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// EdgesTo returns every edge whose To matches nodeID, in declaration order.
func (m *Model) EdgesTo(nodeID int) []Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Edge
	for _, e := range m.Edges {
		if e.To == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks every invariant from the data model that can be checked
// without a parameter resolver or LP builder: unique non-empty node and
// parameter names, edges that resolve to real nodes and are not self-loops,
// slot-endpoint matching for RiverSplit, and distinct column names within
// each metric set. Flow and volume bounds are not checked. It aggregates every problem found rather than stopping at the
// first, so a caller sees the whole list of fixes needed in one pass.
func (m *Model) Validate() []error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error

	seen := make(map[string]bool, len(m.Nodes))
	for _, n := range m.Nodes {
		if n.Name == "" {
			errs = append(errs, fmt.Errorf("node %d has no name", n.ID))
			continue
		}
		if seen[n.Name] {
			errs = append(errs, fmt.Errorf("duplicate node name %q", n.Name))
		}
		seen[n.Name] = true
	}

	for _, e := range m.Edges {
		if e.From < 0 || e.From >= len(m.Nodes) {
			errs = append(errs, fmt.Errorf("edge %d references non-existent from-node %d", e.ID, e.From))
			continue
		}
		if e.To < 0 || e.To >= len(m.Nodes) {
			errs = append(errs, fmt.Errorf("edge %d references non-existent to-node %d", e.ID, e.To))
			continue
		}
		if e.From == e.To {
			errs = append(errs, fmt.Errorf("self-loop detected at node %d (%s)", e.From, m.Nodes[e.From].Name))
		}
		if split, ok := m.Nodes[e.From].Config.(RiverSplitConfig); ok {
			if !hasSlot(split.Slots, e.FromSlot) {
				errs = append(errs, fmt.Errorf("edge %d references unknown slot %q on RiverSplit %q", e.ID, e.FromSlot, m.Nodes[e.From].Name))
			}
		}
	}

	paramSeen := make(map[string]bool, len(m.Parameters))
	for _, p := range m.Parameters {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("parameter has no name"))
			continue
		}
		if paramSeen[p.Name] {
			errs = append(errs, fmt.Errorf("duplicate parameter name %q", p.Name))
		}
		paramSeen[p.Name] = true
	}

	for _, ms := range m.MetricSets {
		names := make(map[string]bool, len(ms.Metrics))
		for _, nm := range ms.Metrics {
			if names[nm.Name] {
				errs = append(errs, fmt.Errorf("metric set %q has duplicate column name %q", ms.Name, nm.Name))
			}
			names[nm.Name] = true
		}
	}

	return errs
}

func hasSlot(slots []RiverSplitSlot, s Slot) bool {
	for _, slot := range slots {
		if slot.Slot == s {
			return true
		}
	}
	return false
}

// SortedNodeNames returns every node name in a deterministic (lexical)
// order, used by code paths (schema export, CLI listings) that need stable
// output independent of declaration order.
func (m *Model) SortedNodeNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.Nodes))
	for i, n := range m.Nodes {
		names[i] = n.Name
	}
	sort.Strings(names)
	return names
}
