// Package network holds the typed graph of nodes and directed edges a model
// is built from, together with the parameters, metrics, metric sets, and
// recorders attached to it. A Model is assembled once by internal/schema's
// Build function and is immutable for the life of a run; compound nodes are
// expanded into their internal LP columns/rows by internal/network/expand at
// build time so the simulator only ever sees a flat network.
package network

import "fmt"

// NodeKind identifies which of the built-in node families a Node belongs to.
// Compound kinds (everything after Catchment) expand into one or more
// internal sub-nodes/edges during LP build; see internal/network/expand.
type NodeKind int

const (
	KindUnspecified NodeKind = iota
	KindInput
	KindOutput
	KindLink
	KindStorage
	KindCatchment
	KindVirtualStorage
	KindRollingVirtualStorage
	KindPiecewiseLink
	KindPiecewiseStorage
	KindAggregated
	KindLossLink
	KindWaterTreatmentWorks
	KindDelay
	KindRiver
	KindRiverSplit
	KindReservoir
)

func (k NodeKind) String() string {
	switch k {
	case KindInput:
		return "Input"
	case KindOutput:
		return "Output"
	case KindLink:
		return "Link"
	case KindStorage:
		return "Storage"
	case KindCatchment:
		return "Catchment"
	case KindVirtualStorage:
		return "VirtualStorage"
	case KindRollingVirtualStorage:
		return "RollingVirtualStorage"
	case KindPiecewiseLink:
		return "PiecewiseLink"
	case KindPiecewiseStorage:
		return "PiecewiseStorage"
	case KindAggregated:
		return "Aggregated"
	case KindLossLink:
		return "LossLink"
	case KindWaterTreatmentWorks:
		return "WaterTreatmentWorks"
	case KindDelay:
		return "Delay"
	case KindRiver:
		return "River"
	case KindRiverSplit:
		return "RiverSplit"
	case KindReservoir:
		return "Reservoir"
	default:
		return "Unspecified"
	}
}

// IsCompound reports whether the kind expands into multiple internal
// sub-nodes/edges at build time (internal/network/expand handles these).
func (k NodeKind) IsCompound() bool {
	switch k {
	case KindPiecewiseLink, KindPiecewiseStorage, KindAggregated, KindLossLink,
		KindWaterTreatmentWorks, KindDelay, KindRiverSplit, KindReservoir, KindRiver:
		return true
	default:
		return false
	}
}

// ParamRef names a parameter that supplies a dynamic coefficient (cost,
// max_flow, min_flow, ...) for a node or edge. An empty Name means the field
// uses its literal Constant value instead of a parameter lookup.
type ParamRef struct {
	Name     string
	Constant float64
}

// IsSet reports whether this reference points at a named parameter rather
// than a bare constant.
func (p ParamRef) IsSet() bool {
	return p.Name != ""
}

// Node is one vertex of the network, addressed by a stable dense ID assigned
// at build time. Config holds the kind-specific attributes; its concrete
// type is determined by Kind (see node_config.go).
type Node struct {
	ID      int
	Name    string
	Kind    NodeKind
	Comment string
	Config  NodeConfig
}

// NodeConfig is implemented by every per-kind configuration struct in
// node_config.go. It exists only to give Node.Config a closed, type-switchable
// sum type without resorting to `any`.
type NodeConfig interface {
	nodeConfig()
}

// Slot identifies one named connection point on a node that exposes more
// than one (RiverSplit outgoing slots, PiecewiseStorage's stacked slices).
// An empty Slot means the node's single default connection point.
type Slot string

// Edge is a directed connection between two nodes, optionally through a
// named slot on either end. Exactly one LP column is realised per edge after
// compound-node expansion (internal/network/expand).
type Edge struct {
	ID       int
	From     int
	To       int
	FromSlot Slot
	ToSlot   Slot
}

func (e Edge) String() string {
	if e.FromSlot == "" && e.ToSlot == "" {
		return fmt.Sprintf("%d->%d", e.From, e.To)
	}
	return fmt.Sprintf("%d[%s]->%d[%s]", e.From, e.FromSlot, e.To, e.ToSlot)
}
