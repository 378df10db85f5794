package schema

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/network"
)

// NodeJSON is the tagged union over every built-in node kind, one flat
// struct carrying every kind's fields, decoded via the "type" discriminator.
// Field names favor the kind they were introduced for but are reused where
// the shape matches (MaxFlow/Cost on Input/Output/Link/River, MaxVolume on
// Storage/Reservoir/PiecewiseStorage/VirtualStorage).
type NodeJSON struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Comment string `json:"comment,omitempty"`

	MaxFlow *MetricRefJSON `json:"max_flow,omitempty"`
	MinFlow *MetricRefJSON `json:"min_flow,omitempty"`
	Cost    *MetricRefJSON `json:"cost,omitempty"`

	Flow *MetricRefJSON `json:"flow,omitempty"`

	MaxVolume    *MetricRefJSON     `json:"max_volume,omitempty"`
	MinVolume    *MetricRefJSON     `json:"min_volume,omitempty"`
	Initial      *InitialVolumeJSON `json:"initial_volume,omitempty"`
	Compensation *MetricRefJSON     `json:"compensation,omitempty"`

	Members     []VirtualStorageMemberJSON `json:"members,omitempty"`
	WindowSteps int                        `json:"window,omitempty"`

	Steps []PiecewiseStepJSON `json:"piecewise_steps,omitempty"`

	Slices []PiecewiseSliceJSON `json:"slices,omitempty"`

	AggNodes     []string          `json:"nodes,omitempty"`
	AggFactors   []float64         `json:"factors,omitempty"`
	Relationship *RelationshipJSON `json:"relationship,omitempty"`

	Factor     *MetricRefJSON `json:"factor,omitempty"`
	LossKind   string         `json:"loss_kind,omitempty"`
	MaxOutflow *MetricRefJSON `json:"max_outflow,omitempty"`

	DelaySteps   int     `json:"delay_steps,omitempty"`
	InitialValue float64 `json:"initial_value,omitempty"`

	LossFactor *MetricRefJSON `json:"loss_factor,omitempty"`

	Slots []RiverSplitSlotJSON `json:"slots,omitempty"`
}

// VirtualStorageMemberJSON mirrors network.VirtualStorageMember.
type VirtualStorageMemberJSON struct {
	Node   string  `json:"node"`
	Factor float64 `json:"factor,omitempty"`
}

// PiecewiseStepJSON mirrors network.PiecewiseStep.
type PiecewiseStepJSON struct {
	MaxFlow *MetricRefJSON `json:"max_flow"`
	Cost    *MetricRefJSON `json:"cost"`
}

// PiecewiseSliceJSON mirrors network.PiecewiseSlice.
type PiecewiseSliceJSON struct {
	ControlCurve *MetricRefJSON `json:"control_curve"`
	Cost         *MetricRefJSON `json:"cost"`
}

// RelationshipJSON mirrors network.AggregatedRelationship.
type RelationshipJSON struct {
	Exclusive bool `json:"exclusive,omitempty"`
	MinActive int  `json:"min_active,omitempty"`
	MaxActive int  `json:"max_active,omitempty"`
}

// RiverSplitSlotJSON mirrors network.RiverSplitSlot.
type RiverSplitSlotJSON struct {
	Slot   string         `json:"slot"`
	Factor *MetricRefJSON `json:"factor"`
}

// decodeNode turns one NodeJSON into a network.Node (ID unset; AddNode
// assigns it). It has no dependency on other nodes already being present —
// cross-node references (Aggregated.Nodes, VirtualStorage.Members,
// RiverSplit.Slots) are validated at Model.Validate / expand time instead,
// so declaration order among referencing and referenced nodes is free.
func decodeNode(nj NodeJSON) (network.Node, error) {
	if nj.Name == "" {
		return network.Node{}, apperror.New(apperror.CodeSchemaError, "node has no name")
	}

	n := network.Node{Name: nj.Name, Comment: nj.Comment}

	switch nj.Type {
	case "Input", "input":
		n.Kind = network.KindInput
		n.Config = network.InputConfig{MaxFlow: nj.MaxFlow.toParamRef(), MinFlow: nj.MinFlow.toParamRef(), Cost: nj.Cost.toParamRef()}

	case "Output", "output":
		n.Kind = network.KindOutput
		n.Config = network.OutputConfig{MaxFlow: nj.MaxFlow.toParamRef(), MinFlow: nj.MinFlow.toParamRef(), Cost: nj.Cost.toParamRef()}

	case "Link", "link":
		n.Kind = network.KindLink
		n.Config = network.LinkConfig{MaxFlow: nj.MaxFlow.toParamRef(), MinFlow: nj.MinFlow.toParamRef(), Cost: nj.Cost.toParamRef()}

	case "Catchment", "catchment":
		n.Kind = network.KindCatchment
		n.Config = network.CatchmentConfig{Flow: nj.Flow.toParamRef(), Cost: nj.Cost.toParamRef()}

	case "Storage", "storage":
		n.Kind = network.KindStorage
		n.Config = network.StorageConfig{
			MaxVolume: nj.MaxVolume.toParamRef(),
			MinVolume: nj.MinVolume.toParamRef(),
			Initial:   nj.Initial.toInitialVolume(),
			Cost:      nj.Cost.toParamRef(),
		}

	case "VirtualStorage", "virtual_storage":
		n.Kind = network.KindVirtualStorage
		n.Config = network.VirtualStorageConfig{
			MaxVolume: nj.MaxVolume.toParamRef(),
			Initial:   nj.Initial.toInitialVolume(),
			Members:   toMembers(nj.Members),
			Cost:      nj.Cost.toParamRef(),
		}

	case "RollingVirtualStorage", "rolling_virtual_storage":
		n.Kind = network.KindRollingVirtualStorage
		n.Config = network.RollingVirtualStorageConfig{
			MaxVolume:   nj.MaxVolume.toParamRef(),
			Members:     toMembers(nj.Members),
			WindowSteps: nj.WindowSteps,
			Cost:        nj.Cost.toParamRef(),
		}

	case "PiecewiseLink", "piecewise_link":
		n.Kind = network.KindPiecewiseLink
		steps := make([]network.PiecewiseStep, len(nj.Steps))
		for i, s := range nj.Steps {
			steps[i] = network.PiecewiseStep{MaxFlow: s.MaxFlow.toParamRef(), Cost: s.Cost.toParamRef()}
		}
		n.Config = network.PiecewiseLinkConfig{Steps: steps}

	case "PiecewiseStorage", "piecewise_storage":
		n.Kind = network.KindPiecewiseStorage
		slices := make([]network.PiecewiseSlice, len(nj.Slices))
		for i, s := range nj.Slices {
			slices[i] = network.PiecewiseSlice{ControlCurve: s.ControlCurve.toParamRef(), Cost: s.Cost.toParamRef()}
		}
		n.Config = network.PiecewiseStorageConfig{MaxVolume: nj.MaxVolume.toParamRef(), Initial: nj.Initial.toInitialVolume(), Slices: slices}

	case "Aggregated", "aggregated":
		n.Kind = network.KindAggregated
		rel := network.AggregatedRelationship{}
		if nj.Relationship != nil {
			rel = network.AggregatedRelationship{Exclusive: nj.Relationship.Exclusive, MinActive: nj.Relationship.MinActive, MaxActive: nj.Relationship.MaxActive}
		}
		n.Config = network.AggregatedConfig{
			Nodes:        nj.AggNodes,
			Factors:      nj.AggFactors,
			MaxFlow:      nj.MaxFlow.toParamRef(),
			MinFlow:      nj.MinFlow.toParamRef(),
			Relationship: rel,
		}

	case "LossLink", "loss_link":
		n.Kind = network.KindLossLink
		kind, err := parseLossKind(nj.LossKind)
		if err != nil {
			return network.Node{}, err
		}
		n.Config = network.LossLinkConfig{Factor: nj.Factor.toParamRef(), Kind: kind, MaxFlow: nj.MaxFlow.toParamRef(), Cost: nj.Cost.toParamRef()}

	case "WaterTreatmentWorks", "water_treatment_works":
		n.Kind = network.KindWaterTreatmentWorks
		kind, err := parseLossKind(nj.LossKind)
		if err != nil {
			return network.Node{}, err
		}
		n.Config = network.WaterTreatmentWorksConfig{Factor: nj.Factor.toParamRef(), Kind: kind, MaxOutflow: nj.MaxOutflow.toParamRef(), Cost: nj.Cost.toParamRef()}

	case "Delay", "delay":
		n.Kind = network.KindDelay
		n.Config = network.DelayConfig{Steps: nj.DelaySteps, InitialValue: nj.InitialValue, Cost: nj.Cost.toParamRef()}

	case "River", "river":
		n.Kind = network.KindRiver
		n.Config = network.RiverConfig{MaxFlow: nj.MaxFlow.toParamRef(), Cost: nj.Cost.toParamRef(), LossFactor: nj.LossFactor.toParamRef()}

	case "RiverSplit", "river_split":
		n.Kind = network.KindRiverSplit
		slots := make([]network.RiverSplitSlot, len(nj.Slots))
		for i, s := range nj.Slots {
			slots[i] = network.RiverSplitSlot{Slot: network.Slot(s.Slot), Factor: s.Factor.toParamRef()}
		}
		n.Config = network.RiverSplitConfig{Slots: slots, Cost: nj.Cost.toParamRef()}

	case "Reservoir", "reservoir":
		n.Kind = network.KindReservoir
		n.Config = network.ReservoirConfig{
			MaxVolume:    nj.MaxVolume.toParamRef(),
			Initial:      nj.Initial.toInitialVolume(),
			Cost:         nj.Cost.toParamRef(),
			Compensation: nj.Compensation.toParamRef(),
		}

	default:
		return network.Node{}, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("node %q has unknown type %q", nj.Name, nj.Type))
	}

	return n, nil
}

func toMembers(in []VirtualStorageMemberJSON) []network.VirtualStorageMember {
	out := make([]network.VirtualStorageMember, len(in))
	for i, m := range in {
		factor := m.Factor
		if factor == 0 {
			factor = 1
		}
		out[i] = network.VirtualStorageMember{NodeName: m.Node, Factor: factor}
	}
	return out
}

func parseLossKind(s string) (network.LossKind, error) {
	switch s {
	case "", "net":
		return network.LossNet, nil
	case "gross":
		return network.LossGross, nil
	default:
		return 0, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("unknown loss_kind %q", s))
	}
}
