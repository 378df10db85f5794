package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_AddNodeAssignsDenseIDs(t *testing.T) {
	m := New()
	a := m.AddNode(Node{Name: "input1", Kind: KindInput, Config: InputConfig{}})
	b := m.AddNode(Node{Name: "output1", Kind: KindOutput, Config: OutputConfig{}})

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)

	node, ok := m.NodeByName("input1")
	require.True(t, ok)
	assert.Equal(t, KindInput, node.Kind)
}

func TestModel_Validate_DuplicateName(t *testing.T) {
	m := New()
	m.AddNode(Node{Name: "x", Kind: KindLink, Config: LinkConfig{}})
	m.AddNode(Node{Name: "x", Kind: KindLink, Config: LinkConfig{}})

	errs := m.Validate()
	require.Len(t, errs, 1)
}

func TestModel_Validate_DanglingEdge(t *testing.T) {
	m := New()
	m.AddNode(Node{Name: "x", Kind: KindLink, Config: LinkConfig{}})
	m.AddEdge(Edge{From: 0, To: 5})

	errs := m.Validate()
	require.Len(t, errs, 1)
}

func TestModel_Validate_SelfLoop(t *testing.T) {
	m := New()
	m.AddNode(Node{Name: "x", Kind: KindLink, Config: LinkConfig{}})
	m.AddEdge(Edge{From: 0, To: 0})

	errs := m.Validate()
	require.Len(t, errs, 1)
}

func TestModel_EdgesFromAndTo(t *testing.T) {
	m := New()
	a := m.AddNode(Node{Name: "a", Kind: KindInput, Config: InputConfig{}})
	b := m.AddNode(Node{Name: "b", Kind: KindLink, Config: LinkConfig{}})
	c := m.AddNode(Node{Name: "c", Kind: KindOutput, Config: OutputConfig{}})

	m.AddEdge(Edge{From: a, To: b})
	m.AddEdge(Edge{From: b, To: c})

	assert.Len(t, m.EdgesFrom(a), 1)
	assert.Len(t, m.EdgesTo(c), 1)
	assert.Len(t, m.EdgesFrom(c), 0)
}

func TestModel_Validate_RiverSplitUnknownSlot(t *testing.T) {
	m := New()
	split := m.AddNode(Node{Name: "split", Kind: KindRiverSplit, Config: RiverSplitConfig{
		Slots: []RiverSplitSlot{{Slot: "east", Factor: ParamRef{Constant: 0.5}}},
	}})
	dest := m.AddNode(Node{Name: "dest", Kind: KindOutput, Config: OutputConfig{}})
	m.AddEdge(Edge{From: split, To: dest, FromSlot: "west"})

	errs := m.Validate()
	require.Len(t, errs, 1)
}
