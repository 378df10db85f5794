package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"pywr/internal/network"
)

const simpleChainJSON = `{
  "metadata": {"title": "simple chain"},
  "timestepper": {"start": "2020-01-01", "end": "2020-01-04", "step": 1},
  "scenarios": {},
  "network": {
    "nodes": [
      {"type": "Input", "name": "supply", "max_flow": 10, "cost": 0},
      {"type": "Link", "name": "mid"},
      {"type": "Output", "name": "demand", "max_flow": 10, "cost": -10}
    ],
    "edges": [
      {"from_node": "supply", "to_node": "mid"},
      {"from_node": "mid", "to_node": "demand"}
    ],
    "metric_sets": [
      {"name": "flows", "metrics": [
        {"name": "demand_inflow", "metric": {"type": "Node", "node": "demand", "attribute": "inflow"}}
      ]}
    ],
    "outputs": [
      {"name": "flows_out", "metric_set": "flows", "kind": "csv_long", "path": "out.csv"}
    ]
  }
}`

func TestBuildSimpleChain(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(simpleChainJSON), &doc))

	m, store, err := Build(&doc)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Len(t, m.Nodes, 3)
	require.Len(t, m.Edges, 2)
	require.Equal(t, 3, m.Calendar.Len())
	require.Equal(t, 1, m.Scenario.Len())

	supply, ok := m.NodeByName("supply")
	require.True(t, ok)
	cfg, ok := supply.Config.(network.InputConfig)
	require.True(t, ok)
	require.Equal(t, 10.0, cfg.MaxFlow.Constant)
}

func TestBuildUnknownNodeType(t *testing.T) {
	doc := Document{
		Metadata:    Metadata{Title: "bad"},
		Timestepper: Timestepper{Start: "2020-01-01", End: "2020-01-02", Step: 1},
		Network: NetworkBlock{
			Nodes: []json.RawMessage{[]byte(`{"type":"NotAKind","name":"x"}`)},
		},
	}
	_, _, err := Build(&doc)
	require.Error(t, err)
}

func TestBuildUnknownEdgeEndpoint(t *testing.T) {
	doc := Document{
		Metadata:    Metadata{Title: "bad-edge"},
		Timestepper: Timestepper{Start: "2020-01-01", End: "2020-01-02", Step: 1},
		Network: NetworkBlock{
			Nodes: []json.RawMessage{[]byte(`{"type":"Input","name":"a"}`)},
			Edges: []EdgeJSON{{FromNode: "a", ToNode: "nonexistent"}},
		},
	}
	_, _, err := Build(&doc)
	require.Error(t, err)
}

func TestBuildScenarioGroupsWithSubsetAndCombinations(t *testing.T) {
	sb := ScenariosBlock{
		Groups: []ScenarioGroupJSON{
			{Name: "climate", Labels: []string{"wet", "dry", "avg"}, Subset: []string{"wet", "dry"}},
			{Name: "demand", Size: 2},
		},
		Combinations: [][]string{{"wet", "0"}},
	}
	grid, err := buildScenarioGrid(sb)
	require.NoError(t, err)
	require.Equal(t, 1, grid.Len())
	require.Equal(t, "wet", grid.At(0).Coordinates["climate"])
	require.Equal(t, "0", grid.At(0).Coordinates["demand"])
}

func TestMetricRefJSONConstantAndParameter(t *testing.T) {
	var constant MetricRefJSON
	require.NoError(t, json.Unmarshal([]byte("7.5"), &constant))
	require.Equal(t, 7.5, constant.toParamRef().Constant)

	var named MetricRefJSON
	require.NoError(t, json.Unmarshal([]byte(`{"parameter":"cost_curve"}`), &named))
	require.Equal(t, "cost_curve", named.toParamRef().Name)
}
