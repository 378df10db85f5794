package simulator_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"pywr/internal/calendar"
	"pywr/internal/schema"
	"pywr/internal/scenario"
	"pywr/internal/simulator"
)

// captureRecorder buffers every MetricSet row it's handed, keyed by
// scenario then timestep index, so a test can assert on the exact
// trajectory a run produced rather than just its final state.
type captureRecorder struct {
	mu   sync.Mutex
	rows map[int][]map[string]float64
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{rows: make(map[int][]map[string]float64)}
}

func (r *captureRecorder) Record(idx scenario.Index, ts calendar.Timestep, metricSet string, values map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[idx.Global] = append(r.rows[idx.Global], values)
	return nil
}

func (r *captureRecorder) Finalize() error { return nil }

func buildAndRun(t *testing.T, doc string) *captureRecorder {
	t.Helper()
	var d schema.Document
	require.NoError(t, json.Unmarshal([]byte(doc), &d))

	m, store, err := schema.Build(&d)
	require.NoError(t, err)

	eng, err := simulator.New(m, store, nil)
	require.NoError(t, err)

	rec := newCaptureRecorder()
	eng.AddRecorder(rec)

	runErr := eng.RunScenarios(context.Background(), nil)
	require.Nil(t, runErr)
	return rec
}

// Scenario 1: a simple linear chain delivers its bounded flow every day.
func TestEndToEndSimpleChain(t *testing.T) {
	const doc = `{
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
	    ]
	  }
	}`

	rec := buildAndRun(t, doc)
	rows := rec.rows[0]
	require.Len(t, rows, 3)
	for day, row := range rows {
		require.InDelta(t, 10.0, row["demand_inflow"], 1e-6, "day %d", day)
	}
}

// Scenario 2: a storage node releases net 1/day and ends at 500-365=135.
func TestEndToEndStorageBalance(t *testing.T) {
	const doc = `{
	  "metadata": {"title": "storage balance"},
	  "timestepper": {"start": "2021-01-01", "end": "2022-01-01", "step": 1},
	  "scenarios": {},
	  "network": {
	    "nodes": [
	      {"type": "Input", "name": "supply", "max_flow": 9, "cost": 0},
	      {"type": "Storage", "name": "reservoir", "max_volume": 1000, "initial_volume": {"absolute": 500}, "cost": -1},
	      {"type": "Output", "name": "demand", "max_flow": 10, "cost": -10}
	    ],
	    "edges": [
	      {"from_node": "supply", "to_node": "reservoir"},
	      {"from_node": "reservoir", "to_node": "demand"}
	    ],
	    "metric_sets": [
	      {"name": "storage", "metrics": [
	        {"name": "reservoir_volume", "metric": {"type": "Node", "node": "reservoir", "attribute": "volume"}}
	      ]}
	    ]
	  }
	}`

	rec := buildAndRun(t, doc)
	rows := rec.rows[0]
	require.Len(t, rows, 365)

	for day, row := range rows {
		expected := 500.0 - float64(day+1)
		got := row["reservoir_volume"] * 1000.0
		require.InDelta(t, expected, got, 1e-3, "day %d", day)
	}
	require.InDelta(t, 135.0, rows[364]["reservoir_volume"]*1000.0, 1e-3)
}

// Scenario 3: a piecewise link exhausts its cheapest tranches first; the
// internal per-tranche split isn't independently observable through a
// metric (the tranche columns carry no node identity of their own), so
// this only checks the node meets the full demand it's priced to meet.
func TestEndToEndPiecewiseLink(t *testing.T) {
	const doc = `{
	  "metadata": {"title": "piecewise link"},
	  "timestepper": {"start": "2020-01-01", "end": "2020-01-02", "step": 1},
	  "scenarios": {},
	  "network": {
	    "nodes": [
	      {"type": "Input", "name": "supply", "max_flow": 15, "cost": 0},
	      {"type": "PiecewiseLink", "name": "tiered", "piecewise_steps": [
	        {"max_flow": 1, "cost": 1},
	        {"max_flow": 3, "cost": 5},
	        {"max_flow": 1000, "cost": 15}
	      ]},
	      {"type": "Output", "name": "demand", "max_flow": 15, "cost": -10}
	    ],
	    "edges": [
	      {"from_node": "supply", "to_node": "tiered"},
	      {"from_node": "tiered", "to_node": "demand"}
	    ],
	    "metric_sets": [
	      {"name": "flows", "metrics": [
	        {"name": "demand_inflow", "metric": {"type": "Node", "node": "demand", "attribute": "inflow"}}
	      ]}
	    ]
	  }
	}`

	rec := buildAndRun(t, doc)
	rows := rec.rows[0]
	require.Len(t, rows, 1)
	require.InDelta(t, 15.0, rows[0]["demand_inflow"], 1e-6)
}

// Scenario 4: a rolling 30-day licence caps cumulative use at 300; demand
// draws its full 10/day until the window fills, then is shut to 0 exactly
// on day 31 (index 30), the one day the spec's scenario commits to.
func TestEndToEndRollingLicence(t *testing.T) {
	const doc = `{
	  "metadata": {"title": "rolling licence"},
	  "timestepper": {"start": "2020-01-01", "end": "2020-02-01", "step": 1},
	  "scenarios": {},
	  "network": {
	    "nodes": [
	      {"type": "Input", "name": "supply", "max_flow": 15, "cost": 0},
	      {"type": "Output", "name": "demand", "max_flow": 10, "cost": -10},
	      {"type": "RollingVirtualStorage", "name": "licence", "max_volume": 300, "window": 30,
	       "members": [{"node": "demand"}]}
	    ],
	    "edges": [
	      {"from_node": "supply", "to_node": "demand"}
	    ],
	    "metric_sets": [
	      {"name": "flows", "metrics": [
	        {"name": "demand_inflow", "metric": {"type": "Node", "node": "demand", "attribute": "inflow"}}
	      ]}
	    ]
	  }
	}`

	rec := buildAndRun(t, doc)
	rows := rec.rows[0]
	require.Len(t, rows, 31)
	for day := 0; day < 30; day++ {
		require.InDelta(t, 10.0, rows[day]["demand_inflow"], 1e-6, "day %d", day)
	}
	require.InDelta(t, 0.0, rows[30]["demand_inflow"], 1e-6, "day 30")
}

// Scenario 5: mutual exclusivity between two parallel links routes every
// unit of flow through the higher-value link and leaves the other at 0.
func TestEndToEndMutualExclusivity(t *testing.T) {
	const doc = `{
	  "metadata": {"title": "mutual exclusivity"},
	  "timestepper": {"start": "2020-01-01", "end": "2020-01-04", "step": 1},
	  "scenarios": {},
	  "network": {
	    "nodes": [
	      {"type": "Input", "name": "supply", "max_flow": 10, "cost": 0},
	      {"type": "Link", "name": "link_a", "max_flow": 10},
	      {"type": "Link", "name": "link_b", "max_flow": 10},
	      {"type": "Output", "name": "demand_a", "max_flow": 10, "cost": -15},
	      {"type": "Output", "name": "demand_b", "max_flow": 10, "cost": -10},
	      {"type": "Aggregated", "name": "either_or", "nodes": ["link_a", "link_b"],
	       "relationship": {"exclusive": true, "max_active": 1}}
	    ],
	    "edges": [
	      {"from_node": "supply", "to_node": "link_a"},
	      {"from_node": "supply", "to_node": "link_b"},
	      {"from_node": "link_a", "to_node": "demand_a"},
	      {"from_node": "link_b", "to_node": "demand_b"}
	    ],
	    "metric_sets": [
	      {"name": "flows", "metrics": [
	        {"name": "a_outflow", "metric": {"type": "Node", "node": "link_a", "attribute": "outflow"}},
	        {"name": "b_outflow", "metric": {"type": "Node", "node": "link_b", "attribute": "outflow"}}
	      ]}
	    ]
	  }
	}`

	rec := buildAndRun(t, doc)
	rows := rec.rows[0]
	require.Len(t, rows, 3)
	for day, row := range rows {
		require.InDelta(t, 10.0, row["a_outflow"], 1e-6, "day %d", day)
		require.InDelta(t, 0.0, row["b_outflow"], 1e-6, "day %d", day)
	}
}

// Scenario 6: a 3-step delay holds the catchment's flow back; outflow
// reads the configured initial value for the first 3 steps, then 15.
func TestEndToEndDelay(t *testing.T) {
	const doc = `{
	  "metadata": {"title": "delay"},
	  "timestepper": {"start": "2020-01-01", "end": "2020-01-06", "step": 1},
	  "scenarios": {},
	  "network": {
	    "nodes": [
	      {"type": "Catchment", "name": "inflow", "flow": 15, "cost": 0},
	      {"type": "Delay", "name": "lag", "delay_steps": 3, "initial_value": 5, "cost": 1},
	      {"type": "Output", "name": "demand", "max_flow": 1000, "cost": -1}
	    ],
	    "edges": [
	      {"from_node": "inflow", "to_node": "lag"},
	      {"from_node": "lag", "to_node": "demand"}
	    ],
	    "metric_sets": [
	      {"name": "flows", "metrics": [
	        {"name": "demand_inflow", "metric": {"type": "Node", "node": "demand", "attribute": "inflow"}}
	      ]}
	    ]
	  }
	}`

	rec := buildAndRun(t, doc)
	rows := rec.rows[0]
	require.Len(t, rows, 5)
	for day := 0; day < 3; day++ {
		require.InDelta(t, 5.0, rows[day]["demand_inflow"], 1e-6, "day %d", day)
	}
	for day := 3; day < 5; day++ {
		require.InDelta(t, 15.0, rows[day]["demand_inflow"], 1e-6, "day %d", day)
	}
}
