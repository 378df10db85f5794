// Package schema is the JSON boundary of the engine: it defines Go structs
// with json tags mirroring the model description a caller hands to
// Build, and Build's job is exactly and only turning that description into
// a *network.Model (plus the table store backing Timeseries lookups).
// Tagged unions (nodes, parameters, metrics) are decoded via a "type"
// discriminator field with deferred json.RawMessage decoding for the
// variant-specific payload, the idiomatic Go substitute for a sum type
// across package boundaries — there is no tagged-union library anywhere in
// the corpus, so this stays on stdlib encoding/json (see DESIGN.md).
package schema

import "encoding/json"

// Document is the top-level model description.
type Document struct {
	Metadata    Metadata       `json:"metadata"`
	Timestepper Timestepper    `json:"timestepper"`
	Scenarios   ScenariosBlock `json:"scenarios"`
	Network     NetworkBlock   `json:"network"`
}

// Metadata mirrors network.Metadata.
type Metadata struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	MinimumVersion string `json:"minimum_version,omitempty"`
}

// Timestepper describes the run's calendar; Start/End are "2006-01-02"
// dates and Step is the step length in days.
type Timestepper struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Step  int    `json:"step"`
}

// ScenarioGroupJSON is one axis of the scenario grid. Members is the
// explicit label list; if omitted and Size > 0, labels are synthesized as
// "0".."Size-1". Subset restricts this axis to a named sub-list of members
// without altering declaration order.
type ScenarioGroupJSON struct {
	Name    string   `json:"name"`
	Size    int      `json:"size,omitempty"`
	Labels  []string `json:"labels,omitempty"`
	Subset  []string `json:"subset,omitempty"`
}

// ScenariosBlock optionally restricts the cartesian product of Groups to
// an explicit list of Combinations (one member label per group, in group
// declaration order).
type ScenariosBlock struct {
	Groups       []ScenarioGroupJSON `json:"groups,omitempty"`
	Combinations [][]string          `json:"combinations,omitempty"`
}

// NetworkBlock holds every entity collection the network is built from.
// Nodes and Parameters are tagged unions, decoded in two passes (see
// nodes.go / params.go); everything else has one fixed shape.
type NetworkBlock struct {
	Nodes      []json.RawMessage `json:"nodes,omitempty"`
	Edges      []EdgeJSON        `json:"edges,omitempty"`
	Parameters []json.RawMessage `json:"parameters,omitempty"`
	Timeseries []TimeseriesJSON  `json:"timeseries,omitempty"`
	Tables     []TableJSON       `json:"tables,omitempty"`
	MetricSets []MetricSetJSON   `json:"metric_sets,omitempty"`
	Outputs    []OutputJSON      `json:"outputs,omitempty"`
}

// EdgeJSON is a directed connection between two named nodes, optionally
// through a named slot on either end.
type EdgeJSON struct {
	FromNode string `json:"from_node"`
	ToNode   string `json:"to_node"`
	FromSlot string `json:"from_slot,omitempty"`
	ToSlot   string `json:"to_slot,omitempty"`
}

// TimeseriesJSON declares a single-column table loaded from a CSV file at
// URL, registered under Name for Timeseries parameter/metric lookups.
type TimeseriesJSON struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	Column     string `json:"column,omitempty"`
	DateColumn string `json:"date_column,omitempty"`
}

// TableJSON declares a (possibly multi-column) CSV-backed lookup table.
type TableJSON struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	DateColumn string `json:"date_column,omitempty"`
}

// OutputJSON mirrors network.Output.
type OutputJSON struct {
	Name          string `json:"name"`
	MetricSet     string `json:"metric_set"`
	Kind          string `json:"kind"`
	Path          string `json:"path"`
	DecimalPlaces int    `json:"decimal_places,omitempty"`
}
