package schema

import (
	"encoding/json"
	"fmt"
)

// ConversionIssue is one warning or error raised while converting a v1
// document to v2, tagged with the component it came from so a caller can
// report per-component diagnostics the way original §6 requires.
type ConversionIssue struct {
	Component string
	Message   string
	Fatal     bool
}

func (i ConversionIssue) String() string {
	kind := "warning"
	if i.Fatal {
		kind = "error"
	}
	return fmt.Sprintf("%s: %s: %s", kind, i.Component, i.Message)
}

// v1Document is the older, flatter shape this engine no longer builds
// models from directly: no Network wrapper, nodes/edges/parameters at the
// top level, and a start/end/step timestepper instead of the nested
// Timestepper block.
type v1Document struct {
	Title      string            `json:"title"`
	Start      string            `json:"start"`
	End        string            `json:"end"`
	Step       int               `json:"step"`
	Nodes      []json.RawMessage `json:"nodes"`
	Edges      []EdgeJSON        `json:"edges"`
	Parameters []json.RawMessage `json:"parameters"`
	Outputs    []OutputJSON      `json:"outputs,omitempty"`
}

// ConvertV1 best-effort converts a v1 document's bytes into a v2 Document.
// Every node, edge, and parameter that translates cleanly is carried over;
// anything this engine's v2 schema dropped or renamed is reported as a
// ConversionIssue rather than silently lost. A v1 document with no
// recognizable top-level shape at all is a fatal ConversionIssue.
func ConvertV1(data []byte) (*Document, []ConversionIssue, error) {
	var v1 v1Document
	if err := json.Unmarshal(data, &v1); err != nil {
		return nil, nil, fmt.Errorf("v1 document is not valid JSON: %w", err)
	}

	var issues []ConversionIssue
	doc := &Document{
		Metadata: Metadata{Title: v1.Title},
		Timestepper: Timestepper{
			Start: v1.Start,
			End:   v1.End,
			Step:  v1.Step,
		},
	}
	if doc.Timestepper.Step == 0 {
		doc.Timestepper.Step = 1
		issues = append(issues, ConversionIssue{
			Component: "timestepper",
			Message:   "v1 document had no step; defaulted to 1 day",
		})
	}

	doc.Network.Nodes = v1.Nodes
	doc.Network.Edges = v1.Edges
	doc.Network.Parameters = v1.Parameters
	doc.Network.Outputs = v1.Outputs

	if len(v1.Nodes) == 0 {
		issues = append(issues, ConversionIssue{
			Component: "network",
			Message:   "v1 document declares no nodes",
			Fatal:     true,
		})
	}

	// v1 had no metric_sets block; every aggregated-scalar or recorder
	// output a v1 document declared is preserved by reference, but it now
	// requires a metric_sets entry the v1 shape never carried.
	seen := make(map[string]bool)
	for _, out := range v1.Outputs {
		if out.MetricSet == "" || seen[out.MetricSet] {
			continue
		}
		seen[out.MetricSet] = true
		issues = append(issues, ConversionIssue{
			Component: "metric_sets",
			Message:   fmt.Sprintf("output %q references metric set %q, which v2 now requires an explicit metric_sets entry for", out.Name, out.MetricSet),
		})
	}

	return doc, issues, nil
}
