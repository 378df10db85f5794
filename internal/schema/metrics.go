package schema

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/network"
)

// MetricJSON is the tagged union over every Metric variant: Constant,
// Parameter/ParameterValue (an alias pair — both read a named parameter's
// current value), Node (Attribute selects Inflow/Outflow/Volume/Loss),
// Edge (identified by its endpoints, since edges carry no name of their
// own), Timeseries, AggregatedMetric, and Default (a metric with no real
// accessor, used as a placeholder that always reads as a constant).
type MetricJSON struct {
	Type string `json:"type"`

	Value float64 `json:"value,omitempty"`

	Parameter string `json:"parameter,omitempty"`

	Node      string `json:"node,omitempty"`
	Attribute string `json:"attribute,omitempty"`

	FromNode string `json:"from_node,omitempty"`
	ToNode   string `json:"to_node,omitempty"`
	FromSlot string `json:"from_slot,omitempty"`
	ToSlot   string `json:"to_slot,omitempty"`

	Table  string `json:"table,omitempty"`
	Column string `json:"column,omitempty"`
	Row    *int   `json:"row,omitempty"`

	Op      string       `json:"op,omitempty"`
	Metrics []MetricJSON `json:"metrics,omitempty"`

	Default *float64 `json:"default,omitempty"`
}

// resolveMetric turns one MetricJSON into a network.Metric. edgeID resolves
// `Edge` variants by endpoint names, which requires every node and edge to
// already be registered on m — callers must decode metrics only after the
// full node/edge set has been added.
func resolveMetric(mj MetricJSON, m *network.Model) (network.Metric, error) {
	switch mj.Type {
	case "Constant":
		return network.ConstantMetric(mj.Value), nil

	case "Parameter", "ParameterValue":
		if mj.Parameter == "" {
			return network.Metric{}, apperror.New(apperror.CodeSchemaError, "Parameter metric missing \"parameter\" field")
		}
		return network.ParameterValueMetric(mj.Parameter), nil

	case "Node":
		if mj.Node == "" {
			return network.Metric{}, apperror.New(apperror.CodeSchemaError, "Node metric missing \"node\" field")
		}
		switch mj.Attribute {
		case "", "inflow":
			return network.NodeInflowMetric(mj.Node), nil
		case "outflow":
			return network.NodeOutflowMetric(mj.Node), nil
		case "volume":
			return network.NodeVolumeMetric(mj.Node), nil
		case "loss":
			return network.Metric{Kind: network.MetricNodeLoss, NodeName: mj.Node}, nil
		default:
			return network.Metric{}, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("Node metric has unknown attribute %q", mj.Attribute))
		}

	case "Edge":
		edgeID := findEdge(m, mj.FromNode, mj.ToNode, mj.FromSlot, mj.ToSlot)
		if edgeID < 0 {
			return network.Metric{}, apperror.New(apperror.CodeSchemaError,
				fmt.Sprintf("Edge metric references unknown edge %s->%s", mj.FromNode, mj.ToNode))
		}
		return network.Metric{Kind: network.MetricEdgeFlow, EdgeID: edgeID}, nil

	case "Timeseries":
		row := -1
		if mj.Row != nil {
			row = *mj.Row
		}
		return network.Metric{Kind: network.MetricTimeseries, TimeseriesTable: mj.Table, TimeseriesColumn: mj.Column, TimeseriesRow: row}, nil

	case "AggregatedMetric":
		op, err := parseAggregateOp(mj.Op)
		if err != nil {
			return network.Metric{}, err
		}
		operands := make([]network.Metric, 0, len(mj.Metrics))
		for _, sub := range mj.Metrics {
			om, err := resolveMetric(sub, m)
			if err != nil {
				return network.Metric{}, err
			}
			operands = append(operands, om)
		}
		return network.Metric{Kind: network.MetricAggregated, AggregateOp: op, Operands: operands}, nil

	case "Default", "":
		v := 0.0
		if mj.Default != nil {
			v = *mj.Default
		}
		return network.ConstantMetric(v), nil

	default:
		return network.Metric{}, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("unknown metric type %q", mj.Type))
	}
}

func findEdge(m *network.Model, fromNode, toNode, fromSlot, toSlot string) int {
	fromID := m.NodeID(fromNode)
	toID := m.NodeID(toNode)
	if fromID < 0 || toID < 0 {
		return -1
	}
	for _, e := range m.EdgesFrom(fromID) {
		if e.To == toID && string(e.FromSlot) == fromSlot && string(e.ToSlot) == toSlot {
			return e.ID
		}
	}
	return -1
}

func parseAggregateOp(s string) (network.AggregateOp, error) {
	switch s {
	case "sum", "":
		return network.AggSum, nil
	case "product":
		return network.AggProduct, nil
	case "min":
		return network.AggMin, nil
	case "max":
		return network.AggMax, nil
	case "mean":
		return network.AggMean, nil
	default:
		return 0, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("unknown aggregation op %q", s))
	}
}

// MetricSetJSON mirrors network.MetricSet.
type MetricSetJSON struct {
	Name       string           `json:"name"`
	Metrics    []NamedMetricJSON `json:"metrics"`
	Aggregator *AggregatorJSON  `json:"aggregator,omitempty"`
}

// NamedMetricJSON pairs a column name with its metric.
type NamedMetricJSON struct {
	Name   string     `json:"name"`
	Metric MetricJSON `json:"metric"`
}

// AggregatorJSON mirrors network.Aggregator.
type AggregatorJSON struct {
	Frequency  string  `json:"frequency,omitempty"`
	Function   string  `json:"function,omitempty"`
	Percentile float64 `json:"percentile,omitempty"`
}

func (a *AggregatorJSON) toAggregator() (*network.Aggregator, error) {
	if a == nil {
		return nil, nil
	}
	freq, err := parseFrequency(a.Frequency)
	if err != nil {
		return nil, err
	}
	fn, err := parseFunction(a.Function)
	if err != nil {
		return nil, err
	}
	return &network.Aggregator{Frequency: freq, Function: fn, Percentile: a.Percentile}, nil
}

func parseFrequency(s string) (network.AggregatorFrequency, error) {
	switch s {
	case "", "none":
		return network.FreqNone, nil
	case "monthly":
		return network.FreqMonthly, nil
	case "annual":
		return network.FreqAnnual, nil
	case "run":
		return network.FreqRun, nil
	default:
		return 0, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("unknown aggregator frequency %q", s))
	}
}

func parseFunction(s string) (network.AggregatorFunction, error) {
	switch s {
	case "", "mean":
		return network.FnMean, nil
	case "sum":
		return network.FnSum, nil
	case "min":
		return network.FnMin, nil
	case "max":
		return network.FnMax, nil
	case "percentile":
		return network.FnPercentile, nil
	default:
		return 0, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("unknown aggregator function %q", s))
	}
}
