package schema

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/network"
)

// ParamJSON is the tagged union over every built-in Parameter family, one
// flat struct carrying every kind's fields (unused fields are simply zero
// for a given Type), decoded via the "type" discriminator.
type ParamJSON struct {
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	Metrics []MetricJSON `json:"metrics,omitempty"`

	Value float64 `json:"value,omitempty"`

	Values []float64 `json:"values,omitempty"`
	Leap   bool      `json:"leap,omitempty"`
	Interp string    `json:"interpolation,omitempty"`

	Op string `json:"op,omitempty"`

	Coefficients []float64 `json:"coefficients,omitempty"`

	Points []float64 `json:"points,omitempty"`

	RisingFactor  float64 `json:"rising_factor,omitempty"`
	FallingFactor float64 `json:"falling_factor,omitempty"`

	Threshold   float64 `json:"threshold,omitempty"`
	Comparison  string  `json:"comparison,omitempty"`
	ValueTrue   float64 `json:"value_true,omitempty"`
	ValueFalse  float64 `json:"value_false,omitempty"`

	Steps   int     `json:"steps,omitempty"`
	Initial float64 `json:"initial,omitempty"`

	K float64 `json:"k,omitempty"`
	X float64 `json:"x,omitempty"`

	Table     string `json:"table,omitempty"`
	Column    string `json:"column,omitempty"`
	RowOffset int    `json:"row_offset,omitempty"`

	Callable string `json:"callable,omitempty"`

	StorageNode string   `json:"storage_node,omitempty"`
	Curves      []string `json:"curves,omitempty"`
}

// decodeParam turns one ParamJSON into a network.Parameter. m is used to
// build the Metrics list, which may reference nodes/edges already added.
func decodeParam(pj ParamJSON, m *network.Model) (network.Parameter, error) {
	if pj.Name == "" {
		return network.Parameter{}, apperror.New(apperror.CodeSchemaError, "parameter has no name")
	}

	metrics := make([]network.Metric, 0, len(pj.Metrics))
	for _, mj := range pj.Metrics {
		mm, err := resolveMetric(mj, m)
		if err != nil {
			return network.Parameter{}, apperror.Wrap(err, apperror.CodeSchemaError, fmt.Sprintf("parameter %q", pj.Name))
		}
		metrics = append(metrics, mm)
	}

	switch pj.Type {
	case "constant", "Constant":
		return network.Parameter{Name: pj.Name, Kind: network.ParamConstant, Config: network.ConstantParamConfig{Value: pj.Value}}, nil

	case "daily_profile", "DailyProfile":
		var arr [366]float64
		if len(pj.Values) > 366 {
			return network.Parameter{}, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("parameter %q: daily_profile has more than 366 values", pj.Name))
		}
		copy(arr[:], pj.Values)
		return network.Parameter{Name: pj.Name, Kind: network.ParamDailyProfile, Config: network.DailyProfileConfig{Values: arr, Leap: pj.Leap}}, nil

	case "monthly_profile", "MonthlyProfile":
		var arr [12]float64
		if len(pj.Values) != 12 {
			return network.Parameter{}, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("parameter %q: monthly_profile requires exactly 12 values", pj.Name))
		}
		copy(arr[:], pj.Values)
		interp := network.InterpNone
		if pj.Interp == "linear" {
			interp = network.InterpLinear
		}
		return network.Parameter{Name: pj.Name, Kind: network.ParamMonthlyProfile, Config: network.MonthlyProfileConfig{Values: arr, Interp: interp}}, nil

	case "aggregated", "Aggregated":
		op, err := parseAggregateOp(pj.Op)
		if err != nil {
			return network.Parameter{}, err
		}
		return network.Parameter{Name: pj.Name, Kind: network.ParamAggregated, Config: network.AggregatedParamConfig{Op: op}, Metrics: metrics}, nil

	case "control_curve_index", "ControlCurveIndex":
		if pj.StorageNode == "" {
			return network.Parameter{}, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("parameter %q: control_curve_index requires storage_node", pj.Name))
		}
		all := []network.Metric{network.NodeVolumeMetric(pj.StorageNode)}
		for _, c := range pj.Curves {
			all = append(all, network.ParameterValueMetric(c))
		}
		return network.Parameter{Name: pj.Name, Kind: network.ParamControlCurveIndex, Config: network.ControlCurveIndexConfig{}, Metrics: all}, nil

	case "polynomial", "Polynomial":
		return network.Parameter{Name: pj.Name, Kind: network.ParamPolynomial, Config: network.PolynomialConfig{Coefficients: pj.Coefficients}, Metrics: metrics}, nil

	case "interpolated", "Interpolated":
		if len(pj.Points) != len(pj.Values) {
			return network.Parameter{}, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("parameter %q: interpolated points/values length mismatch", pj.Name))
		}
		return network.Parameter{Name: pj.Name, Kind: network.ParamInterpolated, Config: network.InterpolatedConfig{Points: pj.Points, Values: pj.Values}, Metrics: metrics}, nil

	case "asymmetric", "Asymmetric":
		return network.Parameter{Name: pj.Name, Kind: network.ParamAsymmetric, Config: network.AsymmetricConfig{RisingFactor: pj.RisingFactor, FallingFactor: pj.FallingFactor}, Metrics: metrics}, nil

	case "threshold", "Threshold":
		op, err := parseThresholdOp(pj.Comparison)
		if err != nil {
			return network.Parameter{}, err
		}
		return network.Parameter{Name: pj.Name, Kind: network.ParamThreshold, Config: network.ThresholdConfig{Threshold: pj.Threshold, Op: op, ValueTrue: pj.ValueTrue, ValueFalse: pj.ValueFalse}, Metrics: metrics}, nil

	case "delay", "Delay":
		return network.Parameter{Name: pj.Name, Kind: network.ParamDelay, Config: network.DelayParamConfig{Steps: pj.Steps, Initial: pj.Initial}, Metrics: metrics}, nil

	case "muskingum", "Muskingum":
		return network.Parameter{Name: pj.Name, Kind: network.ParamMuskingum, Config: network.MuskingumConfig{K: pj.K, X: pj.X}, Metrics: metrics}, nil

	case "timeseries", "Timeseries":
		return network.Parameter{Name: pj.Name, Kind: network.ParamTimeseries, Config: network.TimeseriesParamConfig{Table: pj.Table, Column: pj.Column, RowOffset: pj.RowOffset}}, nil

	case "external", "External":
		return network.Parameter{Name: pj.Name, Kind: network.ParamExternal, Config: network.ExternalParamConfig{CallableName: pj.Callable}, Metrics: metrics}, nil

	default:
		return network.Parameter{}, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("parameter %q has unknown type %q", pj.Name, pj.Type))
	}
}

func parseThresholdOp(s string) (network.ThresholdOp, error) {
	switch s {
	case "lt", "<":
		return network.ThresholdLT, nil
	case "le", "<=":
		return network.ThresholdLE, nil
	case "gt", ">":
		return network.ThresholdGT, nil
	case "ge", ">=":
		return network.ThresholdGE, nil
	default:
		return 0, apperror.New(apperror.CodeSchemaError, fmt.Sprintf("unknown threshold comparison %q", s))
	}
}
