package schema

import (
	"encoding/json"

	"pywr/internal/network"
)

// MetricRefJSON decodes either a bare numeric literal (a constant) or an
// object `{"parameter": "name"}` (a named parameter reference), matching
// network.ParamRef's two modes.
type MetricRefJSON struct {
	hasConstant bool
	constant    float64
	parameter   string
}

func (m *MetricRefJSON) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		m.hasConstant = true
		m.constant = f
		return nil
	}
	var obj struct {
		Parameter string `json:"parameter"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	m.parameter = obj.Parameter
	return nil
}

func (m *MetricRefJSON) toParamRef() network.ParamRef {
	if m == nil {
		return network.ParamRef{}
	}
	if m.parameter != "" {
		return network.ParamRef{Name: m.parameter}
	}
	return network.ParamRef{Constant: m.constant}
}

// InitialVolumeJSON decodes `{"absolute": v}` or `{"proportional": p}`.
type InitialVolumeJSON struct {
	Absolute     *float64 `json:"absolute,omitempty"`
	Proportional *float64 `json:"proportional,omitempty"`
}

func (v *InitialVolumeJSON) toInitialVolume() network.InitialVolume {
	if v == nil {
		return network.InitialVolume{}
	}
	if v.Proportional != nil {
		return network.InitialVolume{Proportional: *v.Proportional, IsProportional: true}
	}
	if v.Absolute != nil {
		return network.InitialVolume{Absolute: *v.Absolute}
	}
	return network.InitialVolume{}
}
