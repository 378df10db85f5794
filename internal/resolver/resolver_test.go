package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pywr/internal/apperror"
	"pywr/internal/network"
)

func paramConst(name string, value float64) network.Parameter {
	return network.Parameter{Name: name, Kind: network.ParamConstant, Config: network.ConstantParamConfig{Value: value}}
}

func TestResolve_Classification(t *testing.T) {
	m := network.New()
	m.AddParameter(paramConst("base", 1))
	m.AddParameter(network.Parameter{
		Name:    "double_base",
		Kind:    network.ParamPolynomial,
		Config:  network.PolynomialConfig{Coefficients: []float64{0, 2}},
		Metrics: []network.Metric{network.ParameterValueMetric("base")},
	})
	m.AddParameter(network.Parameter{
		Name: "ts",
		Kind: network.ParamTimeseries,
		Metrics: []network.Metric{
			{Kind: network.MetricTimeseries, TimeseriesColumn: "demand", TimeseriesRow: -1},
		},
	})
	m.AddParameter(network.Parameter{
		Name:    "flow_based",
		Kind:    network.ParamThreshold,
		Metrics: []network.Metric{network.NodeInflowMetric("reservoir")},
	})

	res, err := Resolve(m)
	require.NoError(t, err)

	assert.Equal(t, ClassConst, res.ClassOf("base"))
	assert.Equal(t, ClassConst, res.ClassOf("double_base"))
	assert.Equal(t, ClassSimple, res.ClassOf("ts"))
	assert.Equal(t, ClassGeneral, res.ClassOf("flow_based"))

	assert.ElementsMatch(t, []string{"base", "double_base"}, res.ConstOrder)
	assert.Equal(t, []string{"ts"}, res.SimpleOrder)
	assert.Equal(t, []string{"flow_based"}, res.GeneralOrder)

	// base must precede double_base since the latter depends on it.
	baseIdx, doubleIdx := -1, -1
	for i, n := range res.ConstOrder {
		if n == "base" {
			baseIdx = i
		}
		if n == "double_base" {
			doubleIdx = i
		}
	}
	assert.Less(t, baseIdx, doubleIdx)
}

func TestResolve_CircularDependency(t *testing.T) {
	m := network.New()
	m.AddParameter(network.Parameter{
		Name:    "a",
		Kind:    network.ParamPolynomial,
		Metrics: []network.Metric{network.ParameterValueMetric("b")},
	})
	m.AddParameter(network.Parameter{
		Name:    "b",
		Kind:    network.ParamPolynomial,
		Metrics: []network.Metric{network.ParameterValueMetric("a")},
	})

	_, err := Resolve(m)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeSchemaError, apperror.Code(err))
}

func TestResolve_SelfDependency(t *testing.T) {
	m := network.New()
	m.AddParameter(network.Parameter{
		Name:    "a",
		Kind:    network.ParamPolynomial,
		Metrics: []network.Metric{network.ParameterValueMetric("a")},
	})

	_, err := Resolve(m)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeSchemaError, apperror.Code(err))
}

func TestResolve_AggregatedNestedDependency(t *testing.T) {
	m := network.New()
	m.AddParameter(paramConst("x", 1))
	m.AddParameter(paramConst("y", 2))
	m.AddParameter(network.Parameter{
		Name: "agg",
		Kind: network.ParamAggregated,
		Config: network.AggregatedParamConfig{Op: network.AggSum},
		Metrics: []network.Metric{
			{Kind: network.MetricAggregated, AggregateOp: network.AggSum, Operands: []network.Metric{
				network.ParameterValueMetric("x"),
				network.ParameterValueMetric("y"),
			}},
		},
	})

	res, err := Resolve(m)
	require.NoError(t, err)
	assert.Equal(t, ClassConst, res.ClassOf("agg"))
	assert.Equal(t, []string{"x", "y", "agg"}, res.ConstOrder)
}

func TestResolve_DanglingReference(t *testing.T) {
	m := network.New()
	m.AddParameter(network.Parameter{
		Name:    "a",
		Kind:    network.ParamPolynomial,
		Metrics: []network.Metric{network.ParameterValueMetric("missing")},
	})

	_, err := Resolve(m)
	require.Error(t, err)
}
