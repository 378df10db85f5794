package params

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pywr/internal/calendar"
	"pywr/internal/network"
)

// fakeCtx is a minimal EvalContext used to exercise families in isolation
// via table-driven tests.
type fakeCtx struct {
	constants map[string]float64 // keyed by a synthetic metric identity
	arena     *Arena
	ts        calendar.Timestep
	prevTS    *calendar.Timestep
	tables    map[string]map[string][]float64
}

func (f *fakeCtx) Metric(m network.Metric) (float64, error) {
	switch m.Kind {
	case network.MetricConstant:
		return m.Constant, nil
	case network.MetricParameterValue:
		return f.arena.Evaluate(m.ParameterName, f.ts, f)
	default:
		return 0, nil
	}
}

func (f *fakeCtx) PreviousMetricValue(m network.Metric) (float64, bool) {
	if m.Kind == network.MetricConstant {
		return m.Constant, true
	}
	return 0, false
}

func (f *fakeCtx) ParamValue(name string) (float64, error) {
	return f.arena.Evaluate(name, f.ts, f)
}

func (f *fakeCtx) PreviousParamValue(name string) (float64, bool) {
	return f.arena.PreviousValue(name)
}

func (f *fakeCtx) Table(table, column string, rowOffset int) (float64, error) {
	col := f.tables[table][column]
	idx := f.ts.Index + rowOffset
	if idx < 0 || idx >= len(col) {
		return 0, nil
	}
	return col[idx], nil
}

func (f *fakeCtx) External(name string) (Callable, error) {
	return nil, nil
}

func TestArena_ConstantAndPolynomial(t *testing.T) {
	defs := []network.Parameter{
		{Name: "base", Kind: network.ParamConstant, Config: network.ConstantParamConfig{Value: 3}},
		{
			Name:    "squared_plus_one",
			Kind:    network.ParamPolynomial,
			Config:  network.PolynomialConfig{Coefficients: []float64{1, 0, 1}},
			Metrics: []network.Metric{network.ParameterValueMetric("base")},
		},
	}
	a, err := NewArena(defs)
	require.NoError(t, err)

	ctx := &fakeCtx{arena: a, ts: calendar.Timestep{Index: 0}}
	v, err := a.Evaluate("squared_plus_one", ctx.ts, ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(10), v) // 3^2 + 1
}

func TestArena_DailyProfile(t *testing.T) {
	var values [366]float64
	values[0] = 11
	values[364] = 22
	defs := []network.Parameter{
		{Name: "p", Kind: network.ParamDailyProfile, Config: network.DailyProfileConfig{Values: values}},
	}
	a, err := NewArena(defs)
	require.NoError(t, err)
	ctx := &fakeCtx{arena: a, ts: calendar.Timestep{Index: 0, DOY: 1, Year: 2023}}
	v, err := a.Evaluate("p", ctx.ts, ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(11), v)
}

func TestArena_DelayParameter(t *testing.T) {
	defs := []network.Parameter{
		{
			Name:    "lagged",
			Kind:    network.ParamDelay,
			Config:  network.DelayParamConfig{Steps: 2, Initial: 0},
			Metrics: []network.Metric{network.ConstantMetric(5)},
		},
	}
	a, err := NewArena(defs)
	require.NoError(t, err)

	var got []float64
	for i := 0; i < 4; i++ {
		ts := calendar.Timestep{Index: i}
		a.BeginTimestep()
		ctx := &fakeCtx{arena: a, ts: ts}
		v, err := a.Evaluate("lagged", ts, ctx)
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []float64{0, 0, 5, 5}, got)
}

func TestArena_MonthlyProfileNoInterp(t *testing.T) {
	var values [12]float64
	values[0] = 100
	values[5] = 200
	defs := []network.Parameter{
		{Name: "p", Kind: network.ParamMonthlyProfile, Config: network.MonthlyProfileConfig{Values: values}},
	}
	a, err := NewArena(defs)
	require.NoError(t, err)
	ts := calendar.Timestep{Index: 0, Month: time.June, Day: 15, Year: 2023}
	ctx := &fakeCtx{arena: a, ts: ts}
	v, err := a.Evaluate("p", ts, ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(200), v)
}
