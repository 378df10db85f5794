package params

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// Arena is the dense, contiguous store of parameter families and their
// per-scenario evaluated values/carry, indexed by a dense ParamId to avoid
// heap indirection on every timestep. One Arena is owned by exactly one
// scenario worker for the life of that scenario's run.
type Arena struct {
	defs     []network.Parameter
	families []Family
	byName   map[string]int

	values    []float64
	hasValue  []bool
	prevValue []float64
	hasPrev   []bool
	carry     []any
}

// NewArena builds one Family instance per declared parameter, dispatching on
// Kind exactly once.
func NewArena(defs []network.Parameter) (*Arena, error) {
	a := &Arena{
		defs:      defs,
		families:  make([]Family, len(defs)),
		byName:    make(map[string]int, len(defs)),
		values:    make([]float64, len(defs)),
		hasValue:  make([]bool, len(defs)),
		prevValue: make([]float64, len(defs)),
		hasPrev:   make([]bool, len(defs)),
		carry:     make([]any, len(defs)),
	}
	for i, p := range defs {
		a.byName[p.Name] = i
		f, err := buildFamily(p.Kind)
		if err != nil {
			return nil, err
		}
		a.families[i] = f
	}
	return a, nil
}

func buildFamily(kind network.ParamKind) (Family, error) {
	switch kind {
	case network.ParamConstant:
		return constantFamily{}, nil
	case network.ParamDailyProfile:
		return dailyProfileFamily{}, nil
	case network.ParamMonthlyProfile:
		return monthlyProfileFamily{}, nil
	case network.ParamAggregated:
		return aggregatedFamily{}, nil
	case network.ParamControlCurveIndex:
		return controlCurveIndexFamily{}, nil
	case network.ParamPolynomial:
		return polynomialFamily{}, nil
	case network.ParamInterpolated:
		return interpolatedFamily{}, nil
	case network.ParamAsymmetric:
		return asymmetricFamily{}, nil
	case network.ParamThreshold:
		return thresholdFamily{}, nil
	case network.ParamDelay:
		return delayFamily{}, nil
	case network.ParamMuskingum:
		return muskingumFamily{}, nil
	case network.ParamTimeseries:
		return timeseriesFamily{}, nil
	case network.ParamExternal:
		return externalFamily{}, nil
	default:
		return nil, apperror.New(apperror.CodeBuildError, fmt.Sprintf("unknown parameter kind %v", kind))
	}
}

// Index returns the dense ParamId for a named parameter, -1 if unknown.
func (a *Arena) Index(name string) int {
	if i, ok := a.byName[name]; ok {
		return i
	}
	return -1
}

// Len returns the number of parameters in the arena.
func (a *Arena) Len() int { return len(a.defs) }

// Def returns the declaration for the parameter at idx.
func (a *Arena) Def(idx int) *network.Parameter { return &a.defs[idx] }

// BeginTimestep rolls this timestep's values into "previous" and clears the
// evaluated-this-step cache, called once per scenario per timestep before
// any Const/Simple/General evaluation begins.
func (a *Arena) BeginTimestep() {
	copy(a.prevValue, a.values)
	for i := range a.hasPrev {
		a.hasPrev[i] = a.hasValue[i]
	}
	for i := range a.hasValue {
		a.hasValue[i] = false
	}
}

// Evaluate computes (and caches) the named parameter's value for the
// current timestep, recursing into EvalContext.ParamValue for any
// dependency not yet evaluated this step — which never happens for a model
// the resolver has ordered correctly, but is handled defensively since a
// caller could invoke Evaluate out of order.
func (a *Arena) Evaluate(name string, ts calendar.Timestep, ctx EvalContext) (float64, error) {
	idx, ok := a.byName[name]
	if !ok {
		return 0, apperror.New(apperror.CodeDataError, "parameter not found: "+name).WithField("metric.parameter")
	}
	if a.hasValue[idx] {
		return a.values[idx], nil
	}
	v, err := a.families[idx].Compute(ts, ctx, &a.defs[idx], &a.carry[idx])
	if err != nil {
		return 0, apperror.Wrap(err, apperror.CodeDataError, "parameter evaluation failed: "+name).
			WithLocation("params", name, -1, ts.Index)
	}
	a.values[idx] = v
	a.hasValue[idx] = true
	return v, nil
}

// After runs the named parameter's post-solve hook, if any.
func (a *Arena) After(name string, ts calendar.Timestep, ctx EvalContext) error {
	idx, ok := a.byName[name]
	if !ok {
		return apperror.New(apperror.CodeDataError, "parameter not found: "+name)
	}
	if !a.hasValue[idx] {
		return apperror.New(apperror.CodeStateError, "after-solve hook run before parameter evaluated: "+name)
	}
	return a.families[idx].After(ts, ctx, &a.defs[idx], a.values[idx], &a.carry[idx])
}

// Value returns the named parameter's value already computed this
// timestep, and whether it has been computed.
func (a *Arena) Value(name string) (float64, bool) {
	idx, ok := a.byName[name]
	if !ok {
		return 0, false
	}
	return a.values[idx], a.hasValue[idx]
}

// PreviousValue returns the named parameter's value from the prior
// timestep, and whether one exists.
func (a *Arena) PreviousValue(name string) (float64, bool) {
	idx, ok := a.byName[name]
	if !ok {
		return 0, false
	}
	return a.prevValue[idx], a.hasPrev[idx]
}
