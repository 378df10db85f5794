package params

import (
	"pywr/internal/apperror"
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// externalFamily dispatches to an opaque, scenario-scoped Callable: the Go
// equivalent of an external Python-style parameter hook. It never holds a
// solver lock across the call: Compute/After run on the same goroutine as
// the rest of parameter evaluation, outside any LP critical section by
// construction, since the LP solve itself is a separate step in the
// per-timestep protocol.
type externalFamily struct{}

func (externalFamily) Compute(ts calendar.Timestep, ctx EvalContext, p *network.Parameter, _ *any) (float64, error) {
	cfg := p.Config.(network.ExternalParamConfig)
	callable, err := ctx.External(cfg.CallableName)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.CodeUserCodeError, "external parameter "+p.Name+" callable lookup failed").
			WithLocation("params", p.Name, -1, ts.Index)
	}
	v, err := callable.Compute(ts, ctx)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.CodeUserCodeError, "external parameter "+p.Name+" raised an error").
			WithLocation("params", p.Name, -1, ts.Index)
	}
	return v, nil
}

func (externalFamily) After(ts calendar.Timestep, ctx EvalContext, p *network.Parameter, value float64, _ *any) error {
	cfg := p.Config.(network.ExternalParamConfig)
	callable, err := ctx.External(cfg.CallableName)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeUserCodeError, "external parameter "+p.Name+" callable lookup failed").
			WithLocation("params", p.Name, -1, ts.Index)
	}
	if err := callable.After(ts, ctx, value); err != nil {
		return apperror.Wrap(err, apperror.CodeUserCodeError, "external parameter "+p.Name+" after-hook raised an error").
			WithLocation("params", p.Name, -1, ts.Index)
	}
	return nil
}
