package params

import (
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// polynomialFamily evaluates sum(Coefficients[i] * x^i) at the single metric
// Metrics[0], using Horner's method.
type polynomialFamily struct{ NoAfter }

func (polynomialFamily) Compute(_ calendar.Timestep, ctx EvalContext, p *network.Parameter, _ *any) (float64, error) {
	cfg := p.Config.(network.PolynomialConfig)
	var x float64
	if len(p.Metrics) > 0 {
		v, err := ctx.Metric(p.Metrics[0])
		if err != nil {
			return 0, err
		}
		x = v
	}

	var out float64
	for i := len(cfg.Coefficients) - 1; i >= 0; i-- {
		out = out*x + cfg.Coefficients[i]
	}
	return out, nil
}
