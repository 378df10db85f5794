package params

import (
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// asymmetricFamily scales the metric read from Metrics[0] by RisingFactor
// when it increased since the previous timestep and FallingFactor when it
// decreased (or stayed flat), useful for cost curves that penalise drawdown
// differently from refill.
type asymmetricFamily struct{ NoAfter }

func (asymmetricFamily) Compute(_ calendar.Timestep, ctx EvalContext, p *network.Parameter, _ *any) (float64, error) {
	cfg := p.Config.(network.AsymmetricConfig)
	x, err := ctx.Metric(p.Metrics[0])
	if err != nil {
		return 0, err
	}

	prev, ok := ctx.PreviousMetricValue(p.Metrics[0])
	rising := ok && x > prev
	if rising {
		return x * cfg.RisingFactor, nil
	}
	return x * cfg.FallingFactor, nil
}
