package params

import (
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// thresholdFamily returns ValueTrue when the metric read from Metrics[0]
// satisfies Op against Threshold, ValueFalse otherwise — the building block
// for control-curve-like on/off switching logic.
type thresholdFamily struct{ NoAfter }

func (thresholdFamily) Compute(_ calendar.Timestep, ctx EvalContext, p *network.Parameter, _ *any) (float64, error) {
	cfg := p.Config.(network.ThresholdConfig)
	x, err := ctx.Metric(p.Metrics[0])
	if err != nil {
		return 0, err
	}

	var hit bool
	switch cfg.Op {
	case network.ThresholdLT:
		hit = x < cfg.Threshold
	case network.ThresholdLE:
		hit = x <= cfg.Threshold
	case network.ThresholdGT:
		hit = x > cfg.Threshold
	case network.ThresholdGE:
		hit = x >= cfg.Threshold
	}
	if hit {
		return cfg.ValueTrue, nil
	}
	return cfg.ValueFalse, nil
}
