package params

import (
	"pywr/internal/apperror"
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// interpolatedFamily piecewise-linearly interpolates Values over Points at
// the metric read from Metrics[0], clamping to the end values outside the
// declared range rather than extrapolating.
type interpolatedFamily struct{ NoAfter }

func (interpolatedFamily) Compute(_ calendar.Timestep, ctx EvalContext, p *network.Parameter, _ *any) (float64, error) {
	cfg := p.Config.(network.InterpolatedConfig)
	if len(cfg.Points) < 2 || len(cfg.Points) != len(cfg.Values) {
		return 0, apperror.New(apperror.CodeBuildError, "interpolated parameter "+p.Name+" needs >=2 matching points/values")
	}
	if len(p.Metrics) == 0 {
		return 0, apperror.New(apperror.CodeBuildError, "interpolated parameter "+p.Name+" has no input metric")
	}

	x, err := ctx.Metric(p.Metrics[0])
	if err != nil {
		return 0, err
	}

	if x <= cfg.Points[0] {
		return cfg.Values[0], nil
	}
	last := len(cfg.Points) - 1
	if x >= cfg.Points[last] {
		return cfg.Values[last], nil
	}
	for i := 0; i < last; i++ {
		if x >= cfg.Points[i] && x <= cfg.Points[i+1] {
			span := cfg.Points[i+1] - cfg.Points[i]
			if span == 0 {
				return cfg.Values[i], nil
			}
			frac := (x - cfg.Points[i]) / span
			return cfg.Values[i]*(1-frac) + cfg.Values[i+1]*frac, nil
		}
	}
	return cfg.Values[last], nil
}
