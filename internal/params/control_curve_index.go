package params

import (
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// controlCurveIndexFamily returns the zero-based index of the first control
// curve (Metrics[1:], in declaration order) whose value the storage
// proportional volume (Metrics[0]) is at or above, or len(Metrics)-1 if the
// volume is below every curve. A storage node at 100% volume returns 0; one
// below the lowest curve returns the highest index.
type controlCurveIndexFamily struct{ NoAfter }

func (controlCurveIndexFamily) Compute(_ calendar.Timestep, ctx EvalContext, p *network.Parameter, _ *any) (float64, error) {
	if len(p.Metrics) < 2 {
		return 0, nil
	}
	volume, err := ctx.Metric(p.Metrics[0])
	if err != nil {
		return 0, err
	}
	for i, curveMetric := range p.Metrics[1:] {
		curve, err := ctx.Metric(curveMetric)
		if err != nil {
			return 0, err
		}
		if volume >= curve {
			return float64(i), nil
		}
	}
	return float64(len(p.Metrics) - 1), nil
}
