package params

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// aggregatedFamily reduces every declared metric with the configured
// AggregateOp: Sum, Product, Min, Max, or Mean.
type aggregatedFamily struct{ NoAfter }

func (aggregatedFamily) Compute(_ calendar.Timestep, ctx EvalContext, p *network.Parameter, _ *any) (float64, error) {
	cfg := p.Config.(network.AggregatedParamConfig)
	if len(p.Metrics) == 0 {
		return 0, apperror.New(apperror.CodeBuildError, fmt.Sprintf("aggregated parameter %q has no operands", p.Name))
	}

	values := make([]float64, len(p.Metrics))
	for i, m := range p.Metrics {
		v, err := ctx.Metric(m)
		if err != nil {
			return 0, err
		}
		values[i] = v
	}

	switch cfg.Op {
	case network.AggSum:
		return sumF(values), nil
	case network.AggProduct:
		out := 1.0
		for _, v := range values {
			out *= v
		}
		return out, nil
	case network.AggMin:
		out := values[0]
		for _, v := range values[1:] {
			if v < out {
				out = v
			}
		}
		return out, nil
	case network.AggMax:
		out := values[0]
		for _, v := range values[1:] {
			if v > out {
				out = v
			}
		}
		return out, nil
	case network.AggMean:
		return sumF(values) / float64(len(values)), nil
	default:
		return 0, apperror.New(apperror.CodeBuildError, fmt.Sprintf("aggregated parameter %q has unknown op %v", p.Name, cfg.Op))
	}
}

func sumF(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}
