package params

import (
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// constantFamily always returns its declared value, the simplest possible
// Const-class parameter.
type constantFamily struct{ NoAfter }

func (constantFamily) Compute(_ calendar.Timestep, _ EvalContext, p *network.Parameter, _ *any) (float64, error) {
	return p.Config.(network.ConstantParamConfig).Value, nil
}
