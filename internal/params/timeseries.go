package params

import (
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// timeseriesFamily reads one column of a named table, row-aligned to the
// current timestep and shifted by RowOffset (used for lagged references).
type timeseriesFamily struct{ NoAfter }

func (timeseriesFamily) Compute(_ calendar.Timestep, ctx EvalContext, p *network.Parameter, _ *any) (float64, error) {
	cfg := p.Config.(network.TimeseriesParamConfig)
	return ctx.Table(cfg.Table, cfg.Column, cfg.RowOffset)
}
