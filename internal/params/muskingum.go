package params

import (
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// muskingumState carries the previous timestep's inflow and outflow, the
// two terms the recursion needs beyond the current inflow.
type muskingumState struct {
	prevInflow  float64
	prevOutflow float64
	primed      bool
}

// muskingumFamily implements the classic Muskingum flow-routing recursion
// O_t = C0*I_t + C1*I_{t-1} + C2*O_{t-1}, deriving C0/C1/C2 from the
// timestep length, K (storage time constant, days), and X (weighting
// factor) once per evaluation — cheap relative to the LP solve it feeds.
type muskingumFamily struct{}

func (muskingumFamily) Compute(ts calendar.Timestep, ctx EvalContext, p *network.Parameter, carry *any) (float64, error) {
	cfg := p.Config.(network.MuskingumConfig)
	inflow, err := ctx.Metric(p.Metrics[0])
	if err != nil {
		return 0, err
	}

	st, ok := (*carry).(*muskingumState)
	if !ok {
		st = &muskingumState{}
		*carry = st
	}
	if !st.primed {
		// First timestep: no routing history yet, outflow tracks inflow.
		st.prevInflow = inflow
		st.prevOutflow = inflow
		st.primed = true
		return inflow, nil
	}

	dt := float64(ts.Days)
	k := cfg.K
	x := cfg.X
	denom := 2*k*(1-x) + dt
	c0 := (dt - 2*k*x) / denom
	c1 := (dt + 2*k*x) / denom
	c2 := (2*k*(1-x) - dt) / denom

	outflow := c0*inflow + c1*st.prevInflow + c2*st.prevOutflow
	if outflow < 0 {
		outflow = 0
	}
	return outflow, nil
}

// After commits this timestep's inflow/outflow into the carry once the LP
// solve has resolved the actual flow, so the next timestep's recursion uses
// the realised values rather than the pre-solve estimate.
func (muskingumFamily) After(_ calendar.Timestep, ctx EvalContext, p *network.Parameter, value float64, carry *any) error {
	st, ok := (*carry).(*muskingumState)
	if !ok {
		return nil
	}
	inflow, err := ctx.Metric(p.Metrics[0])
	if err != nil {
		return err
	}
	st.prevInflow = inflow
	st.prevOutflow = value
	return nil
}
