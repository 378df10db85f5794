package params

import (
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// delayState is the FIFO ring buffer carried between timesteps by a Delay
// *parameter* (distinct from the Delay *node*, internal/simulator's
// state_delay.go): it lags its input metric by Steps timesteps.
type delayState struct {
	buf  []float64
	head int
	n    int // number of valid entries (< len(buf) until primed)
}

// delayFamily returns the value its input metric held Steps timesteps ago,
// or Initial before the buffer has filled.
type delayFamily struct{}

func (delayFamily) Compute(_ calendar.Timestep, ctx EvalContext, p *network.Parameter, carry *any) (float64, error) {
	cfg := p.Config.(network.DelayParamConfig)
	if cfg.Steps <= 0 {
		// d=0 acts as a plain pass-through.
		return ctx.Metric(p.Metrics[0])
	}
	st := loadDelayState(carry, cfg)

	var out float64
	if st.n < len(st.buf) {
		out = cfg.Initial
	} else {
		out = st.buf[st.head]
	}

	x, err := ctx.Metric(p.Metrics[0])
	if err != nil {
		return 0, err
	}
	st.buf[st.head] = x
	st.head = (st.head + 1) % len(st.buf)
	if st.n < len(st.buf) {
		st.n++
	}
	return out, nil
}

func (delayFamily) After(calendar.Timestep, EvalContext, *network.Parameter, float64, *any) error {
	return nil
}

func loadDelayState(carry *any, cfg network.DelayParamConfig) *delayState {
	if st, ok := (*carry).(*delayState); ok {
		return st
	}
	depth := cfg.Steps
	if depth < 1 {
		depth = 1
	}
	st := &delayState{buf: make([]float64, depth)}
	for i := range st.buf {
		st.buf[i] = cfg.Initial
	}
	*carry = st
	return st
}
