package expand

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/network"
)

// expandDelay gives a Delay node two decoupled column sets with no direct LP
// equality between them: the inflow columns are ordinary free decision
// variables, while the outflow columns' bounds are pinned
// every step by internal/simulator's applyDelayBounds to the value that entered
// Steps timesteps ago. Steps<=0 degenerates to a plain pass-through link,
// handled here by falling back to a mass-balance row instead of a
// DelayBinding.
func expandDelay(e *Expansion, n network.Node, in, out []network.Edge, edgeCols map[int]int) error {
	cfg, ok := n.Config.(network.DelayConfig)
	if !ok {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: expected DelayConfig", n.Name))
	}

	inCols := colIDs(in, edgeCols)
	outCols := colIDs(out, edgeCols)
	for _, c := range inCols {
		e.bindColumnBounds(c, network.ParamRef{}, network.ParamRef{}, cfg.Cost)
	}
	for _, c := range outCols {
		e.bindColumnBounds(c, network.ParamRef{}, network.ParamRef{}, network.ParamRef{})
	}

	acc := e.accessor(n.ID)
	acc.InflowCols = inCols
	acc.OutflowCols = outCols

	if cfg.Steps <= 0 {
		if len(inCols) > 0 && len(outCols) > 0 {
			e.massBalanceRow(fmt.Sprintf("balance[%s]", n.Name), inCols, outCols)
		}
		return nil
	}

	e.Delays[n.ID] = &DelayBinding{
		InflowCols:  inCols,
		OutflowCols: outCols,
		Steps:       cfg.Steps,
		Initial:     cfg.InitialValue,
		Cost:        cfg.Cost,
	}
	return nil
}
