package expand

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/lp"
	"pywr/internal/network"
)

// expandLossCore builds the shared inflow/outflow/loss column triple and
// its linear loss constraint: loss = factor*gross (LossGross) or
// factor*net (LossNet), with gross = Σinbound and net = Σoutbound, tied
// together by loss = gross - net.
func expandLossCore(e *Expansion, n network.Node, in, out []network.Edge, edgeCols map[int]int, factor network.ParamRef, kind network.LossKind, cost, maxOutflow network.ParamRef) error {
	inCols := colIDs(in, edgeCols)
	outCols := colIDs(out, edgeCols)
	for _, c := range inCols {
		e.bindColumnBounds(c, network.ParamRef{}, network.ParamRef{}, network.ParamRef{})
	}
	for _, c := range outCols {
		e.bindColumnBounds(c, maxOutflow, network.ParamRef{}, cost)
	}

	lossCol := e.Problem.AddColumn(lp.Column{Name: fmt.Sprintf("%s/loss", n.Name), Lower: 0, Upper: posInf})

	// gross - net - loss = 0
	balance := lp.Row{Name: fmt.Sprintf("loss_balance[%s]", n.Name), Kind: lp.Equality, Coeffs: make(map[int]float64)}
	for _, c := range inCols {
		balance.Coeffs[c] += 1
	}
	for _, c := range outCols {
		balance.Coeffs[c] -= 1
	}
	balance.Coeffs[lossCol] -= 1
	e.Problem.AddRow(balance)

	// loss - factor*basis = 0, basis is gross (inbound) or net (outbound)
	// depending on LossKind.
	lossRow := lp.Row{Name: fmt.Sprintf("loss_factor[%s]", n.Name), Kind: lp.Equality, Coeffs: make(map[int]float64)}
	lossRow.Coeffs[lossCol] = 1
	basisCols := inCols
	if kind == network.LossNet {
		basisCols = outCols
	}
	for _, c := range basisCols {
		lossRow.Coeffs[c] -= factor.Constant
	}
	rowID := e.Problem.AddRow(lossRow)
	if factor.IsSet() {
		e.LossFactors = append(e.LossFactors, LossFactorBinding{RowID: rowID, BasisCols: basisCols, FactorName: factor.Name})
	}

	acc := e.accessor(n.ID)
	acc.InflowCols = inCols
	acc.OutflowCols = outCols
	acc.LossCols = []int{lossCol}
	return nil
}

func expandLossLink(e *Expansion, n network.Node, in, out []network.Edge, edgeCols map[int]int) error {
	cfg, ok := n.Config.(network.LossLinkConfig)
	if !ok {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: expected LossLinkConfig", n.Name))
	}
	return expandLossCore(e, n, in, out, edgeCols, cfg.Factor, cfg.Kind, cfg.Cost, network.ParamRef{})
}

func expandWTW(e *Expansion, n network.Node, in, out []network.Edge, edgeCols map[int]int) error {
	cfg, ok := n.Config.(network.WaterTreatmentWorksConfig)
	if !ok {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: expected WaterTreatmentWorksConfig", n.Name))
	}
	return expandLossCore(e, n, in, out, edgeCols, cfg.Factor, cfg.Kind, cfg.Cost, cfg.MaxOutflow)
}
