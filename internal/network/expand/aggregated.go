package expand

import (
	"fmt"

	"pywr/internal/apperror"
	"pywr/internal/lp"
	"pywr/internal/network"
)

// AggregatedBinding records an Aggregated node's row (plain bounded sum) or,
// for an Exclusive relationship, its binary indicator columns and big-M
// linking rows, so the simulator can keep row/indicator bounds in sync with
// MaxFlow/MinFlow parameters each step.
type AggregatedBinding struct {
	RowID      int
	Exclusive  bool
	Indicators []int // one binary column per member, only set when Exclusive
	MaxParam   string
	MinParam   string
}

// bigM bounds a member's flow for the indicator-linking row of an Exclusive
// Aggregated node. It must exceed any plausible single-edge flow; a finite
// sentinel (rather than posInf) keeps the linking row well-scaled for a
// simplex solve.
const bigM = 1e9

func expandAggregated(e *Expansion, m *network.Model, n network.Node) error {
	cfg, ok := n.Config.(network.AggregatedConfig)
	if !ok {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: expected AggregatedConfig", n.Name))
	}
	if len(cfg.Nodes) == 0 {
		return apperror.New(apperror.CodeBuildError, fmt.Sprintf("node %q: Aggregated has no member nodes", n.Name))
	}

	memberCols := make([][]int, len(cfg.Nodes))
	for i, name := range cfg.Nodes {
		id := m.NodeID(name)
		if id < 0 {
			return apperror.New(apperror.CodeBuildError, fmt.Sprintf("aggregated node %q references unknown node %q", n.Name, name))
		}
		acc, ok := e.Accessors[id]
		if !ok || len(acc.OutflowCols) == 0 {
			return apperror.New(apperror.CodeBuildError, fmt.Sprintf("aggregated node %q: member %q has no outflow column (expand it first)", n.Name, name))
		}
		memberCols[i] = acc.OutflowCols
	}

	factors := cfg.Factors
	if len(factors) == 0 {
		factors = make([]float64, len(cfg.Nodes))
		for i := range factors {
			factors[i] = 1
		}
	}

	sumRow := lp.Row{Name: fmt.Sprintf("agg[%s]", n.Name), Kind: lp.Inequality, Lower: 0, Upper: posInf, Coeffs: make(map[int]float64)}
	for i, cols := range memberCols {
		for _, c := range cols {
			sumRow.Coeffs[c] += factors[i]
		}
	}
	if cfg.MinFlow.Constant != 0 {
		sumRow.Lower = cfg.MinFlow.Constant
	}
	if cfg.MaxFlow.Constant != 0 {
		sumRow.Upper = cfg.MaxFlow.Constant
	}
	rowID := e.Problem.AddRow(sumRow)

	binding := &AggregatedBinding{RowID: rowID}
	if cfg.MinFlow.IsSet() {
		binding.MinParam = cfg.MinFlow.Name
	}
	if cfg.MaxFlow.IsSet() {
		binding.MaxParam = cfg.MaxFlow.Name
	}

	if cfg.Relationship.Exclusive {
		binding.Exclusive = true
		indicators := make([]int, len(cfg.Nodes))
		for i, cols := range memberCols {
			ind := e.Problem.AddColumn(lp.Column{
				Name:  fmt.Sprintf("%s/exclusive/%d", n.Name, i),
				Lower: 0,
				Upper: 1,
				Kind:  lp.Binary,
			})
			indicators[i] = ind

			// Σcols <= bigM * indicator: a member can only flow while its
			// indicator is active.
			link := lp.Row{Name: fmt.Sprintf("%s/link/%d", n.Name, i), Kind: lp.Inequality, Lower: 0, Upper: posInf, Coeffs: make(map[int]float64)}
			for _, c := range cols {
				link.Coeffs[c] = -1
			}
			link.Coeffs[ind] = bigM
			e.Problem.AddRow(link)
		}
		binding.Indicators = indicators

		active := lp.Row{Name: fmt.Sprintf("%s/active_count", n.Name), Kind: lp.Inequality, Coeffs: make(map[int]float64)}
		for _, ind := range indicators {
			active.Coeffs[ind] = 1
		}
		active.Lower = float64(cfg.Relationship.MinActive)
		active.Upper = float64(cfg.Relationship.MaxActive)
		if active.Upper == 0 {
			active.Upper = float64(len(indicators))
		}
		e.Problem.AddRow(active)
	}

	e.accessor(n.ID).OutflowCols = flattenCols(memberCols)
	if binding.MinParam != "" || binding.MaxParam != "" {
		e.RowDrivers = append(e.RowDrivers, RowDriver{RowID: rowID, MaxParam: binding.MaxParam, MinParam: binding.MinParam})
	}
	e.Aggregated[n.ID] = binding
	return nil
}

func flattenCols(groups [][]int) []int {
	var out []int
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
