package solver

import (
	"context"
	"time"

	"pywr/internal/lp"
)

// posInf mirrors internal/network/expand's bound-for-unbounded convention;
// the two packages never import each other, so the sentinel is duplicated
// rather than shared.
const posInf = 1e18

// SimplexSolver is the reference Solver backend: a dense two-phase
// bounded-variable primal simplex. It is sized for the moderate column/row
// counts a single water-resource
// network produces, not for the tens-of-thousands-of-columns scale a
// production CBC/HiGHS binding would target; see DESIGN.md.
type SimplexSolver struct{}

// NewSimplexSolver returns the reference backend. It holds no state of its
// own; all per-problem state lives in the *tableau Handle.
func NewSimplexSolver() *SimplexSolver { return &SimplexSolver{} }

// tableau is the compiled form of a Problem: the original n columns plus m
// row-slack columns, related by the equality system A*x - s = 0, with each
// row's bounds becoming its slack column's bounds. Rebuilt bounds/costs
// from Update are applied directly onto this struct without re-deriving the
// slack structure.
type tableau struct {
	nOrig int // original column count
	m     int // row count == number of slack columns
	n     int // total columns = nOrig + m

	// a is the m x n dense constraint matrix: a[i][j] for original column j
	// is the row's coefficient; a[i][nOrig+i] = -1, 0 elsewhere.
	a [][]float64

	lower []float64
	upper []float64
	cost  []float64
}

func buildTableau(p *lp.Problem) *tableau {
	m := len(p.Rows)
	nOrig := len(p.Columns)
	n := nOrig + m

	t := &tableau{nOrig: nOrig, m: m, n: n}
	t.a = make([][]float64, m)
	for i := range t.a {
		t.a[i] = make([]float64, n)
	}
	t.lower = make([]float64, n)
	t.upper = make([]float64, n)
	t.cost = make([]float64, n)

	for j, c := range p.Columns {
		t.lower[j] = c.Lower
		t.upper[j] = c.Upper
		t.cost[j] = c.Cost
	}
	for i, r := range p.Rows {
		for c, v := range r.Coeffs {
			t.a[i][c] = v
		}
		t.a[i][nOrig+i] = -1
		t.lower[nOrig+i] = r.Lower
		t.upper[nOrig+i] = r.Upper
	}
	return t
}

// Build compiles p into a fresh tableau Handle.
func (s *SimplexSolver) Build(p *lp.Problem) (Handle, error) {
	return buildTableau(p), nil
}

// Update applies coefficient/bound/cost deltas to an existing tableau in
// place, honoring the "compile once, update per step" contract.
func (s *SimplexSolver) Update(h Handle, u *lp.Update) error {
	t := h.(*tableau)
	for c, cost := range u.ColumnCost {
		t.cost[c] = cost
	}
	for c, b := range u.ColumnBounds {
		t.lower[c], t.upper[c] = b[0], b[1]
	}
	for r, b := range u.RowBounds {
		t.lower[t.nOrig+r], t.upper[t.nOrig+r] = b[0], b[1]
	}
	for rc, v := range u.Coeffs {
		t.a[rc[0]][rc[1]] = v
	}
	return nil
}

// Solve runs the two-phase bounded-variable simplex to optimality, or
// reports infeasibility, numeric failure or an iteration/time limit as a
// SolveError. Columns are bounded by the posInf sentinel, so this backend
// never returns StatusUnbounded.
func (s *SimplexSolver) Solve(h Handle, opts *Options) (*Result, error) {
	t := h.(*tableau)
	if opts == nil {
		opts = DefaultOptions()
	}
	start := time.Now()

	ctx := context.Background()
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	sx := newSimplexRun(t, opts)
	status, iters, err := sx.run(ctx)
	res := &Result{
		Status:     status,
		Iterations: iters,
		Duration:   time.Since(start),
		Err:        err,
	}
	if status == StatusOptimal {
		res.Values = sx.primalValues()
		res.Objective = sx.objectiveValue()
	}
	if err := wrapStatus(status, err, "simplex"); err != nil {
		return res, err
	}
	return res, nil
}

// fixColumnBounds narrows a set of original columns to [lower,upper] for a
// branch-and-bound child node without disturbing the rest of the tableau;
// used by milp.go.
func (t *tableau) fixColumnBounds(col int, lower, upper float64) (prevLower, prevUpper float64) {
	prevLower, prevUpper = t.lower[col], t.upper[col]
	t.lower[col], t.upper[col] = lower, upper
	return
}
