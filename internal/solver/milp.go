package solver

import (
	"math"
	"time"

	"pywr/internal/lp"
)

// MILPSolver wraps a SimplexSolver with branch-and-bound over the binary
// indicator columns an Aggregated node's Exclusive relationship introduces:
// that relationship turns the row into an integer constraint, which needs
// a MILP solver rather than a plain LP relaxation. It satisfies both
// Solver and IntegerSolver; SolveInteger is
// the only entry point that actually branches, Solve/Build/Update behave
// exactly like the wrapped SimplexSolver so a model with no integer
// columns never pays branch-and-bound's cost.
type MILPSolver struct {
	lp *SimplexSolver
}

// NewMILPSolver returns a branch-and-bound wrapper around the reference
// simplex backend.
func NewMILPSolver() *MILPSolver {
	return &MILPSolver{lp: NewSimplexSolver()}
}

func (s *MILPSolver) Build(p *lp.Problem) (Handle, error) { return s.lp.Build(p) }

func (s *MILPSolver) Update(h Handle, u *lp.Update) error { return s.lp.Update(h, u) }

func (s *MILPSolver) Solve(h Handle, opts *Options) (*Result, error) { return s.lp.Solve(h, opts) }

// node is one branch-and-bound subproblem: the bound overrides applied to
// a subset of integer columns relative to the parent tableau.
type node struct {
	bounds map[int][2]float64 // column -> (lower, upper) override
}

// SolveInteger finds the optimal solution with integerCols constrained to
// {0,1}, via depth-first branch-and-bound on the LP relaxation. Ties are
// broken by exploration order (first-found incumbent at a given objective
// value wins), which is deterministic given a deterministic solver and a
// fixed branching rule: branch on the most-fractional column first,
// explore the round-down child before the round-up child (see DESIGN.md
// for why this convention was chosen over others).
func (s *MILPSolver) SolveInteger(h Handle, integerCols []int, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	t := h.(*tableau)
	start := time.Now()

	if len(integerCols) == 0 {
		return s.Solve(h, opts)
	}

	maxNodes := opts.MaxIterations
	if maxNodes <= 0 {
		maxNodes = 20000
	}

	var best *Result
	bestObj := math.Inf(1)
	explored := 0

	var queue []node
	queue = append(queue, node{bounds: map[int][2]float64{}})

	for len(queue) > 0 && explored < maxNodes {
		n := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		explored++

		prev := applyNodeBounds(t, n.bounds)
		res, err := s.lp.Solve(h, opts)
		restoreNodeBounds(t, prev)

		if err != nil || res.Status != StatusOptimal {
			continue
		}
		if res.Objective >= bestObj {
			continue // relaxation already worse than incumbent; prune
		}

		frac, fracCol := mostFractional(res.Values, integerCols)
		if frac < opts.Epsilon {
			// Integer-feasible: candidate incumbent.
			if res.Objective < bestObj {
				bestObj = res.Objective
				cp := *res
				best = &cp
			}
			continue
		}

		lowerChild := node{bounds: cloneBounds(n.bounds)}
		lowerChild.bounds[fracCol] = [2]float64{0, 0}
		upperChild := node{bounds: cloneBounds(n.bounds)}
		upperChild.bounds[fracCol] = [2]float64{1, 1}
		// Push round-up first so round-down (explored first per the
		// documented tie-break) pops off the stack next.
		queue = append(queue, upperChild, lowerChild)
	}

	if best == nil {
		return &Result{Status: StatusInfeasible, Duration: time.Since(start), Err: ErrInfeasible}, wrapStatus(StatusInfeasible, ErrInfeasible, "milp")
	}
	best.Duration = time.Since(start)
	best.Iterations = explored
	return best, nil
}

func applyNodeBounds(t *tableau, bounds map[int][2]float64) map[int][2]float64 {
	prev := make(map[int][2]float64, len(bounds))
	for col, b := range bounds {
		pl, pu := t.fixColumnBounds(col, b[0], b[1])
		prev[col] = [2]float64{pl, pu}
	}
	return prev
}

func restoreNodeBounds(t *tableau, prev map[int][2]float64) {
	for col, b := range prev {
		t.fixColumnBounds(col, b[0], b[1])
	}
}

func cloneBounds(b map[int][2]float64) map[int][2]float64 {
	out := make(map[int][2]float64, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// mostFractional returns the largest distance from an integer column's
// relaxed value to the nearest integer, and which column it belongs to.
func mostFractional(values []float64, integerCols []int) (float64, int) {
	best := 0.0
	bestCol := integerCols[0]
	for _, c := range integerCols {
		if c >= len(values) {
			continue
		}
		frac := values[c] - math.Floor(values[c])
		dist := math.Min(frac, 1-frac)
		if dist > best {
			best = dist
			bestCol = c
		}
	}
	return best, bestCol
}
