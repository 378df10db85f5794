package solver

import "context"

// simplexRun is one Solve call's working state: the shifted, augmented
// tableau (original + slack + artificial columns) together with the
// current basis and basic variable values. It implements the classic
// bounded-variable primal simplex (Dantzig): nonbasic variables rest at
// either bound, entering/leaving selection runs a ratio test that also
// recognises a pure "bound flip" when no basic variable is limiting.
//
// Every original variable is shifted by its lower bound before the run
// (y_j = x_j - lower_j) so every variable's working domain is [0, width_j],
// which keeps the pivoting arithmetic uniform; primalValues() undoes the
// shift when reporting results.
type simplexRun struct {
	t    *tableau
	opts *Options

	nReal int // nOrig + m (original columns + row slacks)
	nArt  int // number of artificial columns, == m
	n     int // nReal + nArt

	width []float64 // upper[j]-lower[j] for j < nReal; large sentinel for artificials
	cost  []float64 // phase-2 cost (0 for artificials); phase-1 cost computed separately

	// tab is the working (m x n) tableau, transformed in place by pivoting
	// so tab[:, basis[i]] is always the i-th unit column.
	tab [][]float64
	// zrow is the reduced-cost row for the active phase's objective.
	zrow []float64

	basis   []int     // basis[i] = column index of the basic variable in row i
	atUpper []bool    // for nonbasic columns: true if resting at upper (width), false if at 0
	xB      []float64 // current value of basis[i]

	rowSign []float64 // +1 or -1: sign flip applied to row i to make its shifted RHS >= 0
}

func newSimplexRun(t *tableau, opts *Options) *simplexRun {
	nReal := t.n
	m := t.m
	n := nReal + m

	sx := &simplexRun{
		t:       t,
		opts:    opts,
		nReal:   nReal,
		nArt:    m,
		n:       n,
		width:   make([]float64, n),
		cost:    make([]float64, n),
		basis:   make([]int, m),
		atUpper: make([]bool, n),
		xB:      make([]float64, m),
		rowSign: make([]float64, m),
	}

	for j := 0; j < nReal; j++ {
		sx.width[j] = t.upper[j] - t.lower[j]
		sx.cost[j] = t.cost[j]
	}
	for j := nReal; j < n; j++ {
		sx.width[j] = posInf // artificials: generous upper bound, cost drives them to 0
	}

	// b_i = -sum_j a[i][j]*lower[j], the shifted system's RHS; flip the row
	// sign if negative so the artificial starts within [0, width].
	b := make([]float64, m)
	for i := 0; i < m; i++ {
		var s float64
		for j := 0; j < nReal; j++ {
			if t.a[i][j] != 0 {
				s += t.a[i][j] * t.lower[j]
			}
		}
		b[i] = -s
		if b[i] < 0 {
			sx.rowSign[i] = -1
			b[i] = -b[i]
		} else {
			sx.rowSign[i] = 1
		}
	}

	sx.tab = make([][]float64, m)
	for i := 0; i < m; i++ {
		row := make([]float64, n)
		for j := 0; j < nReal; j++ {
			row[j] = sx.rowSign[i] * t.a[i][j]
		}
		row[nReal+i] = 1 // artificial column, identity
		sx.tab[i] = row
		sx.basis[i] = nReal + i
		sx.xB[i] = b[i]
	}

	return sx
}

const bigArtificialCost = 1e7

// run executes phase 1 (drive artificials to zero, or report infeasible)
// then phase 2 (optimize the real objective), returning the terminal
// Status, the total pivot count, and a sentinel error for non-optimal
// outcomes.
func (sx *simplexRun) run(ctx context.Context) (Status, int, error) {
	iters := 0
	maxIter := sx.opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 20000
	}
	eps := sx.opts.Epsilon
	if eps <= 0 {
		eps = 1e-9
	}

	// Phase 1: minimize the sum of artificial variables.
	phase1Cost := make([]float64, sx.n)
	for j := sx.nReal; j < sx.n; j++ {
		phase1Cost[j] = 1
	}
	sx.zrow = sx.computeZRow(phase1Cost)

	for {
		select {
		case <-ctx.Done():
			return StatusTimeout, iters, ErrTimeout
		default:
		}
		if iters >= maxIter {
			return StatusTimeout, iters, ErrTimeout
		}
		done, err := sx.pivotOnce(phase1Cost, eps)
		if err != nil {
			return StatusNumericFailure, iters, ErrNumericFailure
		}
		iters++
		if done {
			break
		}
	}

	infeasibility := 0.0
	for i := 0; i < sx.t.m; i++ {
		if sx.basis[i] >= sx.nReal {
			infeasibility += sx.xB[i]
		}
	}
	if infeasibility > eps*float64(sx.t.m+1) {
		return StatusInfeasible, iters, ErrInfeasible
	}

	// Drive any zero-value artificial out of the basis with a degenerate
	// pivot so phase 2 never has to special-case an artificial basic
	// column; a row with no eligible non-artificial pivot is a redundant
	// constraint and is left as-is (its artificial stays fixed at 0).
	for i := 0; i < sx.t.m; i++ {
		if sx.basis[i] < sx.nReal {
			continue
		}
		pivotCol := -1
		for j := 0; j < sx.nReal; j++ {
			if sx.width[j] <= 0 {
				continue
			}
			if sx.tab[i][j] > eps || sx.tab[i][j] < -eps {
				pivotCol = j
				break
			}
		}
		if pivotCol >= 0 {
			sx.pivot(i, pivotCol)
		}
	}

	// Phase 2: optimize the real objective over feasible, artificial-free
	// columns. Artificials are barred from re-entering via bigArtificialCost.
	sx.cost = append([]float64(nil), sx.cost...)
	for j := sx.nReal; j < sx.n; j++ {
		sx.cost[j] = bigArtificialCost
	}
	sx.zrow = sx.computeZRow(sx.cost)

	for {
		select {
		case <-ctx.Done():
			return StatusTimeout, iters, ErrTimeout
		default:
		}
		if iters >= maxIter {
			return StatusTimeout, iters, ErrTimeout
		}
		done, err := sx.pivotOnce(sx.cost, eps)
		if err != nil {
			return StatusNumericFailure, iters, ErrNumericFailure
		}
		iters++
		if done {
			break
		}
	}

	return StatusOptimal, iters, nil
}

// computeZRow derives the reduced-cost row from scratch for a freshly
// chosen cost vector, given the current basis: zrow[j] = cost[j] - cB . tab[:,j].
func (sx *simplexRun) computeZRow(cost []float64) []float64 {
	z := make([]float64, sx.n)
	copy(z, cost)
	for i, bcol := range sx.basis {
		cb := cost[bcol]
		if cb == 0 {
			continue
		}
		for j := 0; j < sx.n; j++ {
			z[j] -= cb * sx.tab[i][j]
		}
	}
	return z
}

// pivotOnce performs one entering/leaving selection and either a basis
// pivot or a bound flip. done=true means the active phase's objective is
// optimal (no improving direction remains).
func (sx *simplexRun) pivotOnce(cost []float64, eps float64) (done bool, err error) {
	enter := -1
	enterAtUpper := false
	best := eps
	for j := 0; j < sx.n; j++ {
		if sx.isBasic(j) || sx.width[j] <= 0 {
			continue
		}
		if !sx.atUpper[j] {
			if -sx.zrow[j] > best {
				best = -sx.zrow[j]
				enter = j
				enterAtUpper = false
			}
		} else {
			if sx.zrow[j] > best {
				best = sx.zrow[j]
				enter = j
				enterAtUpper = true
			}
		}
	}
	if enter < 0 {
		return true, nil
	}

	dir := 1.0
	if enterAtUpper {
		dir = -1.0
	}

	theta := sx.width[enter]
	leaveRow := -1
	leaveAtUpper := false
	for i := 0; i < sx.t.m; i++ {
		coeff := sx.tab[i][enter] * dir
		if coeff > eps {
			// basic variable decreases toward its lower bound (0)
			limit := sx.xB[i] / coeff
			if limit < theta {
				theta = limit
				leaveRow = i
				leaveAtUpper = false
			}
		} else if coeff < -eps {
			bw := sx.basisWidth(i)
			limit := (bw - sx.xB[i]) / (-coeff)
			if limit < theta {
				theta = limit
				leaveRow = i
				leaveAtUpper = true
			}
		}
	}
	if theta < 0 {
		theta = 0
	}

	if leaveRow < 0 {
		// Bound flip: the entering variable itself is limiting.
		for i := 0; i < sx.t.m; i++ {
			sx.xB[i] -= sx.tab[i][enter] * dir * theta
		}
		sx.atUpper[enter] = !sx.atUpper[enter]
		return false, nil
	}

	for i := 0; i < sx.t.m; i++ {
		sx.xB[i] -= sx.tab[i][enter] * dir * theta
	}
	enterValue := boolToBound(enterAtUpper, sx.width[enter]) + dir*theta

	leaving := sx.basis[leaveRow]
	sx.atUpper[leaving] = leaveAtUpper
	sx.basis[leaveRow] = enter
	sx.xB[leaveRow] = enterValue

	sx.pivot(leaveRow, enter)
	sx.zrow = sx.computeZRow(cost)
	return false, nil
}

func boolToBound(atUpper bool, width float64) float64 {
	if atUpper {
		return width
	}
	return 0
}

// pivot performs Gauss-Jordan elimination making column col a unit column
// with a 1 in row, updating xB for every other basic row to keep the
// homogeneous system consistent after the basis change.
func (sx *simplexRun) pivot(row, col int) {
	pv := sx.tab[row][col]
	if pv == 0 {
		return
	}
	for j := 0; j < sx.n; j++ {
		sx.tab[row][j] /= pv
	}
	for i := 0; i < sx.t.m; i++ {
		if i == row {
			continue
		}
		factor := sx.tab[i][col]
		if factor == 0 {
			continue
		}
		for j := 0; j < sx.n; j++ {
			sx.tab[i][j] -= factor * sx.tab[row][j]
		}
	}
}

func (sx *simplexRun) isBasic(j int) bool {
	for _, b := range sx.basis {
		if b == j {
			return true
		}
	}
	return false
}

func (sx *simplexRun) basisWidth(row int) float64 {
	return sx.width[sx.basis[row]]
}

// primalValues reconstructs each original column's unshifted value.
func (sx *simplexRun) primalValues() []float64 {
	y := make([]float64, sx.n)
	for i, b := range sx.basis {
		y[b] = sx.xB[i]
	}
	for j := 0; j < sx.n; j++ {
		if sx.isBasic(j) {
			continue
		}
		if sx.atUpper[j] {
			y[j] = sx.width[j]
		} else {
			y[j] = 0
		}
	}

	out := make([]float64, sx.t.nOrig)
	for j := 0; j < sx.t.nOrig; j++ {
		out[j] = y[j] + sx.t.lower[j]
	}
	return out
}

func (sx *simplexRun) objectiveValue() float64 {
	obj := 0.0
	values := sx.primalValues()
	for j, v := range values {
		obj += sx.t.cost[j] * v
	}
	return obj
}
