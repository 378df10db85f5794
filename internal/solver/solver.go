// Package solver defines the minimal build/update/solve contract a LP/MILP
// backend implements, a dense bounded-variable reference simplex that
// satisfies it, and a branch-and-bound wrapper for the mutual-exclusivity
// rows that require an integer solve. The engine keeps one Handle per
// scenario worker; Handles are never shared across goroutines — each
// solver call works against its own copy of the problem state, never a
// shared one.
package solver

import (
	"errors"
	"time"

	"pywr/internal/apperror"
	"pywr/internal/lp"
)

// Sentinel errors a caller can check with errors.Is.
var (
	ErrInfeasible     = errors.New("solver: problem is infeasible")
	ErrUnbounded      = errors.New("solver: problem is unbounded")
	ErrNumericFailure = errors.New("solver: numeric failure during solve")
	ErrTimeout        = errors.New("solver: iteration or time limit exceeded")
)

// Status classifies the outcome of a Solve call.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusNumericFailure
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusNumericFailure:
		return "numeric_failure"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Handle is an opaque, solver-specific compiled form of a built lp.Problem.
// Callers never inspect it; they pass it back into Update/Solve.
type Handle any

// Options configures a solver run. Zero values are safe; DefaultOptions
// supplies the engine's defaults. Builder-style With* methods let a caller
// chain only the overrides it needs.
type Options struct {
	// Epsilon is the tolerance below which a value is treated as zero,
	// both for feasibility checks and pivot selection.
	Epsilon float64

	// MaxIterations bounds simplex pivots (LP) or explored nodes (MILP).
	// Zero or negative means the backend's default limit of 20000.
	MaxIterations int

	// Timeout bounds wall-clock time for one Solve call. Zero or negative
	// means no time limit.
	Timeout time.Duration
}

// DefaultOptions returns the engine's default tolerances.
func DefaultOptions() *Options {
	return &Options{
		Epsilon:       1e-9,
		MaxIterations: 20000,
		Timeout:       10 * time.Second,
	}
}

// WithEpsilon sets the zero tolerance and returns o for chaining.
func (o *Options) WithEpsilon(eps float64) *Options {
	o.Epsilon = eps
	return o
}

// WithMaxIterations sets the iteration/node limit and returns o for chaining.
func (o *Options) WithMaxIterations(n int) *Options {
	o.MaxIterations = n
	return o
}

// WithTimeout sets the wall-clock budget and returns o for chaining.
func (o *Options) WithTimeout(d time.Duration) *Options {
	o.Timeout = d
	return o
}

// Result is a completed solve's outcome: the solved column values on
// success, or a Status/Err pair describing why no optimum was found.
type Result struct {
	Values     []float64 // per-column primal values, indexed like the built Problem's Columns
	Objective  float64
	Status     Status
	Iterations int
	Duration   time.Duration
	Err        error
}

// Solver is the minimal contract a backend must satisfy: build once per
// model per scenario, then update/solve once per timestep without rebuilding
// the problem's shape. CBC/HiGHS/CLP and IPM bindings would implement this
// same interface; see DESIGN.md for why none ship in this repository.
type Solver interface {
	// Build compiles p into a solver-specific Handle. p's shape (column and
	// row count) is fixed for the Handle's lifetime; only coefficients and
	// bounds change via Update.
	Build(p *lp.Problem) (Handle, error)

	// Update applies a per-timestep delta to a previously built Handle.
	Update(h Handle, u *lp.Update) error

	// Solve runs the LP relaxation and returns the optimal flows, or a
	// Result whose Status/Err describe why no optimum was found.
	Solve(h Handle, opts *Options) (*Result, error)
}

// IntegerSolver is satisfied by backends that can also solve the MILP that
// an Aggregated node's Exclusive relationship introduces, turning a row
// into an integer constraint that a plain LP relaxation can't satisfy.
type IntegerSolver interface {
	Solver
	SolveInteger(h Handle, integerCols []int, opts *Options) (*Result, error)
}

// wrapStatus turns a Status/error pair into the apperror the rest of the
// engine expects from a failed solve.
func wrapStatus(status Status, err error, location string) error {
	if status == StatusOptimal {
		return nil
	}
	return apperror.Wrap(err, apperror.CodeSolveError, "lp solve did not reach optimality").
		WithDetails("status", status.String()).
		WithLocation("solver", location, -1, 0)
}
