// Package params implements the built-in parameter families and the dense
// arena that stores one evaluated-value slot and one private carry per
// parameter for a single scenario. An Arena is owned exclusively by one
// scenario worker at a time — each worker gets its own struct, so no
// parameter family needs its own locking.
package params

import (
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// EvalContext is everything a parameter family needs to read during
// Compute/After: the read-only Metric accessors (node flows/volumes,
// edge flows, other parameters' already-evaluated values, timeseries
// tables). internal/simulator implements this once per scenario, backed
// by that scenario's current state.
type EvalContext interface {
	// Metric evaluates any Metric variant against current state.
	Metric(m network.Metric) (float64, error)
	// PreviousMetricValue evaluates m against the prior timestep's resolved
	// state (flows, volumes, parameter values); ok is false on the first
	// timestep of the run. Used by families that compare a reading against
	// its own previous value (Asymmetric).
	PreviousMetricValue(m network.Metric) (value float64, ok bool)
	// ParamValue returns another parameter's value already computed this
	// timestep (it must be earlier in evaluation order; callers only ever
	// reach here via a dependency edge the resolver already ordered).
	ParamValue(name string) (float64, error)
	// PreviousParamValue returns a parameter's value from the prior
	// timestep; ok is false on the first timestep of the run. No built-in
	// family calls it: Delay and Muskingum keep their history in carry.
	PreviousParamValue(name string) (float64, bool)
	// Table reads one cell of a named data table: the row is selected by
	// calendar alignment to the current timestep, shifted by rowOffset.
	Table(table, column string, rowOffset int) (float64, error)
	// External resolves a registered callable by name for the External
	// parameter family; one instance is registered per scenario.
	External(name string) (Callable, error)
}

// Callable is the Go shape of an external "Python parameter": an opaque
// compute/after hook running outside the LP critical section. Implementers
// must not hold a solver lock across the call.
type Callable interface {
	Compute(ts calendar.Timestep, ctx EvalContext) (float64, error)
	After(ts calendar.Timestep, ctx EvalContext, value float64) error
}

// Family is the vtable-style interface every built-in parameter family
// implements, giving dynamic dispatch over parameter types. Dispatch
// happens once at Arena-build time by Kind; the simulator's hot loop only
// ever calls through this interface, never type-switches. carry is the
// parameter's private per-scenario state slot: families that need history
// (Delay, Muskingum) type-assert *carry on entry and replace it on first
// use; stateless families ignore it.
type Family interface {
	// Compute returns the parameter's value for the current timestep.
	Compute(ts calendar.Timestep, ctx EvalContext, p *network.Parameter, carry *any) (float64, error)
	// After runs once per timestep after the LP solve, for families that
	// carry state forward from resolved flows (Muskingum) or hand the value
	// to an external callable (External); Delay's After does nothing. Families
	// that don't need it embed NoAfter.
	After(ts calendar.Timestep, ctx EvalContext, p *network.Parameter, value float64, carry *any) error
}

// NoAfter is embedded by families with no post-solve behaviour.
type NoAfter struct{}

func (NoAfter) After(calendar.Timestep, EvalContext, *network.Parameter, float64, *any) error {
	return nil
}
