package simulator

import (
	"pywr/internal/params"
	"pywr/internal/scenario"
	"pywr/internal/solver"
)

// ScenarioState is the mutable, per-scenario half of a simulation run: one
// is built fresh for each scenario.Index an Engine processes, and never
// touched by more than one goroutine at a time — scenario workers share
// only the read-only Expansion, never any mutable state.
type ScenarioState struct {
	Scenario scenario.Index

	arena  *params.Arena
	handle solver.Handle

	// volumes holds one entry per storage-like node (Storage, Reservoir,
	// PiecewiseStorage — a single total, even when sliced), keyed by node
	// ID, as of the end of the most recently completed timestep. prevVolumes
	// is the snapshot from one timestep further back, refreshed at the start
	// of each step before volumes is updated again.
	volumes     map[int]float64
	prevVolumes map[int]float64

	delays   map[int]*delayQueue
	vstorage map[int]*virtualStorageState

	externals map[string]params.Callable

	// flowValues/prevFlowValues are the LP solution vectors (indexed by
	// column ID, exactly as solver.Result.Values) for the current and
	// previous timestep. Nil until the first solve of the run completes.
	flowValues     []float64
	prevFlowValues []float64

	initialized bool
}

// delayQueue is a Delay node's FIFO: a fixed-depth ring buffer pre-filled
// with InitialValue, since a node Delay has no priming phase — every lag
// slot starts carrying the configured initial outflow — distinct from the
// Delay *parameter*'s own carry state in internal/params/delay.go.
type delayQueue struct {
	buf  []float64
	head int
}

func newDelayQueue(steps int, initial float64) *delayQueue {
	buf := make([]float64, steps)
	for i := range buf {
		buf[i] = initial
	}
	return &delayQueue{buf: buf}
}

// front peeks the value that should leave the queue this step, without
// mutating it — the outflow column's bounds are pinned to this before the
// solve runs.
func (q *delayQueue) front() float64 {
	return q.buf[q.head]
}

// push records this step's realised inflow into the slot that was just read
// and advances the head, once the solve that consumed front() has run.
func (q *delayQueue) push(v float64) {
	q.buf[q.head] = v
	q.head = (q.head + 1) % len(q.buf)
}

// virtualStorageState tracks one virtual-storage node's remaining capacity:
// plain VirtualStorage accumulates an unbounded, never-refilling debit;
// RollingVirtualStorage instead keeps a ring of the last windowSteps uses so
// debited only reflects what's still inside the window.
type virtualStorageState struct {
	rolling     bool
	windowSteps int

	debited float64 // plain: cumulative use; rolling: running sum over the window (S)
	ring    []float64
	head    int
}

// remaining returns the capacity still available against maxVolume.
func (v *virtualStorageState) remaining(maxVolume float64) float64 {
	r := maxVolume - v.debited
	if r < 0 {
		return 0
	}
	return r
}

// debit folds this step's realised use (already Δt-scaled) into the
// tracker, evicting the oldest windowed use first when rolling.
func (v *virtualStorageState) debit(use float64) {
	if v.rolling {
		var evicted float64
		if len(v.ring) > 0 {
			evicted = v.ring[v.head]
			v.ring[v.head] = use
			v.head = (v.head + 1) % len(v.ring)
		}
		v.debited = v.debited - evicted + use
	} else {
		v.debited += use
	}
	if v.debited < 0 {
		v.debited = 0
	}
}
