package simulator

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"pywr/internal/apperror"
	"pywr/internal/params"
	"pywr/internal/scenario"
)

// RunOptions bounds how many scenarios a run executes concurrently.
type RunOptions struct {
	// MaxWorkers caps the worker pool; zero or negative means
	// runtime.NumCPU(), capped at the scenario count.
	MaxWorkers int
}

// RunScenarios runs every scenario in the model's grid to completion across
// a bounded pool of goroutines: one scenario worker per goroutine, with no
// shared mutable state beyond the read-only Expansion/Resolution. It
// returns nil if every scenario completed; the returned RunError collects
// one ScenarioFailure per scenario that didn't.
func (e *Engine) RunScenarios(ctx context.Context, opts *RunOptions) *apperror.RunError {
	grid := e.Model.Scenario
	n := grid.Len()

	numWorkers := runtime.NumCPU()
	if opts != nil && opts.MaxWorkers > 0 {
		numWorkers = opts.MaxWorkers
	}
	if numWorkers > n {
		numWorkers = n
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	tasks := make(chan int, n)
	for i := 0; i < n; i++ {
		tasks <- i
	}
	close(tasks)

	var wg sync.WaitGroup
	runErr := &apperror.RunError{}
	var mu sync.Mutex

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for global := range tasks {
				select {
				case <-ctx.Done():
					mu.Lock()
					runErr.Add(global, toAppError(apperror.New(apperror.CodeStateError, "scenario run cancelled").
						WithLocation("simulator", "", global, -1)))
					mu.Unlock()
					continue
				default:
				}
				if err := e.runOneScenario(ctx, grid.At(global)); err != nil {
					mu.Lock()
					runErr.Add(global, toAppError(err))
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	for _, r := range e.Recorders {
		if err := r.Finalize(); err != nil {
			mu.Lock()
			runErr.Add(-1, toAppError(err))
			mu.Unlock()
		}
	}

	if runErr.HasFailures() {
		return runErr
	}
	return nil
}

func toAppError(err error) *apperror.Error {
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apperror.Wrap(err, apperror.CodeInternal, err.Error())
}

// runOneScenario builds fresh scenario state and steps the calendar to
// completion, checking ctx before each timestep so a cancelled run stops
// promptly rather than finishing every in-flight scenario.
func (e *Engine) runOneScenario(ctx context.Context, idx scenario.Index) error {
	st, err := e.newScenarioState(idx)
	if err != nil {
		return err
	}

	cal := e.Model.Calendar
	for i := 0; i < cal.Len(); i++ {
		select {
		case <-ctx.Done():
			return apperror.New(apperror.CodeStateError, "scenario run cancelled").
				WithLocation("simulator", "", idx.Global, i)
		default:
		}
		if err := e.stepScenario(st, cal.At(i)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) newScenarioState(idx scenario.Index) (*ScenarioState, error) {
	arena, err := params.NewArena(e.Model.Parameters)
	if err != nil {
		return nil, err
	}

	handle, err := e.Solver.Build(e.Expansion.Problem)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeBuildError, "solver build failed").
			WithLocation("simulator", "", idx.Global, -1)
	}

	st := &ScenarioState{
		Scenario:  idx,
		arena:     arena,
		handle:    handle,
		volumes:   make(map[int]float64, len(e.Expansion.StorageBindings)),
		delays:    make(map[int]*delayQueue, len(e.Expansion.Delays)),
		vstorage:  make(map[int]*virtualStorageState, len(e.Expansion.VirtualStorage)),
		externals: make(map[string]params.Callable, len(e.externalFactories)),
	}
	for name, factory := range e.externalFactories {
		st.externals[name] = factory()
	}
	for nodeID, b := range e.Expansion.Delays {
		st.delays[nodeID] = newDelayQueue(b.Steps, b.Initial)
	}
	for nodeID, b := range e.Expansion.VirtualStorage {
		vs := &virtualStorageState{rolling: b.Rolling, windowSteps: b.WindowSteps}
		if b.Rolling && b.WindowSteps > 0 {
			vs.ring = make([]float64, b.WindowSteps)
		}
		st.vstorage[nodeID] = vs
	}

	return st, nil
}
