// Package calendar implements the timestep sequence a simulation run walks
// over: a half-open date range divided into fixed-length steps, each
// carrying the index and date information every node, parameter, and
// recorder needs to evaluate itself.
package calendar

import (
	"fmt"
	"time"

	"pywr/internal/apperror"
)

// Timestep is one simulated period. Index is zero-based and monotonic across
// the whole run; Day/Month/Year/DOY are derived from Date for parameters
// that key off the calendar (daily/monthly profiles) without re-deriving
// them at every evaluation site.
type Timestep struct {
	Index int
	Date  time.Time
	Days  int // length of this step, in days (>=1; >1 only for non-daily steps)
	Day   int
	Month time.Month
	Year  int
	DOY   int // day of year, 1-366
}

// Calendar is the full ordered sequence of Timesteps a Simulator walks. It is
// built once from a Timestepper and is immutable thereafter, so it is safe
// to share read-only across scenario goroutines.
type Calendar struct {
	steps []Timestep
}

// Timestepper describes the half-open date range [Start, End) and the step
// length, mirroring the model JSON `timestepper` block.
type Timestepper struct {
	Start    time.Time
	End      time.Time
	StepDays int
}

// Build materializes the Timestep sequence described by t. StepDays must be
// >= 1; End must be strictly after Start, otherwise a CodeSchemaError is
// returned since this is a malformed-input condition discovered at load time.
func (t Timestepper) Build() (*Calendar, error) {
	if t.StepDays < 1 {
		return nil, apperror.New(apperror.CodeSchemaError, "timestepper.step_days must be >= 1").
			WithField("timestepper.step_days")
	}
	if !t.End.After(t.Start) {
		return nil, apperror.New(apperror.CodeSchemaError, "timestepper.end must be after start").
			WithField("timestepper.end")
	}

	var steps []Timestep
	cur := t.Start
	idx := 0
	for cur.Before(t.End) {
		steps = append(steps, Timestep{
			Index: idx,
			Date:  cur,
			Days:  t.StepDays,
			Day:   cur.Day(),
			Month: cur.Month(),
			Year:  cur.Year(),
			DOY:   cur.YearDay(),
		})
		cur = cur.AddDate(0, 0, t.StepDays)
		idx++
	}
	return &Calendar{steps: steps}, nil
}

// Len returns the number of timesteps in the run.
func (c *Calendar) Len() int {
	return len(c.steps)
}

// At returns the timestep at index i. It panics on out-of-range i since every
// caller in this package derives i from a loop bounded by Len.
func (c *Calendar) At(i int) Timestep {
	return c.steps[i]
}

// Steps returns the full timestep slice. Callers must not mutate it.
func (c *Calendar) Steps() []Timestep {
	return c.steps
}

// String renders a human-readable summary, used in CLI validate/run output.
func (c *Calendar) String() string {
	if len(c.steps) == 0 {
		return "calendar(empty)"
	}
	first, last := c.steps[0], c.steps[len(c.steps)-1]
	return fmt.Sprintf("calendar(%d steps, %s..%s)", len(c.steps), first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"))
}
