package params

import (
	"pywr/internal/calendar"
	"pywr/internal/network"
)

// dailyProfileFamily returns one of 365 or 366 coefficients, indexed by the
// timestep's day-of-year. A non-leap model fed a leap-year calendar falls
// back to the prior day's value for Feb 29, matching pywr's established
// convention for running a 365-value profile across leap years.
type dailyProfileFamily struct{ NoAfter }

func (dailyProfileFamily) Compute(ts calendar.Timestep, _ EvalContext, p *network.Parameter, _ *any) (float64, error) {
	cfg := p.Config.(network.DailyProfileConfig)
	doy := ts.DOY
	if !cfg.Leap && isLeapYear(ts.Year) && doy > 59 {
		doy--
	}
	if doy < 1 {
		doy = 1
	}
	if doy > 366 {
		doy = 366
	}
	return cfg.Values[doy-1], nil
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
