package params

import (
	"time"

	"pywr/internal/calendar"
	"pywr/internal/network"
)

// monthlyProfileFamily returns one of 12 coefficients selected by the
// timestep's calendar month, optionally linearly interpolated between
// month midpoints to avoid a step discontinuity at month boundaries.
type monthlyProfileFamily struct{ NoAfter }

func (monthlyProfileFamily) Compute(ts calendar.Timestep, _ EvalContext, p *network.Parameter, _ *any) (float64, error) {
	cfg := p.Config.(network.MonthlyProfileConfig)
	m := int(ts.Month) - 1

	if cfg.Interp == network.InterpNone {
		return cfg.Values[m], nil
	}

	thisMonthDays := daysInMonth(ts.Month, ts.Year)
	mid := float64(thisMonthDays) / 2
	day := float64(ts.Day)

	if day < mid {
		prevMonth := (m + 11) % 12
		prevDays := daysInMonth(time.Month(prevMonth+1), ts.Year)
		prevMid := float64(prevDays) / 2
		frac := (day + float64(prevDays) - prevMid) / (prevMid + mid)
		return cfg.Values[prevMonth]*(1-frac) + cfg.Values[m]*frac, nil
	}

	nextMonth := (m + 1) % 12
	nextDays := daysInMonth(time.Month(nextMonth+1), ts.Year)
	nextMid := float64(nextDays) / 2
	frac := (day - mid) / (float64(thisMonthDays) - mid + nextMid)
	return cfg.Values[m]*(1-frac) + cfg.Values[nextMonth]*frac, nil
}

// daysInMonth returns the number of days in month m of year using the
// standard "day zero of next month" trick.
func daysInMonth(m time.Month, year int) int {
	firstOfNext := time.Date(year, m+1, 1, 0, 0, 0, 0, time.UTC)
	lastOfThis := firstOfNext.AddDate(0, 0, -1)
	return lastOfThis.Day()
}
