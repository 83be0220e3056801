package compliance

import (
	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
)

// =============================================================================
// ADVISORY - Remaining hours shown to schedulers
// =============================================================================
//
// The consultation view shows how many hours are still available to a person
// this week. When the previous week ran over the ceiling, that overage is
// taken off this week's figure, unless the caller asks for the real figure.
//
// This is a display aid only. Check and Issues never look at it.

// Advisory is the presentation-only remaining-hours figure for a week.
type Advisory struct {
	Ceiling      decimal.Decimal
	PriorOverage decimal.Decimal
	Available    decimal.Decimal
	Current      decimal.Decimal
	Remaining    decimal.Decimal
	Real         bool
}

// PriorOverage is how far a week's total ran over the user's ceiling, or zero.
func PriorOverage(u roster.User, previous shift.WeeklySchedule) decimal.Decimal {
	return RequiredHours(u, previous)
}

// NewAdvisory computes the remaining-hours figure for the current week.
//
// With real set, the prior overage is ignored and nothing is clamped, which is
// the figure the recommender works from. Otherwise available hours are the
// ceiling minus prior overage, and neither figure goes below zero.
func NewAdvisory(u roster.User, current, previous shift.WeeklySchedule, real bool) Advisory {
	a := Advisory{
		Ceiling:      MaxHours(u.Contract),
		PriorOverage: PriorOverage(u, previous),
		Current:      TotalHours(current),
		Real:         real,
	}
	if real {
		a.Available = a.Ceiling
		a.Remaining = a.Ceiling.Sub(a.Current)
		return a
	}
	a.Available = decimal.Max(decimal.Zero, a.Ceiling.Sub(a.PriorOverage))
	a.Remaining = decimal.Max(decimal.Zero, a.Available.Sub(a.Current))
	return a
}
