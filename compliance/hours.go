/*
Package compliance is the weekly-hours compliance and redistribution engine.

PURPOSE:
  Answers three questions about one ISO week of schedules:
  1. How many hours did this person work? (TotalHours)
  2. Did the week break a labor rule? (Check, Issues)
  3. Who could absorb the excess? (FindCandidates)

  The interactive editor, the read-only consultation view and the scheduled
  notification jobs all call this package. None of them re-implement it.

KEY CONCEPTS:
  - Aggregation: Sum of accruing entries, no rounding (hours.go)
  - Contract policy: Ceiling per contract, fixed minimum rest (policy.go)
  - Violations: Hours excess first, then insufficient rest (checker.go)
  - Recommendations: Coworkers first, then authorized trainees (recommend.go)
  - Advisory: Presentation-only remaining hours after prior overage (advisory.go)

PURITY:
  Every function takes snapshots and returns values. Nothing is cached,
  nothing is mutated, nothing blocks. Calling twice on the same input gives
  the same answer, and concurrent calls on a shared snapshot are safe.

SEE ALSO:
  - shift/: Canonical DayEntry and WeeklySchedule
  - roster/: User and Contract
  - notify/: Scheduled jobs built on Issues
*/
package compliance

import (
	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/shift"
)

// =============================================================================
// AGGREGATION
// =============================================================================

// Tolerance absorbs arithmetic noise when comparing a total to its ceiling.
var Tolerance = decimal.New(1, -1)

// TotalHours sums the accruing hours of a week. Draft and saved schedules are
// treated alike; the caller decides which one to pass. An empty or nil
// schedule totals zero.
func TotalHours(s shift.WeeklySchedule) decimal.Decimal {
	total := decimal.Zero
	for _, e := range s {
		total = total.Add(e.AccruedHours())
	}
	return total
}

// ExceedsCeiling reports whether total is above ceiling by more than Tolerance.
func ExceedsCeiling(total, ceiling decimal.Decimal) bool {
	return total.Sub(ceiling).GreaterThan(Tolerance)
}

// FormatHours renders hours with one decimal for display, e.g. "10.0".
func FormatHours(h decimal.Decimal) string { return h.StringFixed(1) }
