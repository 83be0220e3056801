package compliance

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
)

// =============================================================================
// VIOLATIONS
// =============================================================================

type ViolationKind string

const (
	ViolationHours ViolationKind = "hours"
	ViolationRest  ViolationKind = "rest"
)

// Violation is one broken rule in a week.
type Violation struct {
	Kind   ViolationKind
	Detail string

	// Hours is the weekly total for hours violations and the rest between
	// the two days for rest violations. Limit is the rule's threshold.
	Hours decimal.Decimal
	Limit decimal.Decimal

	// From and To name the consecutive days of a rest violation.
	From shift.DaySlot
	To   shift.DaySlot
}

// Result is the first violation of a week, if any.
type Result struct {
	HasViolation bool
	Kind         ViolationKind
	Detail       string
}

// =============================================================================
// CHECKS
// =============================================================================

// Check returns the first violation of the week: hours before rest.
// Callers needing every violation use Issues.
func Check(u roster.User, s shift.WeeklySchedule) Result {
	issues := Issues(u, s)
	if len(issues) == 0 {
		return Result{}
	}
	return Result{HasViolation: true, Kind: issues[0].Kind, Detail: issues[0].Detail}
}

// Issues returns every violation of the week, the hours violation first and
// then rest violations in day order.
func Issues(u roster.User, s shift.WeeklySchedule) []Violation {
	var out []Violation
	if v, ok := HoursViolation(u, s); ok {
		out = append(out, v)
	}
	return append(out, RestViolations(s)...)
}

// HoursViolation reports whether the week's total exceeds the user's
// contract ceiling.
func HoursViolation(u roster.User, s shift.WeeklySchedule) (Violation, bool) {
	total := TotalHours(s)
	ceiling := MaxHours(u.Contract)
	if !ExceedsCeiling(total, ceiling) {
		return Violation{}, false
	}
	contract := u.Contract
	if !contract.Known() {
		contract = roster.DefaultContract
	}
	return Violation{
		Kind:   ViolationHours,
		Detail: fmt.Sprintf("worked %sh exceeds the %sh weekly maximum for %s contracts", FormatHours(total), ceiling, contract),
		Hours:  total,
		Limit:  ceiling,
	}, true
}

// RestViolations finds consecutive working days separated by less than the
// minimum rest.
//
// Only entries that accrue hours and have a clock span take part. Rest is
// measured from the end of day N to midnight plus midnight to the start of
// day N+1. Days that are not adjacent within the week, including Sunday to
// the following Monday, are never compared.
func RestViolations(s shift.WeeklySchedule) []Violation {
	type worked struct {
		slot shift.DaySlot
		span shift.Range
	}

	var days []worked
	for _, slot := range s.Slots() {
		e := s[slot]
		if !e.Kind.Accrues() {
			continue
		}
		if span, ok := e.Span(); ok {
			days = append(days, worked{slot: slot, span: span})
		}
	}

	var out []Violation
	for i := 1; i < len(days); i++ {
		prev, next := days[i-1], days[i]
		if next.slot != prev.slot+1 {
			continue
		}
		rest := shift.MinutesToHours(prev.span.End.UntilMidnight() + next.span.Start.SinceMidnight())
		if !rest.LessThan(MinRestHours()) {
			continue
		}
		detail := fmt.Sprintf("only %sh of rest between %s and %s (minimum %sh)",
			FormatHours(rest), prev.slot, next.slot, MinRestHours())
		out = append(out, Violation{
			Kind:   ViolationRest,
			Detail: detail,
			Hours:  rest,
			Limit:  MinRestHours(),
			From:   prev.slot,
			To:     next.slot,
		})
	}
	return out
}

// =============================================================================
// REPORT - Everything a consultation view shows for one week
// =============================================================================

// Report bundles the computed figures for one user's week.
type Report struct {
	Total    decimal.Decimal
	MaxHours decimal.Decimal
	Result   Result
	Issues   []Violation
}

// Evaluate computes the report for one user's week.
func Evaluate(u roster.User, s shift.WeeklySchedule) Report {
	issues := Issues(u, s)
	r := Report{
		Total:    TotalHours(s),
		MaxHours: MaxHours(u.Contract),
		Issues:   issues,
	}
	if len(issues) > 0 {
		r.Result = Result{HasViolation: true, Kind: issues[0].Kind, Detail: issues[0].Detail}
	}
	return r
}
