package compliance

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
)

// =============================================================================
// REDISTRIBUTION - Who could absorb excess hours
// =============================================================================

// Candidate is a user who could take on extra hours this week.
type Candidate struct {
	User           roster.User
	AvailableHours decimal.Decimal
	CurrentHours   decimal.Decimal
	MaxHours       decimal.Decimal
	Trainee        bool
}

// ScheduleLookup returns a user's current (possibly draft) schedule for the
// week being redistributed. A nil lookup, or a nil result, means no entries.
type ScheduleLookup func(roster.UserID) shift.WeeklySchedule

// FindCandidates ranks the users who could absorb required hours of work in
// targetDept without exceeding their own ceiling.
//
// Coworkers in targetDept come first, then trainees authorized for it; each
// pool is ordered by available hours, most first. The excluded user (the one
// whose excess is being redistributed) never appears. Available hours use the
// actual, unclamped weekly total.
//
// An empty result means no relief is available. It is not an error.
func FindCandidates(required decimal.Decimal, users []roster.User, excluded roster.UserID, targetDept string, lookup ScheduleLookup) []Candidate {
	var coworkers, trainees []Candidate

	for _, u := range users {
		if u.ID == excluded {
			continue
		}
		var trainee bool
		switch {
		case u.Department == targetDept:
		case u.AuthorizedFor(targetDept):
			trainee = true
		default:
			continue
		}

		var week shift.WeeklySchedule
		if lookup != nil {
			week = lookup(u.ID)
		}
		current := TotalHours(week)
		ceiling := MaxHours(u.Contract)
		available := ceiling.Sub(current)
		if available.LessThan(required) {
			continue
		}

		c := Candidate{
			User:           u,
			AvailableHours: available,
			CurrentHours:   current,
			MaxHours:       ceiling,
			Trainee:        trainee,
		}
		if trainee {
			trainees = append(trainees, c)
		} else {
			coworkers = append(coworkers, c)
		}
	}

	rank(coworkers)
	rank(trainees)

	out := make([]Candidate, 0, len(coworkers)+len(trainees))
	out = append(out, coworkers...)
	return append(out, trainees...)
}

// rank orders by available hours descending, then by user ID so equal
// capacity always lists in the same order.
func rank(cs []Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].AvailableHours.Equal(cs[j].AvailableHours) {
			return cs[i].AvailableHours.GreaterThan(cs[j].AvailableHours)
		}
		return cs[i].User.ID < cs[j].User.ID
	})
}

// RequiredHours is the excess a recommendation must absorb: the week's total
// above the user's ceiling, or zero when within it.
func RequiredHours(u roster.User, s shift.WeeklySchedule) decimal.Decimal {
	excess := TotalHours(s).Sub(MaxHours(u.Contract))
	if excess.IsNegative() {
		return decimal.Zero
	}
	return excess
}
