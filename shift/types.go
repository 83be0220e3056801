/*
Package shift provides the canonical model of a single day's work assignment.

PURPOSE:
  Schedules arrive from storage in several historical shapes: a bare category
  string, a structured object with one time range, or a hybrid object with a
  telework range and a presence range. This package normalizes all of them
  into one DayEntry so the rest of the system never branches on raw shape.

KEY CONCEPTS IN THIS FILE (types.go):
  - Kind: Enumerated category of a day's assignment (presence, vacation, ...)
  - Non-accruing set: Kinds that never count toward weekly worked hours
  - DayEntry: Canonical one-day assignment with derived hours
  - WeeklySchedule: Day slot (1..7, Monday=1) to DayEntry for one user/week

DESIGN PRINCIPLES:
  1. One shape: Raw shapes are handled once, in Normalize (entry.go)
  2. Precision: Hours are decimal.Decimal, never float64
  3. Opaque kinds: Unknown kinds are preserved and treated as accruing

USAGE:
  var raw shift.RawEntry
  json.Unmarshal(data, &raw)
  entry, err := shift.Normalize(raw)

SEE ALSO:
  - clock.go: Time-of-day parsing and midnight-aware durations
  - entry.go: Raw shapes and normalization
  - week.go: ISO week identity and day slots
*/
package shift

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// KIND - Category of a day's assignment
// =============================================================================

// Kind is the stored category string of a day entry ("tipo").
type Kind string

const (
	KindPresence            Kind = "Presencial"
	KindTelework            Kind = "Teletrabajo"
	KindHybrid              Kind = "Teletrabajo y Presencial"
	KindRest                Kind = "Descanso"
	KindVacation            Kind = "Vacaciones"
	KindHoliday             Kind = "Feriado"
	KindLeave               Kind = "Permiso"
	KindBrigade             Kind = "Día de Brigada"
	KindShortLeaveAfternoon Kind = "Tarde Libre"
	KindOffSite             Kind = "Fuera de Oficina"
	KindBusinessTravel      Kind = "Viaje de Trabajo"
	KindSickLeave           Kind = "Incapacidad"
	KindAccidentLeave       Kind = "Incapacidad por Accidente"
	KindOperationsBenefit   Kind = "Beneficio de Operaciones"
	KindChange              Kind = "Cambio"
)

// nonAccruing lists the kinds that never add to weekly worked hours.
var nonAccruing = map[Kind]bool{
	KindRest:              true,
	KindVacation:          true,
	KindHoliday:           true,
	KindLeave:             true,
	KindBrigade:           true,
	KindOffSite:           true,
	KindSickLeave:         true,
	KindAccidentLeave:     true,
	KindOperationsBenefit: true,
}

// Accrues reports whether hours of this kind count toward weekly totals.
// Kinds outside the known list accrue.
func (k Kind) Accrues() bool { return !nonAccruing[k] }

// IsHybrid reports whether the kind carries separate telework and presence ranges.
func (k Kind) IsHybrid() bool { return k == KindHybrid }

// RequiresRange reports whether a newly created entry of this kind must carry
// its time range(s).
func (k Kind) RequiresRange() bool {
	switch k {
	case KindPresence, KindTelework, KindHybrid:
		return true
	}
	return false
}

// Known reports whether the kind is one of the enumerated categories.
func (k Kind) Known() bool {
	for _, known := range AllKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// AllKinds returns every enumerated kind in display order.
func AllKinds() []Kind {
	return []Kind{
		KindPresence, KindTelework, KindHybrid, KindRest, KindVacation,
		KindHoliday, KindLeave, KindBrigade, KindShortLeaveAfternoon,
		KindOffSite, KindBusinessTravel, KindSickLeave, KindAccidentLeave,
		KindOperationsBenefit, KindChange,
	}
}

// =============================================================================
// DAY ENTRY - Canonical one-day assignment
// =============================================================================

// DayEntry is one day's assignment for one user in one week.
//
// Exactly one of the range layouts is populated: Range for single-range kinds,
// Tele and Pres for the hybrid kind. Legacy entries carry neither.
type DayEntry struct {
	Kind  Kind
	Range *Range
	Tele  *Range
	Pres  *Range
	Note  string

	// Hours is derived during normalization, or the explicit stored value
	// when one was present. Non-accruing kinds always hold zero.
	Hours decimal.Decimal

	// ExplicitHours marks Hours as a stored total rather than a derived one.
	ExplicitHours bool
}

// AccruedHours is the entry's contribution to a weekly total.
func (e DayEntry) AccruedHours() decimal.Decimal {
	if !e.Kind.Accrues() {
		return decimal.Zero
	}
	return e.Hours
}

// Span returns the clock span the entry occupies on its day.
// Hybrid entries span from the earliest range start to the end of the range
// that finishes last; a range crossing midnight finishes after any that do not.
func (e DayEntry) Span() (Range, bool) {
	if e.Range != nil {
		return *e.Range, true
	}
	if e.Tele != nil && e.Pres != nil {
		span := *e.Tele
		if e.Pres.Start < span.Start {
			span.Start = e.Pres.Start
		}
		if e.Pres.finish() > e.Tele.finish() {
			span.End = e.Pres.End
		}
		return span, true
	}
	if e.Tele != nil {
		return *e.Tele, true
	}
	if e.Pres != nil {
		return *e.Pres, true
	}
	return Range{}, false
}

// =============================================================================
// WEEKLY SCHEDULE
// =============================================================================

// WeeklySchedule maps day slots to entries for one (user, ISO week) pair.
// A missing slot means no assignment.
type WeeklySchedule map[DaySlot]DayEntry

// Slots returns the assigned day slots in ascending order.
func (s WeeklySchedule) Slots() []DaySlot {
	slots := make([]DaySlot, 0, len(s))
	for slot := range s {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}

// With returns a copy of the schedule with slot set to entry.
// The receiver is left untouched, so callers can build drafts from saved weeks.
func (s WeeklySchedule) With(slot DaySlot, entry DayEntry) WeeklySchedule {
	out := make(WeeklySchedule, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[slot] = entry
	return out
}

// Without returns a copy of the schedule with slot removed.
func (s WeeklySchedule) Without(slot DaySlot) WeeklySchedule {
	out := make(WeeklySchedule, len(s))
	for k, v := range s {
		if k != slot {
			out[k] = v
		}
	}
	return out
}

// Clone returns a copy of the schedule. A nil schedule clones to an empty one.
func (s WeeklySchedule) Clone() WeeklySchedule {
	out := make(WeeklySchedule, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
