package shift

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// WEEK ID - ISO-8601 week, the scheduling unit and storage key
// =============================================================================

// WeekID identifies a Monday-anchored ISO week.
type WeekID struct {
	Year int
	Week int
}

// WeekOf returns the ISO week containing t.
func WeekOf(t time.Time) WeekID {
	y, w := t.ISOWeek()
	return WeekID{Year: y, Week: w}
}

// ParseWeekID parses the boundary format "<ISOYear>-<ISOWeek>", e.g. "2026-7".
func ParseWeekID(s string) (WeekID, error) {
	ys, ws, ok := strings.Cut(s, "-")
	if !ok {
		return WeekID{}, fmt.Errorf("%w: %q", ErrInvalidWeek, s)
	}
	y, err := strconv.Atoi(ys)
	if err != nil || y < 1 {
		return WeekID{}, fmt.Errorf("%w: %q", ErrInvalidWeek, s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w < 1 || w > 53 {
		return WeekID{}, fmt.Errorf("%w: %q", ErrInvalidWeek, s)
	}
	id := WeekID{Year: y, Week: w}
	// Week 53 only exists in long ISO years.
	if WeekOf(id.Monday(time.UTC)) != id {
		return WeekID{}, fmt.Errorf("%w: %q", ErrInvalidWeek, s)
	}
	return id, nil
}

// String renders the week without zero padding: "2026-7".
func (w WeekID) String() string { return fmt.Sprintf("%d-%d", w.Year, w.Week) }

// Monday returns midnight of the week's Monday in loc.
func (w WeekID) Monday(loc *time.Location) time.Time {
	// January 4th is always in ISO week 1.
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, loc)
	offset := int(jan4.Weekday()) - 1
	if offset < 0 {
		offset = 6
	}
	return jan4.AddDate(0, 0, -offset+(w.Week-1)*7)
}

// Date returns midnight of the given slot's day in loc.
func (w WeekID) Date(slot DaySlot, loc *time.Location) time.Time {
	return w.Monday(loc).AddDate(0, 0, int(slot)-1)
}

func (w WeekID) Next() WeekID { return WeekOf(w.Monday(time.UTC).AddDate(0, 0, 7)) }
func (w WeekID) Prev() WeekID { return WeekOf(w.Monday(time.UTC).AddDate(0, 0, -7)) }

// =============================================================================
// DAY SLOT - 1..7, Monday=1
// =============================================================================

// DaySlot is a day within a week, Monday=1 through Sunday=7.
type DaySlot int

const (
	Monday DaySlot = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

const slotKeyPrefix = "dia"

// SlotOf returns the day slot of t.
func SlotOf(t time.Time) DaySlot {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return DaySlot(wd)
}

// ParseSlot accepts the storage key ("dia3") or the bare number ("3").
func ParseSlot(s string) (DaySlot, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, slotKeyPrefix))
	if err != nil || n < int(Monday) || n > int(Sunday) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, s)
	}
	return DaySlot(n), nil
}

// Valid reports whether the slot is within Monday..Sunday.
func (d DaySlot) Valid() bool { return d >= Monday && d <= Sunday }

// Key returns the storage key, "dia1".."dia7".
func (d DaySlot) Key() string { return slotKeyPrefix + strconv.Itoa(int(d)) }

// Weekday converts the slot to a time.Weekday.
func (d DaySlot) Weekday() time.Weekday { return time.Weekday(int(d) % 7) }

func (d DaySlot) String() string { return d.Weekday().String() }

// =============================================================================
// RAW WEEK - A week as stored: "diaN" keys to raw entries
// =============================================================================

// RawWeek is one user's week as stored, keyed by "dia1".."dia7".
type RawWeek map[string]RawEntry

// NormalizeWeek normalizes every stored entry of a week.
func NormalizeWeek(raw RawWeek) (WeeklySchedule, error) {
	out := make(WeeklySchedule, len(raw))
	for key, r := range raw {
		slot, err := ParseSlot(key)
		if err != nil {
			return nil, err
		}
		entry, err := Normalize(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[slot] = entry
	}
	return out, nil
}

// Raw converts the schedule back to its stored shape.
func (s WeeklySchedule) Raw() RawWeek {
	out := make(RawWeek, len(s))
	for slot, e := range s {
		out[slot.Key()] = e.Raw()
	}
	return out
}
