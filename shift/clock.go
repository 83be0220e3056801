package shift

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLOCK - Time of day with minute granularity
// =============================================================================

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// Clock is a time of day in minutes after midnight (0..1439).
type Clock int

// ParseClock parses a 24-hour "H:MM" or "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return Clock(h*minutesPerHour + min), nil
}

// MustClock parses s and panics on malformed input. Intended for tests and
// literals.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/minutesPerHour, int(c)%minutesPerHour)
}

// UntilMidnight is the number of minutes from c to the end of its day.
func (c Clock) UntilMidnight() int { return minutesPerDay - int(c) }

// SinceMidnight is the number of minutes from the start of the day to c.
func (c Clock) SinceMidnight() int { return int(c) }

// =============================================================================
// RANGE - [Start, End) with midnight wraparound
// =============================================================================

// Range is a worked time range. An End at or before Start crosses midnight.
type Range struct {
	Start Clock
	End   Clock
}

// ParseRange parses a start/end pair of clock strings.
func ParseRange(start, end string) (Range, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: s, End: e}, nil
}

// WrapsMidnight reports whether the range ends on the following day.
func (r Range) WrapsMidnight() bool { return r.End <= r.Start }

// Minutes is the midnight-aware length of the range.
func (r Range) Minutes() int {
	end := int(r.End)
	if r.WrapsMidnight() {
		end += minutesPerDay
	}
	return end - int(r.Start)
}

// finish is the end in minutes from the start day's midnight.
func (r Range) finish() int {
	if r.WrapsMidnight() {
		return int(r.End) + minutesPerDay
	}
	return int(r.End)
}

// Hours is the midnight-aware length of the range in hours.
func (r Range) Hours() decimal.Decimal {
	return MinutesToHours(r.Minutes())
}

// Duration returns the midnight-aware hours between two clock strings.
func Duration(start, end string) (decimal.Decimal, error) {
	r, err := ParseRange(start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return r.Hours(), nil
}

// MinutesToHours converts whole minutes to fractional hours.
func MinutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(minutesPerHour))
}
