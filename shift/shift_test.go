package shift_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/shift"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func hours(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func assertHours(t *testing.T, want float64, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !hours(want).Equal(got) {
		assert.Fail(t, "hours mismatch: expected "+hours(want).String()+", got "+got.String(), msgAndArgs...)
	}
}

func decodeRaw(t *testing.T, s string) shift.RawEntry {
	t.Helper()
	var raw shift.RawEntry
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

// =============================================================================
// CLOCK AND DURATION
// =============================================================================

func TestParseClock(t *testing.T) {
	valid := map[string]shift.Clock{
		"0:00":  0,
		"7:05":  7*60 + 5,
		"08:30": 8*60 + 30,
		"23:59": 23*60 + 59,
	}
	for in, want := range valid {
		got, err := shift.ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "24:00", "7:5", "12:60", "1200", "ab:cd", "08:00 ", "-1:00", "123:00"} {
		_, err := shift.ParseClock(in)
		assert.ErrorIs(t, err, shift.ErrInvalidTime, "%q should be rejected", in)
	}
}

func TestDuration_SameDay(t *testing.T) {
	cases := []struct {
		start, end string
		want       float64
	}{
		{"08:00", "17:00", 9},
		{"9:30", "12:00", 2.5},
		{"00:00", "00:45", 0.75},
	}
	for _, c := range cases {
		got, err := shift.Duration(c.start, c.end)
		require.NoError(t, err)
		assertHours(t, c.want, got)
	}
}

func TestDuration_WrapsMidnight(t *testing.T) {
	got, err := shift.Duration("22:00", "06:00")
	require.NoError(t, err)
	assertHours(t, 8, got)

	// Equal clocks mean a full day, not zero.
	got, err = shift.Duration("07:00", "07:00")
	require.NoError(t, err)
	assertHours(t, 24, got)

	got, err = shift.Duration("23:30", "0:15")
	require.NoError(t, err)
	assertHours(t, 0.75, got)
}

func TestDuration_RejectsMalformed(t *testing.T) {
	_, err := shift.Duration("8", "17:00")
	assert.ErrorIs(t, err, shift.ErrInvalidTime)
}

// =============================================================================
// NORMALIZATION
// =============================================================================

func TestNormalize_LegacyString(t *testing.T) {
	raw := decodeRaw(t, `"Presencial"`)
	assert.True(t, raw.Legacy)

	entry, err := shift.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, shift.KindPresence, entry.Kind)
	assert.True(t, entry.Hours.IsZero())
	assert.Nil(t, entry.Range)
}

func TestNormalize_SingleRange(t *testing.T) {
	entry, err := shift.Normalize(decodeRaw(t, `{"tipo":"Presencial","horaInicio":"08:00","horaFin":"17:00","nota":"front desk"}`))
	require.NoError(t, err)
	assertHours(t, 9, entry.Hours)
	require.NotNil(t, entry.Range)
	assert.Equal(t, shift.MustClock("08:00"), entry.Range.Start)
	assert.Equal(t, "front desk", entry.Note)
}

func TestNormalize_ExplicitHoursTrusted(t *testing.T) {
	entry, err := shift.Normalize(decodeRaw(t, `{"tipo":"Cambio","horaInicio":"08:00","horaFin":"17:00","horas":6.5}`))
	require.NoError(t, err)
	assertHours(t, 6.5, entry.Hours)
}

func TestNormalize_NoRangeNoHours(t *testing.T) {
	entry, err := shift.Normalize(decodeRaw(t, `{"tipo":"Viaje de Trabajo"}`))
	require.NoError(t, err)
	assert.True(t, entry.Hours.IsZero())
}

func TestNormalize_NonAccruingAlwaysZero(t *testing.T) {
	for _, kind := range []shift.Kind{
		shift.KindRest, shift.KindVacation, shift.KindHoliday, shift.KindLeave,
		shift.KindBrigade, shift.KindOffSite, shift.KindSickLeave,
		shift.KindAccidentLeave, shift.KindOperationsBenefit,
	} {
		h := 8.0
		raw := shift.RawEntry{Tipo: string(kind), HoraInicio: "08:00", HoraFin: "16:00", Horas: &h}
		entry, err := shift.Normalize(raw)
		require.NoError(t, err)
		assert.True(t, entry.Hours.IsZero(), "%s must not accrue", kind)
		assert.True(t, entry.AccruedHours().IsZero())
	}
}

func TestNormalize_Hybrid(t *testing.T) {
	entry, err := shift.Normalize(decodeRaw(t, `{
		"tipo": "Teletrabajo y Presencial",
		"horaInicioTele": "07:00", "horaFinTele": "10:00",
		"horaInicioPres": "22:00", "horaFinPres": "02:30"
	}`))
	require.NoError(t, err)
	// 3h tele + 4.5h presence across midnight
	assertHours(t, 7.5, entry.Hours)
	assertHours(t, 3, entry.Tele.Hours())
	assertHours(t, 4.5, entry.Pres.Hours())
}

func TestNormalize_HybridExplicitTotalAndRecompute(t *testing.T) {
	h := 10.0
	raw := shift.RawEntry{
		Tipo:           string(shift.KindHybrid),
		HoraInicioTele: "07:00",
		HoraFinTele:    "10:00",
		HoraInicioPres: "11:00",
		HoraFinPres:    "16:00",
		Horas:          &h,
	}
	entry, err := shift.Normalize(raw)
	require.NoError(t, err)
	assertHours(t, 10, entry.Hours)

	assertHours(t, 8, shift.Recompute(entry).Hours)
	assertHours(t, 10, entry.Hours, "Recompute must not mutate its input")
}

func TestNormalize_MalformedTime(t *testing.T) {
	_, err := shift.Normalize(shift.RawEntry{Tipo: "Presencial", HoraInicio: "8h", HoraFin: "17:00"})
	require.Error(t, err)
	assert.ErrorIs(t, err, shift.ErrInvalidTime)

	var vErr *shift.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "horaInicio", vErr.Field)
	assert.True(t, shift.IsValidationError(err))

	// Even non-accruing kinds reject garbage instead of zeroing it.
	_, err = shift.Normalize(shift.RawEntry{Tipo: "Vacaciones", HoraInicio: "25:00", HoraFin: "17:00"})
	assert.ErrorIs(t, err, shift.ErrInvalidTime)
}

func TestNormalize_UnknownKindAccrues(t *testing.T) {
	entry, err := shift.Normalize(shift.RawEntry{Tipo: "Guardia", HoraInicio: "20:00", HoraFin: "08:00"})
	require.NoError(t, err)
	assert.False(t, entry.Kind.Known())
	assertHours(t, 12, entry.AccruedHours())
}

func TestNewEntry_RequiresRange(t *testing.T) {
	_, err := shift.NewEntry(shift.RawEntry{Tipo: "Presencial"})
	assert.ErrorIs(t, err, shift.ErrMissingTimeRange)

	_, err = shift.NewEntry(shift.RawEntry{Tipo: "Teletrabajo y Presencial", HoraInicioTele: "07:00", HoraFinTele: "10:00"})
	assert.ErrorIs(t, err, shift.ErrMissingTimeRange)

	_, err = shift.NewEntry(shift.RawEntry{})
	assert.ErrorIs(t, err, shift.ErrMissingKind)

	entry, err := shift.NewEntry(shift.RawEntry{Tipo: "Vacaciones"})
	require.NoError(t, err)
	assert.Equal(t, shift.KindVacation, entry.Kind)
}

func TestNewEntry_RejectsNegativeHours(t *testing.T) {
	h := -40.0
	_, err := shift.NewEntry(shift.RawEntry{Tipo: "Presencial", HoraInicio: "08:00", HoraFin: "17:00", Horas: &h})
	require.ErrorIs(t, err, shift.ErrInvalidHours)
	assert.True(t, shift.IsValidationError(err))

	var vErr *shift.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "horas", vErr.Field)

	zero := 0.0
	entry, err := shift.NewEntry(shift.RawEntry{Tipo: "Presencial", HoraInicio: "08:00", HoraFin: "17:00", Horas: &zero})
	require.NoError(t, err)
	assert.True(t, entry.Hours.IsZero())
}

func TestRawEntry_ExplicitHoursKeptBesideRange(t *testing.T) {
	entry, err := shift.NewEntry(decodeRaw(t, `{"tipo":"Presencial","horaInicio":"08:00","horaFin":"17:00","horas":5}`))
	require.NoError(t, err)
	assert.True(t, entry.ExplicitHours)

	out, err := json.Marshal(entry.Raw())
	require.NoError(t, err)
	assert.JSONEq(t, `{"tipo":"Presencial","horaInicio":"08:00","horaFin":"17:00","horas":5}`, string(out))

	again, err := shift.Normalize(entry.Raw())
	require.NoError(t, err)
	assertHours(t, 5, again.Hours)

	// A recomputed entry no longer carries the explicit total.
	recomputed := shift.Recompute(entry)
	assert.False(t, recomputed.ExplicitHours)
	assert.Nil(t, recomputed.Raw().Horas)
}

func TestSpan_HybridCrossingMidnightEndsLast(t *testing.T) {
	entry, err := shift.NewEntry(shift.RawEntry{
		Tipo:           string(shift.KindHybrid),
		HoraInicioTele: "23:00",
		HoraFinTele:    "01:00",
		HoraInicioPres: "14:00",
		HoraFinPres:    "22:00",
	})
	require.NoError(t, err)

	span, ok := entry.Span()
	require.True(t, ok)
	assert.Equal(t, "14:00", span.Start.String())
	assert.Equal(t, "01:00", span.End.String())
}

func TestRawEntry_RoundTrip(t *testing.T) {
	legacy, err := json.Marshal(decodeRaw(t, `"Descanso"`))
	require.NoError(t, err)
	assert.JSONEq(t, `"Descanso"`, string(legacy))

	entry, err := shift.NewEntry(shift.RawEntry{Tipo: "Presencial", HoraInicio: "8:00", HoraFin: "16:00"})
	require.NoError(t, err)
	out, err := json.Marshal(entry.Raw())
	require.NoError(t, err)
	assert.JSONEq(t, `{"tipo":"Presencial","horaInicio":"08:00","horaFin":"16:00"}`, string(out))
}

// =============================================================================
// WEEKS AND SLOTS
// =============================================================================

func TestWeekID(t *testing.T) {
	// Sunday 2026-01-04 still belongs to ISO week 2026-1.
	w := shift.WeekOf(time.Date(2026, time.January, 4, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-1", w.String())
	assert.Equal(t, time.Date(2025, time.December, 29, 0, 0, 0, 0, time.UTC), w.Monday(time.UTC))

	// 2020 is a long ISO year.
	w53, err := shift.ParseWeekID("2020-53")
	require.NoError(t, err)
	assert.Equal(t, shift.WeekID{Year: 2021, Week: 1}, w53.Next())
	assert.Equal(t, w53, w53.Next().Prev())

	for _, bad := range []string{"", "2026", "2026-0", "2026-54", "2025-53", "x-3", "2026-3-1"} {
		_, err := shift.ParseWeekID(bad)
		assert.ErrorIs(t, err, shift.ErrInvalidWeek, bad)
	}
}

func TestDaySlot(t *testing.T) {
	assert.Equal(t, shift.Monday, shift.SlotOf(time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, shift.Sunday, shift.SlotOf(time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "dia3", shift.Wednesday.Key())
	assert.Equal(t, "Wednesday", shift.Wednesday.String())

	slot, err := shift.ParseSlot("dia7")
	require.NoError(t, err)
	assert.Equal(t, shift.Sunday, slot)
	slot, err = shift.ParseSlot("2")
	require.NoError(t, err)
	assert.Equal(t, shift.Tuesday, slot)

	_, err = shift.ParseSlot("dia8")
	assert.ErrorIs(t, err, shift.ErrInvalidSlot)

	w := shift.WeekID{Year: 2026, Week: 42}
	assert.Equal(t, time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC), w.Date(shift.Friday, time.UTC))
}

func TestNormalizeWeek(t *testing.T) {
	var raw shift.RawWeek
	require.NoError(t, json.Unmarshal([]byte(`{
		"dia1": {"tipo":"Presencial","horaInicio":"08:00","horaFin":"16:00"},
		"dia2": "Vacaciones"
	}`), &raw))

	week, err := shift.NormalizeWeek(raw)
	require.NoError(t, err)
	assert.Equal(t, []shift.DaySlot{shift.Monday, shift.Tuesday}, week.Slots())
	assert.Equal(t, shift.KindVacation, week[shift.Tuesday].Kind)

	_, err = shift.NormalizeWeek(shift.RawWeek{"dia9": {Tipo: "Descanso"}})
	assert.ErrorIs(t, err, shift.ErrInvalidSlot)
}

func TestWeeklySchedule_WithDoesNotMutate(t *testing.T) {
	saved := shift.WeeklySchedule{shift.Monday: {Kind: shift.KindRest}}
	draft := saved.With(shift.Tuesday, shift.DayEntry{Kind: shift.KindVacation})

	assert.Len(t, saved, 1)
	assert.Len(t, draft, 2)
	assert.Len(t, draft.Without(shift.Monday), 1)
	assert.Len(t, draft, 2)
}
