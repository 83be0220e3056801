package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
	"github.com/warp/shift-engine/store/storetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestStore(t *testing.T, logger *zap.Logger) *Store {
	t.Helper()
	st, err := New(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		return newTestStore(t, zap.NewNop())
	})
}

func insertRawEntry(t *testing.T, st *Store, user string, week shift.WeekID, slot int, raw string) {
	t.Helper()
	_, err := st.db.Exec(
		`INSERT INTO day_entries (user_id, week, slot, entry_json, updated_at) VALUES (?, ?, ?, ?, ?)`,
		user, week.String(), slot, raw, time.Now().Format(time.RFC3339),
	)
	require.NoError(t, err)
}

func TestStore_UnknownContractFallsBackWithWarning(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	st := newTestStore(t, zap.New(core))

	// GIVEN: users stored with an unknown and a missing contract
	require.NoError(t, st.SaveUser(ctx, roster.User{ID: "u1", Contract: "Temporal"}))
	require.NoError(t, st.SaveUser(ctx, roster.User{ID: "u2"}))

	// WHEN: reading them back
	users, err := st.ListUsers(ctx)
	require.NoError(t, err)

	// THEN: both use the default contract, only the unknown one is logged
	require.Len(t, users, 2)
	assert.Equal(t, roster.DefaultContract, users[0].Contract)
	assert.Equal(t, roster.DefaultContract, users[1].Contract)

	entries := logs.FilterMessage("unknown contract, using default").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Temporal", entries[0].ContextMap()["contract"])
}

func TestStore_ReadsStoredShapes(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, zap.NewNop())
	week := shift.WeekID{Year: 2026, Week: 42}
	require.NoError(t, st.SaveUser(ctx, roster.User{ID: "u1"}))

	// Legacy bare string, a range, and fixed hours.
	insertRawEntry(t, st, "u1", week, 1, `"Feriado"`)
	insertRawEntry(t, st, "u1", week, 2, `{"tipo":"Presencial","horaInicio":"08:00","horaFin":"12:00"}`)
	insertRawEntry(t, st, "u1", week, 3, `{"tipo":"Guardia","horas":3.5}`)

	s, err := st.GetWeek(ctx, "u1", week)
	require.NoError(t, err)
	require.Len(t, s, 3)
	assert.Equal(t, shift.KindHoliday, s[shift.Monday].Kind)
	assert.True(t, s[shift.Tuesday].Hours.Equal(shift.MinutesToHours(240)))
	assert.Equal(t, "3.5", s[shift.Wednesday].Hours.String())
}

func TestStore_SkipsCorruptRows(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	st := newTestStore(t, zap.New(core))
	week := shift.WeekID{Year: 2026, Week: 42}
	require.NoError(t, st.SaveUser(ctx, roster.User{ID: "u1"}))

	insertRawEntry(t, st, "u1", week, 1, `{not json`)
	insertRawEntry(t, st, "u1", week, 2, `{"tipo":"Presencial","horaInicio":"25:00","horaFin":"12:00"}`)
	insertRawEntry(t, st, "u1", week, 3, `{"tipo":"Presencial","horaInicio":"08:00","horaFin":"12:00"}`)

	snap, err := st.WeekSnapshot(ctx, week)
	require.NoError(t, err)
	assert.Equal(t, []shift.DaySlot{shift.Wednesday}, snap["u1"].Slots())
	assert.Equal(t, 2, logs.Len())
}

func TestStore_DeletingUserCascades(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, zap.NewNop())
	week := shift.WeekID{Year: 2026, Week: 42}
	require.NoError(t, st.SaveUser(ctx, roster.User{ID: "u1"}))
	require.NoError(t, st.PutDay(ctx, "u1", week, shift.Monday, shift.DayEntry{Kind: shift.KindRest}))

	_, err := st.db.Exec(`DELETE FROM users WHERE id = ?`, "u1")
	require.NoError(t, err)

	snap, err := st.WeekSnapshot(ctx, week)
	require.NoError(t, err)
	assert.Empty(t, snap)
}
