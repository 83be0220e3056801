/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	users and weekly schedules. Each scenario seeds the week containing
	"now" (and sometimes the week before) so the views, editor warnings,
	recommendations and notification jobs all have something to show.

AVAILABLE SCENARIOS:

	over-ceiling:   Operativo user over 48h with coworkers and trainees to absorb it
	rest-violation: Late close followed by an early open the next day
	carried-overage: Last week's overage reducing this week's advisory figure
	office-status:  Telework, vacations and a legacy holiday row for today and tomorrow

HOW SCENARIOS WORK:
 1. Reset the store (users, entries, job runs)
 2. Create users
 3. Seed day entries through shift.NewEntry, the same path the editor uses
    (legacy string rows go through shift.Normalize like stored data)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "over-ceiling"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, week)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Week views and editor endpoints to inspect the result
  - notify/jobs.go: Jobs that read the seeded week
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
	"go.uber.org/zap"
)

var errUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "over-ceiling",
		Name:        "Over Ceiling",
		Description: "Operativo agent at 54h in Soporte; coworkers and an authorized trainee can absorb the excess",
		Category:    "hours",
	},
	{
		ID:          "rest-violation",
		Name:        "Short Rest",
		Description: "Closing shift until 23:00 followed by a 06:00 open, plus a night shift across midnight",
		Category:    "rest",
	},
	{
		ID:          "carried-overage",
		Name:        "Carried Overage",
		Description: "Last week ran 4h over; this week's advisory figure starts 4h lower",
		Category:    "hours",
	},
	{
		ID:          "office-status",
		Name:        "Office Status",
		Description: "Telework, vacations and legacy rows today and tomorrow for the daily digest and vacation notice",
		Category:    "notifications",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var load func(context.Context, shift.WeekID) error
	switch req.ScenarioID {
	case "over-ceiling":
		load = h.loadOverCeilingScenario
	case "rest-violation":
		load = h.loadRestViolationScenario
	case "carried-overage":
		load = h.loadCarriedOverageScenario
	case "office-status":
		load = h.loadOfficeStatusScenario
	default:
		h.fail(w, "Unknown scenario", fmt.Errorf("%w: %q", errUnknownScenario, req.ScenarioID))
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		h.fail(w, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""

	week := shift.WeekOf(h.Now())
	if err := load(ctx, week); err != nil {
		h.fail(w, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	h.Logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID), zap.String("week", week.String()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID, "week": week.String()})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadOverCeilingScenario(ctx context.Context, week shift.WeekID) error {
	ana := agent("ana", "Ana", "Solano", "Soporte", roster.ContractOperativo)
	bruno := agent("bruno", "Bruno", "Vargas", "Soporte", roster.ContractOperativo)
	carla := agent("carla", "Carla", "Mora", "Soporte", roster.ContractConfianza)
	diego := trainee("diego", "Diego", "Rojas", "Soporte")
	elena := trainee("elena", "Elena", "Castro", "Finanzas")
	lead := agent("lucia", "Lucía", "Jiménez", "Soporte", roster.ContractConfianza)
	lead.Role = roster.RoleAdmin
	if err := h.seedUsers(ctx, ana, bruno, carla, diego, elena, lead); err != nil {
		return err
	}

	// 6 x 9h = 54h against a 48h ceiling
	anaWeek := map[shift.DaySlot]shift.RawEntry{}
	for slot := shift.Monday; slot <= shift.Saturday; slot++ {
		anaWeek[slot] = worked(shift.KindPresence, "07:00", "16:00")
	}
	anaWeek[shift.Sunday] = dayOff(shift.KindRest)

	return h.seedWeeks(ctx, week, map[roster.UserID]map[shift.DaySlot]shift.RawEntry{
		ana.ID:   anaWeek,
		bruno.ID: weekdays(shift.KindPresence, "08:00", "16:00"),
		carla.ID: weekdays(shift.KindTelework, "08:00", "16:00"),
		diego.ID: {
			shift.Monday:  worked(shift.KindPresence, "08:00", "12:00"),
			shift.Tuesday: worked(shift.KindPresence, "08:00", "12:00"),
		},
		elena.ID: weekdays(shift.KindPresence, "09:00", "13:00"),
		lead.ID:  weekdays(shift.KindPresence, "08:00", "17:00"),
	})
}

func (h *Handler) loadRestViolationScenario(ctx context.Context, week shift.WeekID) error {
	fabio := agent("fabio", "Fabio", "Quesada", "Operaciones", roster.ContractOperativo)
	gina := agent("gina", "Gina", "Araya", "Operaciones", roster.ContractOperativo)
	if err := h.seedUsers(ctx, fabio, gina); err != nil {
		return err
	}

	return h.seedWeeks(ctx, week, map[roster.UserID]map[shift.DaySlot]shift.RawEntry{
		fabio.ID: {
			shift.Monday:    worked(shift.KindPresence, "08:00", "16:00"),
			shift.Tuesday:   worked(shift.KindPresence, "14:00", "23:00"),
			shift.Wednesday: worked(shift.KindPresence, "06:00", "14:00"),
			shift.Thursday:  hybrid("06:00", "09:00", "10:00", "15:00"),
			shift.Friday:    dayOff(shift.KindRest),
		},
		// Night shifts wrap midnight; 06:00 to the next 22:00 is 16h of rest.
		gina.ID: {
			shift.Monday:    worked(shift.KindPresence, "22:00", "06:00"),
			shift.Tuesday:   dayOff(shift.KindRest),
			shift.Wednesday: worked(shift.KindPresence, "22:00", "06:00"),
			shift.Thursday:  worked(shift.KindPresence, "22:00", "06:00"),
		},
	})
}

func (h *Handler) loadCarriedOverageScenario(ctx context.Context, week shift.WeekID) error {
	hugo := agent("hugo", "Hugo", "Brenes", "Infraestructura", roster.ContractOperativo)
	ines := agent("ines", "Inés", "Calvo", "Infraestructura", roster.ContractOperativo)
	if err := h.seedUsers(ctx, hugo, ines); err != nil {
		return err
	}

	// Last week: 4 x 10h + 12h = 52h
	last := map[shift.DaySlot]shift.RawEntry{
		shift.Monday:    worked(shift.KindPresence, "07:00", "17:00"),
		shift.Tuesday:   worked(shift.KindPresence, "07:00", "17:00"),
		shift.Wednesday: worked(shift.KindPresence, "07:00", "17:00"),
		shift.Thursday:  worked(shift.KindPresence, "07:00", "17:00"),
		shift.Friday:    worked(shift.KindPresence, "06:00", "18:00"),
	}
	if err := h.seedWeeks(ctx, week.Prev(), map[roster.UserID]map[shift.DaySlot]shift.RawEntry{hugo.ID: last}); err != nil {
		return err
	}

	return h.seedWeeks(ctx, week, map[roster.UserID]map[shift.DaySlot]shift.RawEntry{
		hugo.ID: {
			shift.Monday:  worked(shift.KindPresence, "08:00", "16:00"),
			shift.Tuesday: worked(shift.KindPresence, "08:00", "16:00"),
		},
		ines.ID: weekdays(shift.KindPresence, "08:00", "16:00"),
	})
}

func (h *Handler) loadOfficeStatusScenario(ctx context.Context, week shift.WeekID) error {
	jose := agent("jose", "José", "Alfaro", "Finanzas", roster.ContractConfianza)
	karla := agent("karla", "Karla", "Méndez", "Finanzas", roster.ContractOperativo)
	luis := agent("luis", "Luis", "Soto", "Soporte", roster.ContractOperativo)
	marta := agent("marta", "Marta", "Ulate", "Soporte", roster.ContractOperativo)
	if err := h.seedUsers(ctx, jose, karla, luis, marta); err != nil {
		return err
	}

	now := h.Now()
	today := shift.SlotOf(now)
	tomorrow := now.AddDate(0, 0, 1)

	if err := h.seedWeeks(ctx, week, map[roster.UserID]map[shift.DaySlot]shift.RawEntry{
		jose.ID:  {today: worked(shift.KindTelework, "08:00", "16:00")},
		karla.ID: {today: dayOff(shift.KindVacation)},
		luis.ID:  {today: worked(shift.KindPresence, "08:00", "16:00")},
		marta.ID: {today: {Legacy: true, Tipo: string(shift.KindHoliday)}},
	}); err != nil {
		return err
	}

	// Tomorrow may fall in next week.
	return h.seedWeeks(ctx, shift.WeekOf(tomorrow), map[roster.UserID]map[shift.DaySlot]shift.RawEntry{
		karla.ID: {shift.SlotOf(tomorrow): dayOff(shift.KindVacation)},
		luis.ID:  {shift.SlotOf(tomorrow): dayOff(shift.KindVacation)},
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) seedUsers(ctx context.Context, users ...roster.User) error {
	for _, u := range users {
		if err := h.Store.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("save user %s: %w", u.ID, err)
		}
	}
	return nil
}

func (h *Handler) seedWeeks(ctx context.Context, week shift.WeekID, weeks map[roster.UserID]map[shift.DaySlot]shift.RawEntry) error {
	for id, days := range weeks {
		for slot, raw := range days {
			entry, err := seedEntry(raw)
			if err != nil {
				return fmt.Errorf("%s %s: %w", id, slot.Key(), err)
			}
			if err := h.Store.PutDay(ctx, id, week, slot, entry); err != nil {
				return fmt.Errorf("%s %s: %w", id, slot.Key(), err)
			}
		}
	}
	return nil
}

func seedEntry(raw shift.RawEntry) (shift.DayEntry, error) {
	if raw.Legacy {
		return shift.Normalize(raw)
	}
	return shift.NewEntry(raw)
}

func agent(id, first, last, dept string, contract roster.Contract) roster.User {
	return roster.User{
		ID:         roster.UserID(id),
		FirstName:  first,
		LastName:   last,
		Email:      id + "@example.com",
		Department: dept,
		Contract:   contract,
		Role:       roster.RoleViewer,
	}
}

func trainee(id, first, last string, authorized ...string) roster.User {
	u := agent(id, first, last, roster.TraineeDepartment, roster.ContractOperativo)
	u.AuthorizedDepartments = authorized
	return u
}

func worked(kind shift.Kind, start, end string) shift.RawEntry {
	return shift.RawEntry{Tipo: string(kind), HoraInicio: start, HoraFin: end}
}

func hybrid(teleStart, teleEnd, presStart, presEnd string) shift.RawEntry {
	return shift.RawEntry{
		Tipo:           string(shift.KindHybrid),
		HoraInicioTele: teleStart,
		HoraFinTele:    teleEnd,
		HoraInicioPres: presStart,
		HoraFinPres:    presEnd,
	}
}

func dayOff(kind shift.Kind) shift.RawEntry {
	return shift.RawEntry{Tipo: string(kind)}
}

func weekdays(kind shift.Kind, start, end string) map[shift.DaySlot]shift.RawEntry {
	out := make(map[shift.DaySlot]shift.RawEntry, 5)
	for slot := shift.Monday; slot <= shift.Friday; slot++ {
		out[slot] = worked(kind, start, end)
	}
	return out
}
