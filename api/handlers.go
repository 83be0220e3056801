/*
handlers.go - HTTP API handlers for the shift compliance service

PURPOSE:
  Exposes the compliance engine via REST API. Handles HTTP request/response
  and JSON serialization, loads snapshots from the store, and delegates every
  hours, rest and recommendation decision to the compliance package.

ENDPOINTS:
  Users:
    GET    /api/users                                  List users
    POST   /api/users                                  Create or replace a user
    GET    /api/users/{id}                             Get one user
    GET    /api/users/{id}/weeks/{week}?real=true      Week view with compliance and advisory
    PUT    /api/users/{id}/weeks/{week}/days/{slot}    Editor save (?dryRun=true to preview)
    DELETE /api/users/{id}/weeks/{week}/days/{slot}    Clear a day

  Departments:
    GET    /api/departments                            Configured department list
    GET    /api/departments/{dept}/weeks/{week}        Every member's week

  Compliance:
    POST   /api/compliance/check                       Check a draft week, nothing stored
    GET    /api/recommendations?user=&week=&hours=     Relief candidates

  Jobs:
    GET    /api/jobs                                   Job schedules
    GET    /api/jobs/runs?job=                         Run history
    POST   /api/jobs/{name}/run                        Run a job now
    GET    /api/outbox?limit=                          Queued messages

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Users, schedules and job runs
  - Scheduler: Notification jobs (optional)
  - Outbox: Queued messages (optional)

REQUEST FLOW:
  1. Parse path and query parameters
  2. Load the user and week snapshot
  3. Call the engine (shift.NewEntry, compliance.Evaluate, FindCandidates)
  4. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with a status picked by statusFor:
  - 400: Validation errors, invalid input
  - 403: Caller's role may not edit schedules
  - 404: Unknown user, job or scenario
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scheduler.go: JobScheduler
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/compliance"
	"github.com/warp/shift-engine/metrics"
	"github.com/warp/shift-engine/notify"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
	"github.com/warp/shift-engine/store"
	"go.uber.org/zap"
)

// ActorHeader names the user making an editor change.
const ActorHeader = "X-Actor-ID"

var (
	errBadRequest = errors.New("bad request")
	errForbidden  = errors.New("role may not edit schedules")
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// OutboxReader lists queued messages.
type OutboxReader interface {
	ListOutbox(ctx context.Context, limit int) ([]notify.Message, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       store.Store
	Scheduler   *JobScheduler
	Outbox      OutboxReader
	Departments []string
	Logger      *zap.Logger

	// Now is the clock used for "current week" defaults.
	Now func() time.Time

	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(st store.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:  st,
		Logger: logger,
		Now:    time.Now,
	}
}

// Health reports that the service is up, pinging the database when the
// store has one.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUser returns one user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Store.GetUser(r.Context(), roster.UserID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// CreateUser creates or replaces a user. An unknown contract is stored as the
// default contract and logged; it is never rejected.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Department == "" {
		writeError(w, http.StatusBadRequest, "department is required", nil)
		return
	}
	if !h.knownDepartment(req.Department) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown department %q", req.Department), nil)
		return
	}
	role := roster.Role(req.Role)
	switch role {
	case roster.RoleNone, roster.RoleAdmin, roster.RoleModifier, roster.RoleViewer:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown role %q", req.Role), nil)
		return
	}

	contract, ok := roster.ParseContract(req.Contract)
	if !ok && req.Contract != "" {
		h.Logger.Warn("unknown contract, using default",
			zap.String("user", req.ID),
			zap.String("contract", req.Contract),
			zap.String("default", string(contract)),
		)
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	u := roster.User{
		ID:                    roster.UserID(id),
		FirstName:             strings.TrimSpace(req.FirstName),
		LastName:              strings.TrimSpace(req.LastName),
		Email:                 strings.TrimSpace(req.Email),
		Department:            req.Department,
		Contract:              contract,
		AuthorizedDepartments: req.AuthorizedDepartments,
		Role:                  role,
	}
	if err := h.Store.SaveUser(r.Context(), u); err != nil {
		h.fail(w, "Failed to save user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// =============================================================================
// WEEK VIEW
// =============================================================================

// GetUserWeek returns one user's week with totals, compliance and the
// advisory remaining-hours figure. ?real=true shows the figure without the
// previous week's overage.
func (h *Handler) GetUserWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	week, err := h.weekParam(r)
	if err != nil {
		h.fail(w, "Invalid week", err)
		return
	}
	u, err := h.Store.GetUser(ctx, roster.UserID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to get user", err)
		return
	}

	current, err := h.Store.GetWeek(ctx, u.ID, week)
	if err != nil {
		h.fail(w, "Failed to load week", err)
		return
	}
	previous, err := h.Store.GetWeek(ctx, u.ID, week.Prev())
	if err != nil {
		h.fail(w, "Failed to load previous week", err)
		return
	}

	writeJSON(w, http.StatusOK, weekView(u, week, current, previous, boolParam(r, "real")))
}

func weekView(u roster.User, week shift.WeekID, current, previous shift.WeeklySchedule, showReal bool) WeekViewDTO {
	report := compliance.Evaluate(u, current)
	return WeekViewDTO{
		User:       toUserDTO(u),
		Week:       week.String(),
		Days:       toDayDTOs(week, current),
		TotalHours: hours(report.Total),
		MaxHours:   hours(report.MaxHours),
		Compliance: toComplianceDTO(report),
		Advisory:   toAdvisoryDTO(compliance.NewAdvisory(u, current, previous, showReal)),
	}
}

// GetDepartmentWeek returns the week of every member of a department, in
// name order.
func (h *Handler) GetDepartmentWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dept, err := url.PathUnescape(chi.URLParam(r, "dept"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid department", err)
		return
	}
	week, err := h.weekParam(r)
	if err != nil {
		h.fail(w, "Invalid week", err)
		return
	}

	users, err := h.Store.ListUsers(ctx)
	if err != nil {
		h.fail(w, "Failed to list users", err)
		return
	}
	current, err := h.Store.WeekSnapshot(ctx, week)
	if err != nil {
		h.fail(w, "Failed to load week", err)
		return
	}
	previous, err := h.Store.WeekSnapshot(ctx, week.Prev())
	if err != nil {
		h.fail(w, "Failed to load previous week", err)
		return
	}

	var members []roster.User
	for _, u := range users {
		if u.Department == dept {
			members = append(members, u)
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].DisplayName() < members[j].DisplayName()
	})

	resp := DepartmentWeekDTO{Department: dept, Week: week.String(), Members: make([]WeekViewDTO, 0, len(members))}
	showReal := boolParam(r, "real")
	for _, u := range members {
		view := weekView(u, week, current[u.ID], previous[u.ID], showReal)
		if view.Compliance.HasViolation {
			resp.Violations++
		}
		resp.Members = append(resp.Members, view)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListDepartments returns the configured departments.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	depts := h.Departments
	if depts == nil {
		depts = []string{}
	}
	writeJSON(w, http.StatusOK, depts)
}

// =============================================================================
// EDITOR
// =============================================================================

// SaveDay validates and stores one day, then reports the week's compliance.
// Violations never block the save; they come back as warnings, with relief
// candidates when the week is over its ceiling. ?dryRun=true skips the write.
func (h *Handler) SaveDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	week, slot, err := h.daySlotParams(r)
	if err != nil {
		h.fail(w, "Invalid day", err)
		return
	}
	u, err := h.Store.GetUser(ctx, roster.UserID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to get user", err)
		return
	}
	if err := h.authorizeEditor(ctx, r); err != nil {
		h.fail(w, "Not allowed to edit schedules", err)
		return
	}

	var raw shift.RawEntry
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	entry, err := shift.NewEntry(raw)
	if err != nil {
		h.fail(w, "Invalid entry", err)
		return
	}

	snapshot, err := h.Store.WeekSnapshot(ctx, week)
	if err != nil {
		h.fail(w, "Failed to load week", err)
		return
	}
	draft := snapshot[u.ID].With(slot, entry)
	report := compliance.Evaluate(u, draft)

	dryRun := boolParam(r, "dryRun")
	if !dryRun {
		if err := h.Store.PutDay(ctx, u.ID, week, slot, entry); err != nil {
			h.fail(w, "Failed to save day", err)
			return
		}
	}
	for _, v := range report.Issues {
		metrics.ObserveViolation(string(v.Kind), "editor")
	}

	resp := SaveDayResponse{
		Day:        toDayDTOs(week, shift.WeeklySchedule{slot: entry})[0],
		Saved:      !dryRun,
		TotalHours: hours(report.Total),
		MaxHours:   hours(report.MaxHours),
		Compliance: toComplianceDTO(report),
		Candidates: []CandidateDTO{},
	}

	required := compliance.RequiredHours(u, draft)
	if compliance.ExceedsCeiling(report.Total, report.MaxHours) {
		users, err := h.Store.ListUsers(ctx)
		if err != nil {
			h.fail(w, "Failed to list users", err)
			return
		}
		snapshot[u.ID] = draft
		candidates := compliance.FindCandidates(required, users, u.ID, u.Department, store.ScheduleLookup(snapshot))
		resp.RequiredHours = hours(required)
		resp.Candidates = toCandidateDTOs(candidates)
	}

	h.Logger.Debug("day saved",
		zap.String("user", string(u.ID)),
		zap.String("week", week.String()),
		zap.String("slot", slot.Key()),
		zap.Bool("dry_run", dryRun),
		zap.Int("issues", len(report.Issues)),
	)
	writeJSON(w, http.StatusOK, resp)
}

// DeleteDay clears one day.
func (h *Handler) DeleteDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	week, slot, err := h.daySlotParams(r)
	if err != nil {
		h.fail(w, "Invalid day", err)
		return
	}
	u, err := h.Store.GetUser(ctx, roster.UserID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to get user", err)
		return
	}
	if err := h.authorizeEditor(ctx, r); err != nil {
		h.fail(w, "Not allowed to edit schedules", err)
		return
	}
	if err := h.Store.DeleteDay(ctx, u.ID, week, slot); err != nil {
		h.fail(w, "Failed to delete day", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorizeEditor checks the role of the user named by ActorHeader. Requests
// without the header are not checked.
func (h *Handler) authorizeEditor(ctx context.Context, r *http.Request) error {
	actorID := r.Header.Get(ActorHeader)
	if actorID == "" {
		return nil
	}
	actor, err := h.Store.GetUser(ctx, roster.UserID(actorID))
	if errors.Is(err, store.ErrUserNotFound) {
		return fmt.Errorf("%w: unknown actor %q", errForbidden, actorID)
	}
	if err != nil {
		return err
	}
	if !actor.Role.CanWrite() {
		return fmt.Errorf("%w: %s has role %q", errForbidden, actorID, actor.Role)
	}
	return nil
}

// =============================================================================
// COMPLIANCE HANDLERS
// =============================================================================

// CheckCompliance evaluates a draft week without storing anything.
func (h *Handler) CheckCompliance(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var u roster.User
	if req.UserID != "" {
		var err error
		u, err = h.Store.GetUser(r.Context(), roster.UserID(req.UserID))
		if err != nil {
			h.fail(w, "Failed to get user", err)
			return
		}
	} else {
		contract, ok := roster.ParseContract(req.Contract)
		if !ok && req.Contract != "" {
			h.Logger.Warn("unknown contract, using default",
				zap.String("contract", req.Contract),
				zap.String("default", string(contract)),
			)
		}
		u = roster.User{Contract: contract}
	}

	s, err := shift.NormalizeWeek(req.Days)
	if err != nil {
		h.fail(w, "Invalid week", err)
		return
	}
	report := compliance.Evaluate(u, s)
	for _, v := range report.Issues {
		metrics.ObserveViolation(string(v.Kind), "check")
	}

	writeJSON(w, http.StatusOK, CheckResponse{
		TotalHours: hours(report.Total),
		MaxHours:   hours(report.MaxHours),
		Compliance: toComplianceDTO(report),
	})
}

// GetRecommendations lists who could absorb hours for a user's department.
// Without ?hours= the user's own excess for the week is used.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	userID := q.Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user is required", nil)
		return
	}
	week := shift.WeekOf(h.Now())
	if ws := q.Get("week"); ws != "" {
		var err error
		if week, err = shift.ParseWeekID(ws); err != nil {
			h.fail(w, "Invalid week", err)
			return
		}
	}

	u, err := h.Store.GetUser(ctx, roster.UserID(userID))
	if err != nil {
		h.fail(w, "Failed to get user", err)
		return
	}
	users, err := h.Store.ListUsers(ctx)
	if err != nil {
		h.fail(w, "Failed to list users", err)
		return
	}
	snapshot, err := h.Store.WeekSnapshot(ctx, week)
	if err != nil {
		h.fail(w, "Failed to load week", err)
		return
	}

	required := compliance.RequiredHours(u, snapshot[u.ID])
	if hs := q.Get("hours"); hs != "" {
		required, err = decimal.NewFromString(hs)
		if err != nil || required.IsNegative() {
			writeError(w, http.StatusBadRequest, "hours must be a non-negative number", err)
			return
		}
	}

	candidates := compliance.FindCandidates(required, users, u.ID, u.Department, store.ScheduleLookup(snapshot))
	writeJSON(w, http.StatusOK, RecommendationResponse{
		User:          string(u.ID),
		Week:          week.String(),
		Department:    u.Department,
		RequiredHours: hours(required),
		Candidates:    toCandidateDTOs(candidates),
	})
}

// =============================================================================
// JOB HANDLERS
// =============================================================================

// ListJobs returns each job's schedule and next due time.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeJSON(w, http.StatusOK, []JobDTO{})
		return
	}
	next := h.Scheduler.NextDue()
	dtos := make([]JobDTO, 0, len(h.Scheduler.Schedules))
	for _, s := range h.Scheduler.Schedules {
		dto := JobDTO{Name: s.Job.Name, At: s.At.String(), Enabled: h.Scheduler.Enabled}
		if s.Weekday != nil {
			dto.Weekday = s.Weekday.String()
		}
		if t, ok := next[s.Job.Name]; ok {
			dto.NextDue = &t
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListJobRuns returns job runs, newest first, optionally for one job.
func (h *Handler) ListJobRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListJobRuns(r.Context(), r.URL.Query().Get("job"))
	if err != nil {
		h.fail(w, "Failed to list job runs", err)
		return
	}
	dtos := make([]JobRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toJobRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RunJob runs a notification job immediately. A job that ran but failed
// still answers 200 with its failed run record.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Job scheduler not configured", nil)
		return
	}
	run, err := h.Scheduler.RunNow(r.Context(), chi.URLParam(r, "name"))
	if err != nil && run.Status != store.RunFailed {
		h.fail(w, "Failed to run job", err)
		return
	}
	writeJSON(w, http.StatusOK, toJobRunDTO(run))
}

// ListOutbox returns queued messages, newest first (default limit 50).
func (h *Handler) ListOutbox(w http.ResponseWriter, r *http.Request) {
	if h.Outbox == nil {
		writeJSON(w, http.StatusOK, []notify.Message{})
		return
	}
	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", err)
			return
		}
		limit = n
	}
	msgs, err := h.Outbox.ListOutbox(r.Context(), limit)
	if err != nil {
		h.fail(w, "Failed to list outbox", err)
		return
	}
	if msgs == nil {
		msgs = []notify.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) knownDepartment(dept string) bool {
	if len(h.Departments) == 0 || dept == roster.TraineeDepartment {
		return true
	}
	for _, d := range h.Departments {
		if d == dept {
			return true
		}
	}
	return false
}

// weekParam reads {week}; "current" means the week containing now.
func (h *Handler) weekParam(r *http.Request) (shift.WeekID, error) {
	ws := chi.URLParam(r, "week")
	if ws == "current" {
		return shift.WeekOf(h.Now()), nil
	}
	return shift.ParseWeekID(ws)
}

func (h *Handler) daySlotParams(r *http.Request) (shift.WeekID, shift.DaySlot, error) {
	week, err := h.weekParam(r)
	if err != nil {
		return shift.WeekID{}, 0, err
	}
	slot, err := shift.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		return shift.WeekID{}, 0, err
	}
	return week, slot, nil
}

func boolParam(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, ErrUnknownJob),
		errors.Is(err, errUnknownScenario):
		return http.StatusNotFound
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, errBadRequest), shift.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status statusFor picks, logging server errors.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
