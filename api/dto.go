/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's model (decimal hours, typed slots) from the external contract:
  hours are plain numbers, days are keyed "dia1".."dia7", weeks are "2026-7".

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Users:       UserDTO, CreateUserRequest
  Weeks:       DayDTO, WeekViewDTO, DepartmentWeekDTO
  Compliance:  ComplianceDTO, ViolationDTO, AdvisoryDTO, CheckRequest
  Editor:      SaveDayResponse, CandidateDTO, RecommendationResponse
  Jobs:        JobDTO, JobRunDTO
  Demo:        ScenarioDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. Day bodies are decoded as
  shift.RawEntry, so the editor accepts both stored shapes.

SEE ALSO:
  - handlers.go: Uses these types
  - shift/entry.go: RawEntry, the wire shape of a day
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/compliance"
	"github.com/warp/shift-engine/roster"
	"github.com/warp/shift-engine/shift"
	"github.com/warp/shift-engine/store"
)

// =============================================================================
// USERS
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID                    string   `json:"id"`
	FirstName             string   `json:"firstName"`
	LastName              string   `json:"lastName"`
	DisplayName           string   `json:"displayName"`
	Email                 string   `json:"email"`
	Department            string   `json:"department"`
	Contract              string   `json:"contract"`
	MaxHours              float64  `json:"maxHours"`
	AuthorizedDepartments []string `json:"authorizedDepartments"`
	Role                  string   `json:"role"`
	Trainee               bool     `json:"trainee"`
}

// CreateUserRequest is the body for POST /api/users. An empty ID is generated.
type CreateUserRequest struct {
	ID                    string   `json:"id"`
	FirstName             string   `json:"firstName"`
	LastName              string   `json:"lastName"`
	Email                 string   `json:"email"`
	Department            string   `json:"department"`
	Contract              string   `json:"contract"`
	AuthorizedDepartments []string `json:"authorizedDepartments"`
	Role                  string   `json:"role"`
}

func toUserDTO(u roster.User) UserDTO {
	authorized := u.AuthorizedDepartments
	if authorized == nil {
		authorized = []string{}
	}
	return UserDTO{
		ID:                    string(u.ID),
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		DisplayName:           u.DisplayName(),
		Email:                 u.Email,
		Department:            u.Department,
		Contract:              string(u.Contract),
		MaxHours:              hours(compliance.MaxHours(u.Contract)),
		AuthorizedDepartments: authorized,
		Role:                  string(u.Role),
		Trainee:               u.IsTrainee(),
	}
}

// =============================================================================
// WEEKS
// =============================================================================

// DayDTO is one day: the stored shape plus the derived hours.
type DayDTO struct {
	Slot    string         `json:"slot"`
	Weekday string         `json:"weekday"`
	Date    string         `json:"date"`
	Entry   shift.RawEntry `json:"entry"`
	Hours   float64        `json:"hours"`
}

// WeekViewDTO is the consultation view of one user's week.
type WeekViewDTO struct {
	User       UserDTO       `json:"user"`
	Week       string        `json:"week"`
	Days       []DayDTO      `json:"days"`
	TotalHours float64       `json:"totalHours"`
	MaxHours   float64       `json:"maxHours"`
	Compliance ComplianceDTO `json:"compliance"`
	Advisory   *AdvisoryDTO  `json:"advisory,omitempty"`
}

// DepartmentWeekDTO is every member's week for one department.
type DepartmentWeekDTO struct {
	Department string        `json:"department"`
	Week       string        `json:"week"`
	Members    []WeekViewDTO `json:"members"`
	Violations int           `json:"violations"`
}

func toDayDTOs(week shift.WeekID, s shift.WeeklySchedule) []DayDTO {
	out := make([]DayDTO, 0, len(s))
	for _, slot := range s.Slots() {
		e := s[slot]
		out = append(out, DayDTO{
			Slot:    slot.Key(),
			Weekday: slot.String(),
			Date:    week.Date(slot, time.UTC).Format("2006-01-02"),
			Entry:   e.Raw(),
			Hours:   hours(e.AccruedHours()),
		})
	}
	return out
}

// =============================================================================
// COMPLIANCE
// =============================================================================

// ViolationDTO is one broken rule.
type ViolationDTO struct {
	Kind   string  `json:"kind"`
	Detail string  `json:"detail"`
	Hours  float64 `json:"hours"`
	Limit  float64 `json:"limit"`
	From   string  `json:"from,omitempty"`
	To     string  `json:"to,omitempty"`
}

// ComplianceDTO mirrors compliance.Result plus the full issue list.
type ComplianceDTO struct {
	HasViolation bool           `json:"hasViolation"`
	Kind         string         `json:"kind,omitempty"`
	Detail       string         `json:"detail,omitempty"`
	Issues       []ViolationDTO `json:"issues"`
}

// AdvisoryDTO is the remaining-hours figure shown beside a week.
type AdvisoryDTO struct {
	Ceiling          float64 `json:"ceiling"`
	PriorOverage     float64 `json:"priorOverage"`
	Available        float64 `json:"horasDisponibles"`
	Current          float64 `json:"current"`
	Remaining        float64 `json:"remaining"`
	ShowingRealHours bool    `json:"mostrarReal"`
}

// CheckRequest is the body for POST /api/compliance/check. Either UserID
// names a stored user or Contract gives the ceiling directly.
type CheckRequest struct {
	UserID   string        `json:"userId"`
	Contract string        `json:"contract"`
	Days     shift.RawWeek `json:"days"`
}

// CheckResponse is the result of a dry-run check.
type CheckResponse struct {
	TotalHours float64       `json:"totalHours"`
	MaxHours   float64       `json:"maxHours"`
	Compliance ComplianceDTO `json:"compliance"`
}

func toComplianceDTO(r compliance.Report) ComplianceDTO {
	out := ComplianceDTO{
		HasViolation: r.Result.HasViolation,
		Kind:         string(r.Result.Kind),
		Detail:       r.Result.Detail,
		Issues:       make([]ViolationDTO, len(r.Issues)),
	}
	for i, v := range r.Issues {
		out.Issues[i] = ViolationDTO{
			Kind:   string(v.Kind),
			Detail: v.Detail,
			Hours:  hours(v.Hours),
			Limit:  hours(v.Limit),
		}
		if v.Kind == compliance.ViolationRest {
			out.Issues[i].From = v.From.Key()
			out.Issues[i].To = v.To.Key()
		}
	}
	return out
}

func toAdvisoryDTO(a compliance.Advisory) *AdvisoryDTO {
	return &AdvisoryDTO{
		Ceiling:          hours(a.Ceiling),
		PriorOverage:     hours(a.PriorOverage),
		Available:        hours(a.Available),
		Current:          hours(a.Current),
		Remaining:        hours(a.Remaining),
		ShowingRealHours: a.Real,
	}
}

// =============================================================================
// EDITOR / RECOMMENDATIONS
// =============================================================================

// CandidateDTO is one user who could absorb excess hours.
type CandidateDTO struct {
	User           UserDTO `json:"user"`
	AvailableHours float64 `json:"availableHours"`
	CurrentHours   float64 `json:"currentHours"`
	MaxHours       float64 `json:"maxHours"`
	Trainee        bool    `json:"trainee"`
}

// SaveDayResponse is returned by the editor save: the stored day, the week's
// compliance after the save and, on an hours violation, relief candidates.
type SaveDayResponse struct {
	Day           DayDTO         `json:"day"`
	Saved         bool           `json:"saved"`
	TotalHours    float64        `json:"totalHours"`
	MaxHours      float64        `json:"maxHours"`
	Compliance    ComplianceDTO  `json:"compliance"`
	RequiredHours float64        `json:"requiredHours"`
	Candidates    []CandidateDTO `json:"candidates"`
}

// RecommendationResponse answers GET /api/recommendations.
type RecommendationResponse struct {
	User          string         `json:"user"`
	Week          string         `json:"week"`
	Department    string         `json:"department"`
	RequiredHours float64        `json:"requiredHours"`
	Candidates    []CandidateDTO `json:"candidates"`
}

func toCandidateDTOs(cs []compliance.Candidate) []CandidateDTO {
	out := make([]CandidateDTO, len(cs))
	for i, c := range cs {
		out[i] = CandidateDTO{
			User:           toUserDTO(c.User),
			AvailableHours: hours(c.AvailableHours),
			CurrentHours:   hours(c.CurrentHours),
			MaxHours:       hours(c.MaxHours),
			Trainee:        c.Trainee,
		}
	}
	return out
}

// =============================================================================
// JOBS
// =============================================================================

// JobDTO is one notification job's schedule.
type JobDTO struct {
	Name    string     `json:"name"`
	At      string     `json:"at"`
	Weekday string     `json:"weekday,omitempty"`
	Enabled bool       `json:"enabled"`
	NextDue *time.Time `json:"nextDue,omitempty"`
}

// JobRunDTO represents one notification job run.
type JobRunDTO struct {
	ID          string     `json:"id"`
	Job         string     `json:"job"`
	Trigger     string     `json:"trigger"`
	RunDate     string     `json:"runDate"`
	Week        string     `json:"week"`
	Status      string     `json:"status"`
	Messages    int        `json:"messages"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toJobRunDTO(r store.JobRun) JobRunDTO {
	return JobRunDTO{
		ID:          r.ID,
		Job:         r.Job,
		Trigger:     string(r.Trigger),
		RunDate:     r.RunDate,
		Week:        r.Week,
		Status:      string(r.Status),
		Messages:    r.Messages,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// hours converts a decimal hour figure for JSON, rounded to two places.
func hours(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
