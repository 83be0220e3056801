// Package roster holds the people being scheduled: users, their departments,
// contracts and roles.
package roster

import "strings"

// =============================================================================
// CONTRACT
// =============================================================================

// Contract is the employment contract type, which sets the weekly-hour ceiling.
type Contract string

const (
	ContractOperativo Contract = "Operativo"
	ContractConfianza Contract = "Confianza"

	DefaultContract = ContractOperativo
)

// ParseContract resolves a stored contract string. Unknown or empty values
// fall back to DefaultContract; ok is false when the fallback was used.
func ParseContract(s string) (c Contract, ok bool) {
	switch Contract(strings.TrimSpace(s)) {
	case ContractOperativo:
		return ContractOperativo, true
	case ContractConfianza:
		return ContractConfianza, true
	}
	return DefaultContract, false
}

// Known reports whether c is one of the two contract types.
func (c Contract) Known() bool {
	return c == ContractOperativo || c == ContractConfianza
}

// =============================================================================
// ROLE
// =============================================================================

// Role governs write permissions in the surrounding application.
// The compliance engine never looks at it.
type Role string

const (
	RoleNone     Role = ""
	RoleAdmin    Role = "Administrador"
	RoleModifier Role = "Modificador"
	RoleViewer   Role = "Visor"
)

// CanWrite reports whether the role may edit schedules.
func (r Role) CanWrite() bool { return r == RoleAdmin || r == RoleModifier }

// =============================================================================
// USER
// =============================================================================

type UserID string

// TraineeDepartment is the cross-training department whose members may be
// authorized to cover hours in other departments.
const TraineeDepartment = "Practicantes/Crosstraining"

// User is one scheduled person.
type User struct {
	ID                    UserID
	FirstName             string
	LastName              string
	Email                 string
	Department            string
	Contract              Contract
	AuthorizedDepartments []string
	Role                  Role
}

// DisplayName is first and last name joined.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsTrainee reports whether the user belongs to the cross-training department.
func (u User) IsTrainee() bool { return u.Department == TraineeDepartment }

// AuthorizedFor reports whether a trainee may cover hours in dept.
// Non-trainees are never authorized through this list.
func (u User) AuthorizedFor(dept string) bool {
	if !u.IsTrainee() {
		return false
	}
	for _, d := range u.AuthorizedDepartments {
		if d == dept {
			return true
		}
	}
	return false
}

// Index maps users by ID.
func Index(users []User) map[UserID]User {
	out := make(map[UserID]User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}
