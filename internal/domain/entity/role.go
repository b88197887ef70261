package entity

import "github.com/google/uuid"

// Role ID constants, as issued in access token claims by the identity service
const (
	RoleIDAdmin   = 1
	RoleIDDoctor  = 2
	RoleIDPatient = 3
)

// RoleNames constants
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// Actor is the authenticated caller of a scheduling operation.
// For doctors UserID is the doctor id, for patients it is the patient id.
type Actor struct {
	UserID uuid.UUID
	RoleID int
}

func (a Actor) IsDoctor() bool {
	return a.RoleID == RoleIDDoctor
}

func (a Actor) IsPatient() bool {
	return a.RoleID == RoleIDPatient
}

func (a Actor) IsAdmin() bool {
	return a.RoleID == RoleIDAdmin
}

// RoleName returns the textual role, used in reschedule history and audit trails.
func (a Actor) RoleName() string {
	switch a.RoleID {
	case RoleIDAdmin:
		return RoleAdmin
	case RoleIDDoctor:
		return RoleDoctor
	case RoleIDPatient:
		return RolePatient
	default:
		return "unknown"
	}
}
