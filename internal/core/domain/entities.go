package domain

// Role represents user role in the system
type Role string

const (
	RoleUser       Role = "USER"
	RoleOffice     Role = "OFFICE"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

// AllRoles lists every role, least privileged first
var AllRoles = []Role{RoleUser, RoleOffice, RoleSupervisor, RoleAdmin}

// StaffRoles are the municipal employee roles
var StaffRoles = []Role{RoleOffice, RoleSupervisor, RoleAdmin}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleOffice, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r is SUPERVISOR, OFFICE or ADMIN
func (r Role) IsStaff() bool {
	return r == RoleOffice || r == RoleSupervisor || r == RoleAdmin
}

// IssueStatus represents the lifecycle state of an issue
type IssueStatus string

const (
	StatusPending    IssueStatus = "PENDING"
	StatusInProgress IssueStatus = "IN_PROGRESS"
	StatusCompleted  IssueStatus = "COMPLETED"
	StatusRejected   IssueStatus = "REJECTED"
	StatusCancelled  IssueStatus = "CANCELLED"
)

// AllStatuses in lifecycle order
var AllStatuses = []IssueStatus{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusRejected,
	StatusCancelled,
}

// Valid reports whether s is a known status
func (s IssueStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsOpen reports whether work on the issue is still outstanding
func (s IssueStatus) IsOpen() bool {
	return s == StatusPending || s == StatusInProgress
}

// Priority represents issue urgency
type Priority string

const (
	PriorityLow       Priority = "LOW"
	PriorityMedium    Priority = "MEDIUM"
	PriorityHigh      Priority = "HIGH"
	PriorityEmergency Priority = "EMERGENCY"
)

// AllPriorities ordered from lowest to highest
var AllPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency}

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	for _, known := range AllPriorities {
		if p == known {
			return true
		}
	}
	return false
}

// Actor is the authenticated caller of an operation
type Actor struct {
	ID   uint
	Role Role
}
