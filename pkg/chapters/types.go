package chapters

import (
	"strings"
	"time"
)

// Role is a caller's effective role for a school
type Role string

const (
	RoleSystemAdmin       Role = "SYSTEM_ADMIN"        // Global, reported by the identity provider
	RoleChapterSuperAdmin Role = "CHAPTER_SUPER_ADMIN" // Stored per school
	RoleChapterAdmin      Role = "CHAPTER_ADMIN"       // Stored per school
	RoleUser              Role = "USER"                // Implicit default
)

// ParseRole converts an external role string into a Role
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleSystemAdmin, RoleChapterSuperAdmin, RoleChapterAdmin, RoleUser:
		return r, nil
	}
	return "", NewValidationError("role", "must be one of SYSTEM_ADMIN, CHAPTER_SUPER_ADMIN, CHAPTER_ADMIN, USER")
}

// IsChapterRole reports whether the role can be stored on an assignment
func (r Role) IsChapterRole() bool {
	return r == RoleChapterSuperAdmin || r == RoleChapterAdmin
}

// rank orders stored roles for list output: super admins first
func (r Role) rank() int {
	switch r {
	case RoleChapterSuperAdmin:
		return 0
	case RoleChapterAdmin:
		return 1
	default:
		return 2
	}
}

// Stat names an editable school statistic
type Stat string

const (
	StatVolunteerHours Stat = "volunteerHours"
	StatActiveMembers  Stat = "activeMembers"
)

// ParseStat converts an external statistic name into a Stat
func ParseStat(s string) (Stat, error) {
	switch st := Stat(strings.TrimSpace(s)); st {
	case StatVolunteerHours, StatActiveMembers:
		return st, nil
	}
	return "", NewValidationError("stat", "must be volunteerHours or activeMembers")
}

// School identifies an institution. Owned by the persistence layer.
type School struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	IsActive       bool      `json:"isActive"`
	VolunteerHours int64     `json:"volunteerHours"`
	ActiveMembers  int64     `json:"activeMembers"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SchoolRef is the projection of a school returned alongside assignments
type SchoolRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// Ref projects the school down to the fields exposed with an assignment
func (s *School) Ref() *SchoolRef {
	if s == nil {
		return nil
	}
	return &SchoolRef{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Location:    s.Location,
		IsActive:    s.IsActive,
	}
}

// Assignment grants one chapter role to one user for one school.
// At most one row exists per (UserID, SchoolID); removal only clears IsActive.
type Assignment struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	SchoolID   string     `json:"schoolId"`
	Role       Role       `json:"role"`
	AssignedBy string     `json:"assignedBy"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	School     *SchoolRef `json:"school,omitempty"`
}

// AssignmentFields are the mutable columns of an assignment
type AssignmentFields struct {
	Role       Role
	AssignedBy string
	IsActive   bool
	UpdatedAt  time.Time
}

// NewAssignment is the input to Store.CreateAssignment
type NewAssignment struct {
	ID         string
	UserID     string
	SchoolID   string
	Role       Role
	AssignedBy string
	CreatedAt  time.Time
}

// StatsUpdate carries new statistic values; nil fields are left unchanged
type StatsUpdate struct {
	VolunteerHours *int64
	ActiveMembers  *int64
	UpdatedAt      time.Time
}

// SchoolWithAdmins is one entry of the system-admin aggregate view
type SchoolWithAdmins struct {
	School *School       `json:"school"`
	Admins []*Assignment `json:"admins"`
}

// PermissionSummary is a read-only view of what a caller may do at a school
type PermissionSummary struct {
	UserID          string   `json:"userId"`
	SchoolID        string   `json:"schoolId,omitempty"`
	Role            Role     `json:"role"`
	Actions         []Action `json:"actions"`
	AssignableRoles []Role   `json:"assignableRoles"`
}

// Can reports whether the summary includes the action
func (p *PermissionSummary) Can(action Action) bool {
	for _, a := range p.Actions {
		if a == action {
			return true
		}
	}
	return false
}
