package chapters

import (
	"fmt"
	"strings"
)

// Action is a protected operation gated by the permission matrix
type Action string

const (
	ActionCreateSchools        Action = "CREATE_SCHOOLS"
	ActionAssignChapterAdmin   Action = "ASSIGN_CHAPTER_ADMIN"
	ActionRemoveChapterAdmin   Action = "REMOVE_CHAPTER_ADMIN"
	ActionEditVolunteerHours   Action = "EDIT_VOLUNTEER_HOURS"
	ActionEditActiveMembers    Action = "EDIT_ACTIVE_MEMBERS"
	ActionCreateSchoolPosts    Action = "CREATE_SCHOOL_POSTS"
	ActionDeleteSchoolPosts    Action = "DELETE_SCHOOL_POSTS"
	ActionEditSchoolInfo       Action = "EDIT_SCHOOL_INFO"
	ActionViewSchoolAdminPanel Action = "VIEW_SCHOOL_ADMIN_PANEL"
)

var (
	systemOnly  = []Role{RoleSystemAdmin}
	superAdmins = []Role{RoleSystemAdmin, RoleChapterSuperAdmin}
	allAdmins   = []Role{RoleSystemAdmin, RoleChapterSuperAdmin, RoleChapterAdmin}
)

// actionOrder fixes the iteration order of the matrix
var actionOrder = []Action{
	ActionCreateSchools,
	ActionAssignChapterAdmin,
	ActionRemoveChapterAdmin,
	ActionEditVolunteerHours,
	ActionEditActiveMembers,
	ActionCreateSchoolPosts,
	ActionDeleteSchoolPosts,
	ActionEditSchoolInfo,
	ActionViewSchoolAdminPanel,
}

var permissionMatrix = map[Action][]Role{
	ActionCreateSchools:        systemOnly,
	ActionAssignChapterAdmin:   superAdmins,
	ActionRemoveChapterAdmin:   superAdmins,
	ActionEditVolunteerHours:   superAdmins,
	ActionEditActiveMembers:    allAdmins,
	ActionCreateSchoolPosts:    allAdmins,
	ActionDeleteSchoolPosts:    superAdmins,
	ActionEditSchoolInfo:       superAdmins,
	ActionViewSchoolAdminPanel: allAdmins,
}

// ParseAction converts an external action name into an Action
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := permissionMatrix[a]; !ok {
		return "", NewValidationError("action", fmt.Sprintf("unknown action %q", s))
	}
	return a, nil
}

// Actions returns every action in the matrix in declaration order
func Actions() []Action {
	out := make([]Action, len(actionOrder))
	copy(out, actionOrder)
	return out
}

// AllowedRoles returns the roles permitted to perform action.
// It panics on an action that is not in the matrix.
func AllowedRoles(action Action) []Role {
	roles, ok := permissionMatrix[action]
	if !ok {
		panic(fmt.Sprintf("chapters: action %q is not in the permission matrix", action))
	}
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// RoleAllows reports whether role is in the allowed set for action
func RoleAllows(role Role, action Action) bool {
	for _, r := range AllowedRoles(action) {
		if r == role {
			return true
		}
	}
	return false
}

// ActionsForRole intersects role against the whole matrix
func ActionsForRole(role Role) []Action {
	actions := make([]Action, 0, len(actionOrder))
	for _, a := range actionOrder {
		if RoleAllows(role, a) {
			actions = append(actions, a)
		}
	}
	return actions
}

// statAction maps a statistic to the action that gates edits to it
func statAction(stat Stat) Action {
	switch stat {
	case StatVolunteerHours:
		return ActionEditVolunteerHours
	case StatActiveMembers:
		return ActionEditActiveMembers
	}
	panic(fmt.Sprintf("chapters: unknown stat %q", stat))
}
