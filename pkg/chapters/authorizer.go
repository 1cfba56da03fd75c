package chapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	msgSuperAdminAssign  = "Only system administrators can assign chapter super admin role"
	msgAssignDenied      = "Only system administrators and chapter super admins can assign chapter admins"
	msgRemoveSuperAdmin  = "Chapter super admins cannot remove other chapter super admins"
	msgRemoveDenied      = "Only system administrators and chapter super admins can remove chapter admins"
	msgSystemAdminOnly   = "System administrator access required"
	msgMissingSchool     = "A school is required for this action"
	msgAssignmentMissing = "Chapter admin assignment not found"
)

// IsAuthorized reports whether the caller's resolved role for schoolID is in
// the allowed set of action. An empty callerID is never authorized; an empty
// schoolID resolves only global admins.
func (e *Engine) IsAuthorized(ctx context.Context, callerID string, action Action, schoolID string) (bool, error) {
	allowed := AllowedRoles(action)
	if callerID == "" {
		return false, nil
	}

	role, err := e.ResolveRole(ctx, callerID, schoolID)
	if err != nil {
		return false, err
	}
	ok := containsRole(allowed, role)
	e.metrics.RecordAuthz(string(action), string(role), ok)
	return ok, nil
}

// RequireAuthorized is IsAuthorized returning ErrUnauthenticated or an
// *AccessDeniedError instead of false
func (e *Engine) RequireAuthorized(ctx context.Context, callerID string, action Action, schoolID string) error {
	roles := AllowedRoles(action)
	if callerID == "" {
		return ErrUnauthenticated
	}
	ok, err := e.IsAuthorized(ctx, callerID, action, schoolID)
	if err != nil {
		return err
	}
	if !ok {
		return denied(fmt.Sprintf("access denied: %s requires one of %s", action, joinRoles(roles)), roles...)
	}
	return nil
}

// RequireSystemAdmin checks only the identity provider's global admin flag
func (e *Engine) RequireSystemAdmin(ctx context.Context, callerID string) error {
	if callerID == "" {
		return ErrUnauthenticated
	}
	ok, err := e.isGlobalAdmin(ctx, callerID)
	if err != nil {
		return err
	}
	e.metrics.RecordAuthz("REQUIRE_SYSTEM_ADMIN", roleLabel(ok), ok)
	if !ok {
		return denied(msgSystemAdminOnly, RoleSystemAdmin)
	}
	return nil
}

// CanAssignRole reports whether the caller may assign targetRole at schoolID.
// CHAPTER_SUPER_ADMIN may only be assigned by system admins; CHAPTER_ADMIN
// by system admins and the school's super admins.
func (e *Engine) CanAssignRole(ctx context.Context, callerID string, targetRole Role, schoolID string) (bool, error) {
	return allowedOrErr(e.CheckAssignRole(ctx, callerID, targetRole, schoolID))
}

// CheckAssignRole is CanAssignRole returning the denial reason
func (e *Engine) CheckAssignRole(ctx context.Context, callerID string, targetRole Role, schoolID string) error {
	if callerID == "" {
		return ErrUnauthenticated
	}
	if schoolID == "" {
		return denied(msgMissingSchool)
	}
	if !targetRole.IsChapterRole() {
		return NewValidationError("role", "must be CHAPTER_SUPER_ADMIN or CHAPTER_ADMIN")
	}

	role, err := e.ResolveRole(ctx, callerID, schoolID)
	if err != nil {
		return err
	}

	var ok bool
	switch targetRole {
	case RoleChapterSuperAdmin:
		ok = role == RoleSystemAdmin
		err = denied(msgSuperAdminAssign, RoleSystemAdmin)
	default:
		ok = RoleAllows(role, ActionAssignChapterAdmin)
		err = denied(msgAssignDenied, AllowedRoles(ActionAssignChapterAdmin)...)
	}
	e.metrics.RecordAuthz(string(ActionAssignChapterAdmin), string(role), ok)
	if ok {
		return nil
	}
	return err
}

// CanRemoveAdmin reports whether the caller may deactivate the assignment.
// System admins may remove anyone; a school's super admin may remove only
// that school's CHAPTER_ADMIN assignments.
func (e *Engine) CanRemoveAdmin(ctx context.Context, callerID, assignmentID string) (bool, error) {
	ok, err := allowedOrErr(e.CheckRemoveAdmin(ctx, callerID, assignmentID))
	if errors.Is(err, ErrAssignmentNotFound) {
		return false, nil
	}
	return ok, err
}

// CheckRemoveAdmin is CanRemoveAdmin returning the denial reason, or
// ErrAssignmentNotFound when the target does not exist
func (e *Engine) CheckRemoveAdmin(ctx context.Context, callerID, assignmentID string) error {
	if callerID == "" {
		return ErrUnauthenticated
	}
	if assignmentID == "" {
		return denied(msgAssignmentMissing)
	}

	target, err := e.getAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrAssignmentNotFound
	}

	role, err := e.ResolveRole(ctx, callerID, target.SchoolID)
	if err != nil {
		return err
	}

	ok := false
	switch role {
	case RoleSystemAdmin:
		ok = true
		err = nil
	case RoleChapterSuperAdmin:
		ok = target.Role == RoleChapterAdmin
		err = denied(msgRemoveSuperAdmin, RoleSystemAdmin)
	default:
		err = denied(msgRemoveDenied, AllowedRoles(ActionRemoveChapterAdmin)...)
	}
	e.metrics.RecordAuthz(string(ActionRemoveChapterAdmin), string(role), ok)
	if ok {
		return nil
	}
	return err
}

// CanEditSchoolStats dispatches to the matrix entry gating the statistic
func (e *Engine) CanEditSchoolStats(ctx context.Context, callerID, schoolID string, stat Stat) (bool, error) {
	return allowedOrErr(e.CheckEditSchoolStats(ctx, callerID, schoolID, stat))
}

// CheckEditSchoolStats is CanEditSchoolStats returning the denial reason
func (e *Engine) CheckEditSchoolStats(ctx context.Context, callerID, schoolID string, stat Stat) error {
	if callerID == "" {
		return ErrUnauthenticated
	}
	if schoolID == "" {
		return denied(msgMissingSchool)
	}
	if _, err := ParseStat(string(stat)); err != nil {
		return err
	}
	return e.RequireAuthorized(ctx, callerID, statAction(stat), schoolID)
}

// allowedOrErr folds a Check* result into the boolean form: denials and
// missing identities become false, dependency failures pass through.
func allowedOrErr(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrUnauthenticated), IsAccessDenied(err), IsValidation(err):
		return false, nil
	default:
		return false, err
	}
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func joinRoles(roles []Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func roleLabel(global bool) string {
	if global {
		return string(RoleSystemAdmin)
	}
	return string(RoleUser)
}
