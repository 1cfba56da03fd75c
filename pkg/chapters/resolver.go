package chapters

import "context"

// ResolveRole computes the caller's effective role for a school.
//
// A global admin is SYSTEM_ADMIN everywhere, including when schoolID is empty.
// Otherwise the active stored assignment decides, with CHAPTER_SUPER_ADMIN
// checked before CHAPTER_ADMIN, and USER is the fallback.
func (e *Engine) ResolveRole(ctx context.Context, callerID, schoolID string) (Role, error) {
	if callerID == "" {
		return RoleUser, nil
	}

	global, err := e.isGlobalAdmin(ctx, callerID)
	if err != nil {
		return RoleUser, err
	}
	if global {
		return RoleSystemAdmin, nil
	}

	if schoolID == "" {
		return RoleUser, nil
	}

	for _, role := range []Role{RoleChapterSuperAdmin, RoleChapterAdmin} {
		ok, err := e.hasActive(ctx, callerID, schoolID, role)
		if err != nil {
			return RoleUser, err
		}
		if ok {
			return role, nil
		}
	}
	return RoleUser, nil
}

func (e *Engine) hasActive(ctx context.Context, userID, schoolID string, role Role) (bool, error) {
	ctx, cancel := e.call(ctx)
	defer cancel()
	ok, err := e.store.HasActiveAssignment(ctx, userID, schoolID, role)
	if err != nil {
		return false, dependency("store: has active assignment", err)
	}
	return ok, nil
}
