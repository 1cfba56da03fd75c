package chapters

import (
	"context"
	"sort"
)

// ListAdminsForSchool returns the school's active assignments, super admins
// first, then by creation time. Visible to any authenticated caller.
func (e *Engine) ListAdminsForSchool(ctx context.Context, schoolID string) ([]*Assignment, error) {
	if schoolID == "" {
		return nil, NewValidationError("schoolId", "is required")
	}
	return readThrough(ctx, e, familySchool, schoolAdminsKey(schoolID), e.opts.SchoolAdminsTTL,
		func(ctx context.Context) ([]*Assignment, error) {
			ctx, cancel := e.call(ctx)
			defer cancel()
			admins, err := e.store.ListActiveAssignmentsBySchool(ctx, schoolID)
			if err != nil {
				return nil, dependency("store: list assignments by school", err)
			}
			return sortAssignments(admins), nil
		})
}

// ListSchoolsForUser returns the user's active assignments with their schools
func (e *Engine) ListSchoolsForUser(ctx context.Context, userID string) ([]*Assignment, error) {
	if userID == "" {
		return nil, NewValidationError("userId", "is required")
	}
	return readThrough(ctx, e, familyUser, userSchoolsKey(userID), e.opts.UserSchoolsTTL,
		func(ctx context.Context) ([]*Assignment, error) {
			ctx, cancel := e.call(ctx)
			defer cancel()
			assignments, err := e.store.ListActiveAssignmentsByUser(ctx, userID)
			if err != nil {
				return nil, dependency("store: list assignments by user", err)
			}
			return sortAssignments(assignments), nil
		})
}

// ListAllSchoolsWithAdmins joins every active school with its active admins.
// Callers must have passed RequireSystemAdmin.
func (e *Engine) ListAllSchoolsWithAdmins(ctx context.Context) ([]*SchoolWithAdmins, error) {
	return readThrough(ctx, e, familyAll, allSchoolsKey(), e.opts.AllSchoolsTTL,
		func(ctx context.Context) ([]*SchoolWithAdmins, error) {
			schools, err := e.listActiveSchools(ctx)
			if err != nil {
				return nil, err
			}
			assignments, err := e.listAllActiveAssignments(ctx)
			if err != nil {
				return nil, err
			}

			bySchool := make(map[string][]*Assignment, len(schools))
			for _, a := range assignments {
				bySchool[a.SchoolID] = append(bySchool[a.SchoolID], a)
			}

			out := make([]*SchoolWithAdmins, 0, len(schools))
			for _, s := range schools {
				out = append(out, &SchoolWithAdmins{School: s, Admins: sortAssignments(bySchool[s.ID])})
			}
			sort.SliceStable(out, func(i, j int) bool {
				if out[i].School.Name != out[j].School.Name {
					return out[i].School.Name < out[j].School.Name
				}
				return out[i].School.ID < out[j].School.ID
			})
			return out, nil
		})
}

// SummarizePermissions resolves the caller's role at schoolID and lists every
// action and assignable role that follows from it
func (e *Engine) SummarizePermissions(ctx context.Context, callerID, schoolID string) (*PermissionSummary, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	role, err := e.ResolveRole(ctx, callerID, schoolID)
	if err != nil {
		return nil, err
	}

	assignable := []Role{}
	switch {
	case schoolID == "":
	case role == RoleSystemAdmin:
		assignable = append(assignable, RoleChapterSuperAdmin, RoleChapterAdmin)
	case RoleAllows(role, ActionAssignChapterAdmin):
		assignable = append(assignable, RoleChapterAdmin)
	}

	return &PermissionSummary{
		UserID:          callerID,
		SchoolID:        schoolID,
		Role:            role,
		Actions:         ActionsForRole(role),
		AssignableRoles: assignable,
	}, nil
}

func (e *Engine) listActiveSchools(ctx context.Context) ([]*School, error) {
	ctx, cancel := e.call(ctx)
	defer cancel()
	schools, err := e.store.ListActiveSchools(ctx)
	if err != nil {
		return nil, dependency("store: list active schools", err)
	}
	return schools, nil
}

func (e *Engine) listAllActiveAssignments(ctx context.Context) ([]*Assignment, error) {
	ctx, cancel := e.call(ctx)
	defer cancel()
	assignments, err := e.store.ListActiveAssignments(ctx)
	if err != nil {
		return nil, dependency("store: list active assignments", err)
	}
	return assignments, nil
}

// sortAssignments orders super admins before admins, then oldest first.
// A nil slice comes back empty so it encodes as [].
func sortAssignments(as []*Assignment) []*Assignment {
	if as == nil {
		return []*Assignment{}
	}
	sort.SliceStable(as, func(i, j int) bool {
		if ri, rj := as[i].Role.rank(), as[j].Role.rank(); ri != rj {
			return ri < rj
		}
		if !as[i].CreatedAt.Equal(as[j].CreatedAt) {
			return as[i].CreatedAt.Before(as[j].CreatedAt)
		}
		return as[i].ID < as[j].ID
	})
	return as
}
