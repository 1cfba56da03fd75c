package cli

import (
	"context"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/client"
)

// Backend is what the data commands need. *client.Client implements it over
// HTTP; localBackend drives the engine directly.
type Backend interface {
	CreateSchool(ctx context.Context, req chapters.SchoolRequest) (*chapters.School, error)
	Assign(ctx context.Context, schoolID, userID string, role chapters.Role) (*chapters.Assignment, error)
	Remove(ctx context.Context, assignmentID string) (*chapters.Assignment, error)
	UpdateSchoolStats(ctx context.Context, schoolID string, volunteerHours, activeMembers *int64) (*chapters.School, error)
	ListAdminsForSchool(ctx context.Context, schoolID string) ([]*chapters.Assignment, error)
	ListSchoolsForUser(ctx context.Context, userID string) ([]*chapters.Assignment, error)
	ListAllSchoolsWithAdmins(ctx context.Context) ([]*chapters.SchoolWithAdmins, error)
	Permissions(ctx context.Context, schoolID string) (*chapters.PermissionSummary, error)
}

// localBackend acts as an operator with database access: changes are
// recorded under actor and are not checked against the permission matrix.
type localBackend struct {
	engine *chapters.Engine
	actor  string
}

func (b *localBackend) CreateSchool(ctx context.Context, req chapters.SchoolRequest) (*chapters.School, error) {
	req.CreatedBy = b.actor
	return b.engine.CreateSchool(ctx, req)
}

func (b *localBackend) Assign(ctx context.Context, schoolID, userID string, role chapters.Role) (*chapters.Assignment, error) {
	return b.engine.Assign(ctx, chapters.AssignRequest{
		SchoolID:     schoolID,
		TargetUserID: userID,
		Role:         role,
		AssignedBy:   b.actor,
	})
}

func (b *localBackend) Remove(ctx context.Context, assignmentID string) (*chapters.Assignment, error) {
	return b.engine.Remove(ctx, assignmentID, b.actor)
}

func (b *localBackend) UpdateSchoolStats(ctx context.Context, schoolID string, volunteerHours, activeMembers *int64) (*chapters.School, error) {
	return b.engine.UpdateSchoolStats(ctx, chapters.StatsRequest{
		SchoolID:       schoolID,
		VolunteerHours: volunteerHours,
		ActiveMembers:  activeMembers,
		UpdatedBy:      b.actor,
	})
}

func (b *localBackend) ListAdminsForSchool(ctx context.Context, schoolID string) ([]*chapters.Assignment, error) {
	return b.engine.ListAdminsForSchool(ctx, schoolID)
}

func (b *localBackend) ListSchoolsForUser(ctx context.Context, userID string) ([]*chapters.Assignment, error) {
	return b.engine.ListSchoolsForUser(ctx, userID)
}

func (b *localBackend) ListAllSchoolsWithAdmins(ctx context.Context) ([]*chapters.SchoolWithAdmins, error) {
	return b.engine.ListAllSchoolsWithAdmins(ctx)
}

// Permissions reports what the actor could do through the API
func (b *localBackend) Permissions(ctx context.Context, schoolID string) (*chapters.PermissionSummary, error) {
	return b.engine.SummarizePermissions(ctx, b.actor, schoolID)
}

var (
	_ Backend = (*localBackend)(nil)
	_ Backend = (*client.Client)(nil)
)
