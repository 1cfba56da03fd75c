package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	now := time.Now().UTC()
	require.NoError(t, s.CreateSchool(context.Background(), &chapters.School{
		ID: "s1", Name: "Central High", Location: "Gulu", IsActive: true, CreatedAt: now, UpdatedAt: now,
	}))
	return s
}

func newAssignment(id, user string) chapters.NewAssignment {
	return chapters.NewAssignment{
		ID:         id,
		UserID:     user,
		SchoolID:   "s1",
		Role:       chapters.RoleChapterAdmin,
		AssignedBy: "sysadmin",
		CreatedAt:  time.Now().UTC(),
	}
}

func rowCount(t *testing.T, s *Store, userID, schoolID string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM chapter_admins WHERE user_id = ? AND school_id = ?`, userID, schoolID).Scan(&n))
	return n
}

func TestOpen(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := Open(context.Background(), "")
		assert.ErrorContains(t, err, "sqlite path is required")
	})

	t.Run("file database survives reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "chapters.db")
		ctx := context.Background()

		s, err := Open(ctx, path)
		require.NoError(t, err)
		now := time.Now().UTC()
		require.NoError(t, s.CreateSchool(ctx, &chapters.School{ID: "s1", Name: "A", IsActive: true, CreatedAt: now, UpdatedAt: now}))
		require.NoError(t, s.Ping(ctx))
		require.NoError(t, s.Close())

		s, err = Open(ctx, path)
		require.NoError(t, err)
		defer s.Close()
		school, err := s.GetSchool(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, school)
		assert.Equal(t, "A", school.Name)
	})
}

func TestStore_Schools(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	t.Run("duplicate id rejected", func(t *testing.T) {
		now := time.Now().UTC()
		err := s.CreateSchool(ctx, &chapters.School{ID: "s1", Name: "Again", CreatedAt: now, UpdatedAt: now})
		assert.ErrorContains(t, err, "school s1 already exists")
	})

	t.Run("missing school is nil", func(t *testing.T) {
		school, err := s.GetSchool(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, school)
	})

	t.Run("round trip", func(t *testing.T) {
		school, err := s.GetSchool(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, school)
		assert.Equal(t, "Central High", school.Name)
		assert.Equal(t, "Gulu", school.Location)
		assert.True(t, school.IsActive)
		assert.False(t, school.CreatedAt.IsZero())
	})

	t.Run("inactive schools are not listed", func(t *testing.T) {
		now := time.Now().UTC()
		require.NoError(t, s.CreateSchool(ctx, &chapters.School{ID: "s2", Name: "Closed", IsActive: false, CreatedAt: now, UpdatedAt: now}))
		schools, err := s.ListActiveSchools(ctx)
		require.NoError(t, err)
		require.Len(t, schools, 1)
		assert.Equal(t, "s1", schools[0].ID)
	})

	t.Run("stats update leaves unset fields", func(t *testing.T) {
		hours := int64(120)
		school, err := s.UpdateSchoolStats(ctx, "s1", chapters.StatsUpdate{VolunteerHours: &hours, UpdatedAt: time.Now().UTC()})
		require.NoError(t, err)
		assert.Equal(t, int64(120), school.VolunteerHours)
		assert.Zero(t, school.ActiveMembers)

		members := int64(9)
		school, err = s.UpdateSchoolStats(ctx, "s1", chapters.StatsUpdate{ActiveMembers: &members, UpdatedAt: time.Now().UTC()})
		require.NoError(t, err)
		assert.Equal(t, int64(120), school.VolunteerHours)
		assert.Equal(t, int64(9), school.ActiveMembers)
	})

	t.Run("stats update on missing school is nil", func(t *testing.T) {
		hours := int64(1)
		school, err := s.UpdateSchoolStats(ctx, "nope", chapters.StatsUpdate{VolunteerHours: &hours, UpdatedAt: time.Now().UTC()})
		require.NoError(t, err)
		assert.Nil(t, school)
	})
}

func TestStore_Assignments(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	created, err := s.CreateAssignment(ctx, newAssignment("a1", "u1"))
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	require.NotNil(t, created.School)
	assert.Equal(t, "Central High", created.School.Name)

	t.Run("second row for the pair is a duplicate", func(t *testing.T) {
		_, err := s.CreateAssignment(ctx, newAssignment("a2", "u1"))
		assert.ErrorIs(t, err, chapters.ErrDuplicateAssignment)
		assert.Equal(t, 1, rowCount(t, s, "u1", "s1"))
	})

	t.Run("stored roles only", func(t *testing.T) {
		n := newAssignment("a3", "u3")
		n.Role = chapters.RoleSystemAdmin
		_, err := s.CreateAssignment(ctx, n)
		assert.ErrorContains(t, err, "failed to create assignment")
	})

	t.Run("lookups", func(t *testing.T) {
		byID, err := s.GetAssignment(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "u1", byID.UserID)

		byPair, err := s.FindAssignment(ctx, "u1", "s1")
		require.NoError(t, err)
		assert.Equal(t, "a1", byPair.ID)

		missing, err := s.FindAssignment(ctx, "u9", "s1")
		require.NoError(t, err)
		assert.Nil(t, missing)

		ok, err := s.HasActiveAssignment(ctx, "u1", "s1", chapters.RoleChapterAdmin)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.HasActiveAssignment(ctx, "u1", "s1", chapters.RoleChapterSuperAdmin)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("deactivate keeps the row", func(t *testing.T) {
		updated, err := s.UpdateAssignment(ctx, "a1", chapters.AssignmentFields{
			Role: chapters.RoleChapterAdmin, AssignedBy: "sysadmin", IsActive: false, UpdatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)
		assert.NotNil(t, updated.School)

		list, err := s.ListActiveAssignmentsBySchool(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.Equal(t, 1, rowCount(t, s, "u1", "s1"))
	})

	t.Run("reactivate with role change", func(t *testing.T) {
		updated, err := s.UpdateAssignment(ctx, "a1", chapters.AssignmentFields{
			Role: chapters.RoleChapterSuperAdmin, AssignedBy: "sys2", IsActive: true, UpdatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.Equal(t, "a1", updated.ID)
		assert.Equal(t, chapters.RoleChapterSuperAdmin, updated.Role)
		assert.Equal(t, "sys2", updated.AssignedBy)

		byUser, err := s.ListActiveAssignmentsByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, byUser, 1)

		all, err := s.ListActiveAssignments(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("update of missing row is nil", func(t *testing.T) {
		a, err := s.UpdateAssignment(ctx, "missing", chapters.AssignmentFields{Role: chapters.RoleChapterAdmin, UpdatedAt: time.Now().UTC()})
		require.NoError(t, err)
		assert.Nil(t, a)
	})
}

func TestStore_ConcurrentCreateKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	const workers = 32
	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.CreateAssignment(ctx, newAssignment(fmt.Sprintf("a%d", i), "u1")); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, rowCount(t, s, "u1", "s1"))
}

// staticAdmins treats the listed users as global admins
type staticAdmins map[string]bool

func (a staticAdmins) IsGlobalAdmin(_ context.Context, userID string) (bool, error) {
	return a[userID], nil
}

func TestStore_EngineConcurrentAssign(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	engine := chapters.New(chapters.Deps{Identity: staticAdmins{"sysadmin": true}, Store: s}, chapters.Options{AssignRetries: 5})

	const workers = 64
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Assign(ctx, chapters.AssignRequest{
				SchoolID: "s1", TargetUserID: "u1", Role: chapters.RoleChapterAdmin, AssignedBy: "sysadmin",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, rowCount(t, s, "u1", "s1"))
	require.NoError(t, engine.Wait(ctx))
}
