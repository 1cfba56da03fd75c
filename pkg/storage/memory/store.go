// Package memory is an in-process chapters.Store for development and tests.
// It enforces the same one-row-per-(user, school) constraint as PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
)

type pairKey struct {
	userID   string
	schoolID string
}

// Store keeps schools and assignments in maps guarded by one RWMutex
type Store struct {
	mu          sync.RWMutex
	schools     map[string]*chapters.School
	assignments map[string]*chapters.Assignment
	byPair      map[pairKey]string
}

// New creates an empty store
func New() *Store {
	return &Store{
		schools:     make(map[string]*chapters.School),
		assignments: make(map[string]*chapters.Assignment),
		byPair:      make(map[pairKey]string),
	}
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op
func (s *Store) Close() error { return nil }

func (s *Store) CreateSchool(_ context.Context, school *chapters.School) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schools[school.ID]; ok {
		return fmt.Errorf("school %s already exists", school.ID)
	}
	cp := *school
	s.schools[school.ID] = &cp
	return nil
}

// PutSchool inserts or replaces a school
func (s *Store) PutSchool(school *chapters.School) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *school
	s.schools[school.ID] = &cp
}

func (s *Store) GetSchool(_ context.Context, id string) (*chapters.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	school, ok := s.schools[id]
	if !ok {
		return nil, nil
	}
	cp := *school
	return &cp, nil
}

func (s *Store) ListActiveSchools(_ context.Context) ([]*chapters.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*chapters.School, 0, len(s.schools))
	for _, school := range s.schools {
		if school.IsActive {
			cp := *school
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) UpdateSchoolStats(_ context.Context, schoolID string, update chapters.StatsUpdate) (*chapters.School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	school, ok := s.schools[schoolID]
	if !ok {
		return nil, nil
	}
	if update.VolunteerHours != nil {
		school.VolunteerHours = *update.VolunteerHours
	}
	if update.ActiveMembers != nil {
		school.ActiveMembers = *update.ActiveMembers
	}
	school.UpdatedAt = update.UpdatedAt
	cp := *school
	return &cp, nil
}

func (s *Store) GetAssignment(_ context.Context, id string) (*chapters.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, nil
	}
	return s.project(a), nil
}

func (s *Store) FindAssignment(_ context.Context, userID, schoolID string) (*chapters.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[pairKey{userID, schoolID}]
	if !ok {
		return nil, nil
	}
	return s.project(s.assignments[id]), nil
}

func (s *Store) HasActiveAssignment(_ context.Context, userID, schoolID string, role chapters.Role) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[pairKey{userID, schoolID}]
	if !ok {
		return false, nil
	}
	a := s.assignments[id]
	return a.IsActive && a.Role == role, nil
}

func (s *Store) CreateAssignment(_ context.Context, n chapters.NewAssignment) (*chapters.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{n.UserID, n.SchoolID}
	if _, exists := s.byPair[key]; exists {
		return nil, chapters.ErrDuplicateAssignment
	}
	if _, exists := s.assignments[n.ID]; exists {
		return nil, fmt.Errorf("assignment id %s already in use", n.ID)
	}

	a := &chapters.Assignment{
		ID:         n.ID,
		UserID:     n.UserID,
		SchoolID:   n.SchoolID,
		Role:       n.Role,
		AssignedBy: n.AssignedBy,
		IsActive:   true,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.CreatedAt,
	}
	s.assignments[a.ID] = a
	s.byPair[key] = a.ID
	return s.project(a), nil
}

func (s *Store) UpdateAssignment(_ context.Context, id string, f chapters.AssignmentFields) (*chapters.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, nil
	}
	a.Role = f.Role
	a.AssignedBy = f.AssignedBy
	a.IsActive = f.IsActive
	a.UpdatedAt = f.UpdatedAt
	return s.project(a), nil
}

func (s *Store) ListActiveAssignmentsBySchool(_ context.Context, schoolID string) ([]*chapters.Assignment, error) {
	return s.listActive(func(a *chapters.Assignment) bool { return a.SchoolID == schoolID }), nil
}

func (s *Store) ListActiveAssignmentsByUser(_ context.Context, userID string) ([]*chapters.Assignment, error) {
	return s.listActive(func(a *chapters.Assignment) bool { return a.UserID == userID }), nil
}

func (s *Store) ListActiveAssignments(_ context.Context) ([]*chapters.Assignment, error) {
	return s.listActive(func(*chapters.Assignment) bool { return true }), nil
}

// RowCount returns the number of assignment rows for the pair, active or not
func (s *Store) RowCount(userID, schoolID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.assignments {
		if a.UserID == userID && a.SchoolID == schoolID {
			n++
		}
	}
	return n
}

func (s *Store) listActive(match func(*chapters.Assignment) bool) []*chapters.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*chapters.Assignment, 0)
	for _, a := range s.assignments {
		if a.IsActive && match(a) {
			out = append(out, s.project(a))
		}
	}
	return out
}

// project copies a and attaches its school; callers hold s.mu
func (s *Store) project(a *chapters.Assignment) *chapters.Assignment {
	cp := *a
	cp.School = s.schools[a.SchoolID].Ref()
	return &cp
}

var _ chapters.Store = (*Store)(nil)
