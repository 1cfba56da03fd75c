// Package postgres is the PostgreSQL chapters.Store. The UNIQUE
// (user_id, school_id) constraint on chapter_admins is what makes
// concurrent first-time assignments collapse to one row.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
)

const (
	pairConstraint  = "chapter_admins_user_school_key"
	uniqueViolation = "23505"
)

const (
	assignmentColumns = `a.id, a.user_id, a.school_id, a.role, a.assigned_by, a.is_active, a.created_at, a.updated_at,
		s.id, s.name, s.description, s.location, s.is_active`
	schoolColumns = `id, name, description, location, is_active, volunteer_hours, active_members, created_at, updated_at`
)

// Store implements chapters.Store on PostgreSQL
type Store struct {
	conn         *ConnectionManager
	replicaReads bool
}

// Option configures a Store
type Option func(*Store)

// WithReplicaReads routes list queries to read replicas. Lookups used by
// the assignment lifecycle, and list queries marked with
// chapters.WithPrimaryRead, always read the primary.
func WithReplicaReads(enabled bool) Option {
	return func(s *Store) { s.replicaReads = enabled }
}

// New creates a store on top of conn
func New(conn *ConnectionManager, opts ...Option) *Store {
	s := &Store{conn: conn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the primary pool
func (s *Store) DB() *sql.DB {
	return s.conn.Primary()
}

// Ping checks primary and replica health
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.HealthCheck(ctx)
}

// Close closes every pool
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) reader(ctx context.Context) *sql.DB {
	if s.replicaReads && !chapters.IsPrimaryRead(ctx) {
		return s.conn.Replica()
	}
	return s.conn.Primary()
}

func (s *Store) CreateSchool(ctx context.Context, school *chapters.School) error {
	query := `
		INSERT INTO schools (id, name, description, location, is_active, volunteer_hours, active_members, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.conn.Primary().ExecContext(ctx, query,
		school.ID,
		school.Name,
		school.Description,
		school.Location,
		school.IsActive,
		school.VolunteerHours,
		school.ActiveMembers,
		school.CreatedAt,
		school.UpdatedAt,
	)
	if isUniqueViolation(err, "schools_pkey") {
		return fmt.Errorf("school %s already exists", school.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create school: %w", err)
	}
	return nil
}

func (s *Store) GetSchool(ctx context.Context, id string) (*chapters.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE id = $1`
	school, err := scanSchool(s.conn.Primary().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get school: %w", err)
	}
	return school, nil
}

func (s *Store) ListActiveSchools(ctx context.Context) ([]*chapters.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE is_active ORDER BY name, id`
	rows, err := s.reader(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	defer rows.Close()

	schools := make([]*chapters.School, 0)
	for rows.Next() {
		school, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		schools = append(schools, school)
	}
	return schools, rows.Err()
}

func (s *Store) UpdateSchoolStats(ctx context.Context, schoolID string, update chapters.StatsUpdate) (*chapters.School, error) {
	query := `
		UPDATE schools
		SET volunteer_hours = COALESCE($2, volunteer_hours),
		    active_members = COALESCE($3, active_members),
		    updated_at = $4
		WHERE id = $1
		RETURNING ` + schoolColumns

	school, err := scanSchool(s.conn.Primary().QueryRowContext(ctx, query,
		schoolID,
		nullInt64(update.VolunteerHours),
		nullInt64(update.ActiveMembers),
		update.UpdatedAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update school stats: %w", err)
	}
	return school, nil
}

func (s *Store) GetAssignment(ctx context.Context, id string) (*chapters.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM chapter_admins a JOIN schools s ON s.id = a.school_id
		WHERE a.id = $1`
	return s.getAssignment(ctx, query, id)
}

func (s *Store) FindAssignment(ctx context.Context, userID, schoolID string) (*chapters.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM chapter_admins a JOIN schools s ON s.id = a.school_id
		WHERE a.user_id = $1 AND a.school_id = $2`
	return s.getAssignment(ctx, query, userID, schoolID)
}

func (s *Store) getAssignment(ctx context.Context, query string, args ...interface{}) (*chapters.Assignment, error) {
	a, err := scanAssignment(s.conn.Primary().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

func (s *Store) HasActiveAssignment(ctx context.Context, userID, schoolID string, role chapters.Role) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM chapter_admins
			WHERE user_id = $1 AND school_id = $2 AND role = $3 AND is_active
		)
	`
	var exists bool
	if err := s.conn.Primary().QueryRowContext(ctx, query, userID, schoolID, string(role)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}
	return exists, nil
}

func (s *Store) CreateAssignment(ctx context.Context, n chapters.NewAssignment) (*chapters.Assignment, error) {
	query := `
		WITH a AS (
			INSERT INTO chapter_admins (id, user_id, school_id, role, assigned_by, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
			RETURNING *
		)
		SELECT ` + assignmentColumns + ` FROM a JOIN schools s ON s.id = a.school_id
	`
	a, err := scanAssignment(s.conn.Primary().QueryRowContext(ctx, query,
		n.ID,
		n.UserID,
		n.SchoolID,
		string(n.Role),
		n.AssignedBy,
		n.CreatedAt,
	))
	if isUniqueViolation(err, pairConstraint) {
		return nil, chapters.ErrDuplicateAssignment
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	return a, nil
}

func (s *Store) UpdateAssignment(ctx context.Context, id string, f chapters.AssignmentFields) (*chapters.Assignment, error) {
	query := `
		WITH a AS (
			UPDATE chapter_admins
			SET role = $2, assigned_by = $3, is_active = $4, updated_at = $5
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + assignmentColumns + ` FROM a JOIN schools s ON s.id = a.school_id
	`
	a, err := scanAssignment(s.conn.Primary().QueryRowContext(ctx, query,
		id,
		string(f.Role),
		f.AssignedBy,
		f.IsActive,
		f.UpdatedAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	return a, nil
}

func (s *Store) ListActiveAssignmentsBySchool(ctx context.Context, schoolID string) ([]*chapters.Assignment, error) {
	return s.listAssignments(ctx, `AND a.school_id = $1`, schoolID)
}

func (s *Store) ListActiveAssignmentsByUser(ctx context.Context, userID string) ([]*chapters.Assignment, error) {
	return s.listAssignments(ctx, `AND a.user_id = $1`, userID)
}

func (s *Store) ListActiveAssignments(ctx context.Context) ([]*chapters.Assignment, error) {
	return s.listAssignments(ctx, "")
}

func (s *Store) listAssignments(ctx context.Context, filter string, args ...interface{}) ([]*chapters.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM chapter_admins a JOIN schools s ON s.id = a.school_id
		WHERE a.is_active ` + filter + `
		ORDER BY a.created_at, a.id`

	rows, err := s.reader(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	out := make([]*chapters.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSchool(row scanner) (*chapters.School, error) {
	var school chapters.School
	err := row.Scan(
		&school.ID,
		&school.Name,
		&school.Description,
		&school.Location,
		&school.IsActive,
		&school.VolunteerHours,
		&school.ActiveMembers,
		&school.CreatedAt,
		&school.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &school, nil
}

func scanAssignment(row scanner) (*chapters.Assignment, error) {
	var (
		a    chapters.Assignment
		ref  chapters.SchoolRef
		role string
	)
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.SchoolID,
		&role,
		&a.AssignedBy,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
		&ref.ID,
		&ref.Name,
		&ref.Description,
		&ref.Location,
		&ref.IsActive,
	)
	if err != nil {
		return nil, err
	}
	a.Role = chapters.Role(role)
	a.School = &ref
	return &a, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

var _ chapters.Store = (*Store)(nil)
