// Package sqlite is a single-node chapters.Store on SQLite, for development
// and small deployments. Like the PostgreSQL store it relies on a UNIQUE
// (user_id, school_id) constraint to reject a second row for a pair.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
)

// Schema creates the tables if they are missing
const Schema = `
CREATE TABLE IF NOT EXISTS schools (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT 1,
	volunteer_hours INTEGER NOT NULL DEFAULT 0,
	active_members INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS chapter_admins (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	school_id TEXT NOT NULL REFERENCES schools(id),
	role TEXT NOT NULL CHECK (role IN ('CHAPTER_SUPER_ADMIN', 'CHAPTER_ADMIN')),
	assigned_by TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (user_id, school_id)
);

CREATE INDEX IF NOT EXISTS idx_chapter_admins_school_active ON chapter_admins(school_id) WHERE is_active;
CREATE INDEX IF NOT EXISTS idx_chapter_admins_user_active ON chapter_admins(user_id) WHERE is_active;
`

const (
	assignmentColumns = `a.id, a.user_id, a.school_id, a.role, a.assigned_by, a.is_active, a.created_at, a.updated_at,
		s.id, s.name, s.description, s.location, s.is_active`
	schoolColumns = `id, name, description, location, is_active, volunteer_hours, active_members, created_at, updated_at`
)

const assignmentJoin = ` FROM chapter_admins a JOIN schools s ON s.id = a.school_id `

// Store implements chapters.Store on SQLite
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies Schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dsn = path + sep + "_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection: SQLite has a single writer, and every connection to
	// ":memory:" would otherwise see its own empty database
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and applies Schema
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying pool
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) CreateSchool(ctx context.Context, school *chapters.School) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schools (`+schoolColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		school.ID, school.Name, school.Description, school.Location, school.IsActive,
		school.VolunteerHours, school.ActiveMembers, school.CreatedAt, school.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("school %s already exists", school.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create school: %w", err)
	}
	return nil
}

func (s *Store) GetSchool(ctx context.Context, id string) (*chapters.School, error) {
	school, err := scanSchool(s.db.QueryRowContext(ctx, `SELECT `+schoolColumns+` FROM schools WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get school: %w", err)
	}
	return school, nil
}

func (s *Store) ListActiveSchools(ctx context.Context) ([]*chapters.School, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+schoolColumns+` FROM schools WHERE is_active ORDER BY name, id`)
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
	res, err := s.db.ExecContext(ctx, `
		UPDATE schools
		SET volunteer_hours = COALESCE(?, volunteer_hours),
		    active_members = COALESCE(?, active_members),
		    updated_at = ?
		WHERE id = ?`,
		nullInt64(update.VolunteerHours), nullInt64(update.ActiveMembers), update.UpdatedAt, schoolID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update school stats: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetSchool(ctx, schoolID)
}

func (s *Store) GetAssignment(ctx context.Context, id string) (*chapters.Assignment, error) {
	return s.getAssignment(ctx, `WHERE a.id = ?`, id)
}

func (s *Store) FindAssignment(ctx context.Context, userID, schoolID string) (*chapters.Assignment, error) {
	return s.getAssignment(ctx, `WHERE a.user_id = ? AND a.school_id = ?`, userID, schoolID)
}

func (s *Store) getAssignment(ctx context.Context, where string, args ...interface{}) (*chapters.Assignment, error) {
	a, err := scanAssignment(s.db.QueryRowContext(ctx, `SELECT `+assignmentColumns+assignmentJoin+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

func (s *Store) HasActiveAssignment(ctx context.Context, userID, schoolID string, role chapters.Role) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chapter_admins
			WHERE user_id = ? AND school_id = ? AND role = ? AND is_active
		)`, userID, schoolID, string(role)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}
	return exists, nil
}

func (s *Store) CreateAssignment(ctx context.Context, n chapters.NewAssignment) (*chapters.Assignment, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chapter_admins (id, user_id, school_id, role, assigned_by, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		n.ID, n.UserID, n.SchoolID, string(n.Role), n.AssignedBy, n.CreatedAt, n.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, chapters.ErrDuplicateAssignment
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	return s.GetAssignment(ctx, n.ID)
}

func (s *Store) UpdateAssignment(ctx context.Context, id string, f chapters.AssignmentFields) (*chapters.Assignment, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chapter_admins
		SET role = ?, assigned_by = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		string(f.Role), f.AssignedBy, f.IsActive, f.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetAssignment(ctx, id)
}

func (s *Store) ListActiveAssignmentsBySchool(ctx context.Context, schoolID string) ([]*chapters.Assignment, error) {
	return s.listAssignments(ctx, `AND a.school_id = ?`, schoolID)
}

func (s *Store) ListActiveAssignmentsByUser(ctx context.Context, userID string) ([]*chapters.Assignment, error) {
	return s.listAssignments(ctx, `AND a.user_id = ?`, userID)
}

func (s *Store) ListActiveAssignments(ctx context.Context) ([]*chapters.Assignment, error) {
	return s.listAssignments(ctx, "")
}

func (s *Store) listAssignments(ctx context.Context, filter string, args ...interface{}) ([]*chapters.Assignment, error) {
	query := `SELECT ` + assignmentColumns + assignmentJoin + `WHERE a.is_active ` + filter + ` ORDER BY a.created_at, a.id`
	rows, err := s.db.QueryContext(ctx, query, args...)
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
		&school.ID, &school.Name, &school.Description, &school.Location, &school.IsActive,
		&school.VolunteerHours, &school.ActiveMembers, &school.CreatedAt, &school.UpdatedAt,
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
		&a.ID, &a.UserID, &a.SchoolID, &role, &a.AssignedBy, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
		&ref.ID, &ref.Name, &ref.Description, &ref.Location, &ref.IsActive,
	)
	if err != nil {
		return nil, err
	}
	a.Role = chapters.Role(role)
	a.School = &ref
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

var _ chapters.Store = (*Store)(nil)
