package chapters

import (
	"context"
	"time"
)

// IdentityProvider answers whether a user is a global (system) administrator
type IdentityProvider interface {
	IsGlobalAdmin(ctx context.Context, userID string) (bool, error)
}

// Store is the persistence layer for schools and chapter admin assignments.
// Lookups return (nil, nil) when the row does not exist.
type Store interface {
	CreateSchool(ctx context.Context, school *School) error
	GetSchool(ctx context.Context, id string) (*School, error)
	ListActiveSchools(ctx context.Context) ([]*School, error)
	UpdateSchoolStats(ctx context.Context, schoolID string, update StatsUpdate) (*School, error)

	GetAssignment(ctx context.Context, id string) (*Assignment, error)
	FindAssignment(ctx context.Context, userID, schoolID string) (*Assignment, error)
	HasActiveAssignment(ctx context.Context, userID, schoolID string, role Role) (bool, error)

	// CreateAssignment inserts a new active row. It must return
	// ErrDuplicateAssignment if a row for the pair already exists.
	CreateAssignment(ctx context.Context, a NewAssignment) (*Assignment, error)
	UpdateAssignment(ctx context.Context, id string, fields AssignmentFields) (*Assignment, error)

	// List methods return active rows with the School projection populated
	ListActiveAssignmentsBySchool(ctx context.Context, schoolID string) ([]*Assignment, error)
	ListActiveAssignmentsByUser(ctx context.Context, userID string) ([]*Assignment, error)
	ListActiveAssignments(ctx context.Context) ([]*Assignment, error)
}

type primaryReadKey struct{}

// WithPrimaryRead marks ctx as a read whose result is cached until the next
// write invalidates it. Stores with lagging read replicas must serve it from
// the primary.
func WithPrimaryRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, primaryReadKey{}, true)
}

// IsPrimaryRead reports whether ctx was marked by WithPrimaryRead
func IsPrimaryRead(ctx context.Context) bool {
	v, _ := ctx.Value(primaryReadKey{}).(bool)
	return v
}

// Cache is a best-effort key/value store with TTL.
// Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// NopCache never stores anything; every read is a miss
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, error) { return nil, nil }
func (NopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NopCache) Delete(context.Context, ...string) error { return nil }
func (NopCache) discardsWrites() {}
