package chapters_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/chapteradmin/pkg/audit"
	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/storage/memory"
)

const sysadmin = "sysadmin"

var errUnavailable = errors.New("service unavailable")

// fakeIdentity reports the configured users as global admins
type fakeIdentity struct {
	mu     sync.Mutex
	admins map[string]bool
	err    error
	calls  atomic.Int32
}

func newFakeIdentity(admins ...string) *fakeIdentity {
	f := &fakeIdentity{admins: make(map[string]bool)}
	for _, a := range admins {
		f.admins[a] = true
	}
	return f
}

func (f *fakeIdentity) IsGlobalAdmin(_ context.Context, userID string) (bool, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.admins[userID], nil
}

// mapCache is a working in-process cache that records deletes
type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func (c *mapCache) deletes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}

// brokenCache fails every call
type brokenCache struct{ calls atomic.Int32 }

func (b *brokenCache) Get(context.Context, string) ([]byte, error) {
	b.calls.Add(1)
	return nil, errUnavailable
}

func (b *brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	b.calls.Add(1)
	return errUnavailable
}

func (b *brokenCache) Delete(context.Context, ...string) error {
	b.calls.Add(1)
	return errUnavailable
}

// flakyStore wraps the memory store with failure injection and call counting
type flakyStore struct {
	*memory.Store
	failUpdate  error
	failCreate  error
	failLists   error
	listCalls    atomic.Int32
	primaryReads atomic.Int32
	createCalls  atomic.Int32
}

func (f *flakyStore) CreateAssignment(ctx context.Context, n chapters.NewAssignment) (*chapters.Assignment, error) {
	f.createCalls.Add(1)
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	return f.Store.CreateAssignment(ctx, n)
}

func (f *flakyStore) UpdateAssignment(ctx context.Context, id string, fields chapters.AssignmentFields) (*chapters.Assignment, error) {
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}
	return f.Store.UpdateAssignment(ctx, id, fields)
}

func (f *flakyStore) ListActiveAssignmentsBySchool(ctx context.Context, schoolID string) ([]*chapters.Assignment, error) {
	f.listCalls.Add(1)
	if chapters.IsPrimaryRead(ctx) {
		f.primaryReads.Add(1)
	}
	if f.failLists != nil {
		return nil, f.failLists
	}
	return f.Store.ListActiveAssignmentsBySchool(ctx, schoolID)
}

// recordingAudit keeps every event it receives
type recordingAudit struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (r *recordingAudit) Log(_ context.Context, e *audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAudit) types() []audit.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

type fixture struct {
	engine   *chapters.Engine
	store    *flakyStore
	identity *fakeIdentity
	cache    chapters.Cache
	audit    *recordingAudit
	clock    *clock
}

// clock advances one second on every read so createdAt ordering is stable
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// newFixture seeds active school S1 and inactive school S2
func newFixture(t *testing.T, cache chapters.Cache) *fixture {
	t.Helper()

	store := &flakyStore{Store: memory.New()}
	store.PutSchool(&chapters.School{ID: "S1", Name: "Central High", Location: "Kampala", IsActive: true})
	store.PutSchool(&chapters.School{ID: "S2", Name: "Closed Academy", IsActive: false})
	store.PutSchool(&chapters.School{ID: "S3", Name: "Alpha School", IsActive: true})

	f := &fixture{
		store:    store,
		identity: newFakeIdentity(sysadmin),
		cache:    cache,
		audit:    &recordingAudit{},
		clock:    &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	opts := chapters.DefaultOptions()
	opts.Now = f.clock.Now
	f.engine = chapters.New(chapters.Deps{
		Identity: f.identity,
		Store:    store,
		Cache:    cache,
		Audit:    f.audit,
	}, opts)
	t.Cleanup(func() { _ = f.engine.Wait(context.Background()) })
	return f
}

func (f *fixture) assign(t *testing.T, schoolID, userID string, role chapters.Role) *chapters.Assignment {
	t.Helper()
	a, err := f.engine.Assign(context.Background(), chapters.AssignRequest{
		SchoolID:     schoolID,
		TargetUserID: userID,
		Role:         role,
		AssignedBy:   sysadmin,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) role(t *testing.T, userID, schoolID string) chapters.Role {
	t.Helper()
	role, err := f.engine.ResolveRole(context.Background(), userID, schoolID)
	require.NoError(t, err)
	return role
}
