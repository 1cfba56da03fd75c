package chapters

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/chapteradmin/pkg/async"
	"github.com/platinummonkey/chapteradmin/pkg/audit"
	"github.com/platinummonkey/chapteradmin/pkg/observability"
)

// Deps are the collaborators the engine is built from
type Deps struct {
	Identity IdentityProvider
	Store    Store
	Cache    Cache // optional; NopCache when nil

	Logger  *observability.Logger
	Metrics *observability.Metrics // optional
	Audit   audit.Logger           // optional
	Tasks   *async.Group           // runs audit writes; created when nil
}

// Options tune timeouts, retries and cache lifetimes
type Options struct {
	CallTimeout   time.Duration
	CacheTimeout  time.Duration
	AuditTimeout  time.Duration
	AssignRetries int

	SchoolAdminsTTL time.Duration
	UserSchoolsTTL  time.Duration
	AllSchoolsTTL   time.Duration

	Now   func() time.Time
	NewID func() string
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		CallTimeout:     5 * time.Second,
		CacheTimeout:    500 * time.Millisecond,
		AuditTimeout:    5 * time.Second,
		AssignRetries:   3,
		SchoolAdminsTTL: 5 * time.Minute,
		UserSchoolsTTL:  5 * time.Minute,
		AllSchoolsTTL:   time.Minute,
	}
}

// Engine is the chapter admin authorization and assignment engine.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	identity IdentityProvider
	store    Store
	cache    Cache
	logger   *observability.Logger
	metrics  *observability.Metrics
	audit    audit.Logger
	tasks    *async.Group
	opts     Options

	flight singleflight.Group
}

// New wires an Engine. Identity and Store are required.
func New(deps Deps, opts Options) *Engine {
	if deps.Identity == nil || deps.Store == nil {
		panic("chapters: New requires Identity and Store")
	}

	def := DefaultOptions()
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = def.CallTimeout
	}
	if opts.CacheTimeout <= 0 {
		opts.CacheTimeout = def.CacheTimeout
	}
	if opts.AuditTimeout <= 0 {
		opts.AuditTimeout = def.AuditTimeout
	}
	if opts.AssignRetries <= 0 {
		opts.AssignRetries = def.AssignRetries
	}
	if opts.SchoolAdminsTTL <= 0 {
		opts.SchoolAdminsTTL = def.SchoolAdminsTTL
	}
	if opts.UserSchoolsTTL <= 0 {
		opts.UserSchoolsTTL = def.UserSchoolsTTL
	}
	if opts.AllSchoolsTTL <= 0 {
		opts.AllSchoolsTTL = def.AllSchoolsTTL
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	e := &Engine{
		identity: deps.Identity,
		store:    deps.Store,
		cache:    deps.Cache,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		audit:    deps.Audit,
		tasks:    deps.Tasks,
		opts:     opts,
	}
	if e.cache == nil {
		e.cache = NopCache{}
	}
	if e.logger == nil {
		e.logger = observability.NopLogger()
	}
	if e.audit == nil {
		e.audit = audit.NoOpLogger{}
	}
	if e.tasks == nil {
		e.tasks = async.NewGroup(e.logger)
	}
	return e
}

// Wait blocks until pending background audit writes finish or ctx is done
func (e *Engine) Wait(ctx context.Context) error {
	return e.tasks.Wait(ctx)
}

// call bounds a store or identity provider call
func (e *Engine) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.opts.CallTimeout)
}

func (e *Engine) log(ctx context.Context) *observability.Logger {
	return observability.WithTraceContext(ctx, observability.FromContext(ctx, e.logger))
}

func (e *Engine) isGlobalAdmin(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := e.call(ctx)
	defer cancel()
	ok, err := e.identity.IsGlobalAdmin(ctx, userID)
	if err != nil {
		return false, dependency("identity: is global admin", err)
	}
	return ok, nil
}
