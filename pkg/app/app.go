// Package app assembles the chapters engine and its backing services from
// configuration. Both chapterd and chapterctl start from Open.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/chapteradmin/pkg/async"
	"github.com/platinummonkey/chapteradmin/pkg/audit"
	"github.com/platinummonkey/chapteradmin/pkg/cache"
	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/config"
	"github.com/platinummonkey/chapteradmin/pkg/identity"
	"github.com/platinummonkey/chapteradmin/pkg/maintenance"
	"github.com/platinummonkey/chapteradmin/pkg/observability"
	"github.com/platinummonkey/chapteradmin/pkg/storage"
	"github.com/platinummonkey/chapteradmin/pkg/storage/postgres"
)

// App is a wired engine plus everything that must be closed with it
type App struct {
	Config   *config.Config
	Store    storage.Backend
	Cache    cache.Backend
	Identity chapters.IdentityProvider
	Engine   *chapters.Engine

	// AuditDB is set when database audit is enabled
	AuditDB  *audit.DBLogger
	Archiver audit.Archiver
	Jobs     *maintenance.Scheduler

	logger  *observability.Logger
	closers []func() error
}

// Open connects storage and cache, builds the identity provider and audit
// trail, and registers maintenance jobs. The scheduler is not started.
func Open(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) (*App, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	a := &App{Config: cfg, logger: logger}

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	c, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		_ = a.closeAll()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	a.Cache = c
	a.closers = append(a.closers, c.Close)

	if a.Identity, err = a.identityProvider(cfg.Identity); err != nil {
		_ = a.closeAll()
		return nil, err
	}

	auditLog, err := a.auditLogger(ctx, cfg.Audit)
	if err != nil {
		_ = a.closeAll()
		return nil, err
	}

	a.Engine = chapters.New(chapters.Deps{
		Identity: a.Identity,
		Store:    store,
		Cache:    c,
		Logger:   logger,
		Metrics:  metrics,
		Audit:    auditLog,
		Tasks:    async.NewGroup(logger),
	}, cfg.Engine.Options())

	if err := a.registerJobs(); err != nil {
		_ = a.closeAll()
		return nil, err
	}
	return a, nil
}

// identityProvider combines the static allowlist, the watched admin file and
// token claims, in that order
func (a *App) identityProvider(cfg config.IdentityConfig) (chapters.IdentityProvider, error) {
	providers := []chapters.IdentityProvider{identity.NewStatic(cfg.SystemAdmins...)}

	if cfg.AdminsFile != "" {
		fp, err := identity.NewFileProvider(cfg.AdminsFile, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load admins file: %w", err)
		}
		a.closers = append(a.closers, fp.Close)
		providers = append(providers, fp)
	}
	if cfg.TrustTokenClaims {
		providers = append(providers, identity.Claims{})
	}
	return identity.Any(providers...), nil
}

// auditLogger always logs events through slog, and also to the database and
// S3 archive when configured
func (a *App) auditLogger(ctx context.Context, cfg config.AuditConfig) (audit.Logger, error) {
	loggers := []audit.Logger{audit.NewSlogLogger(a.logger.WithField("component", "audit"))}

	if cfg.Database {
		pg, ok := a.Store.(*postgres.Store)
		if !ok {
			return nil, errors.New("database audit requires postgres storage")
		}
		dbLogger, err := audit.NewDBLogger(ctx, pg.DB())
		if err != nil {
			return nil, fmt.Errorf("failed to initialise audit table: %w", err)
		}
		a.AuditDB = dbLogger
		loggers = append(loggers, dbLogger)
	}

	if cfg.Archive.Bucket != "" {
		archiver, err := audit.NewS3Archiver(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("failed to configure audit archive: %w", err)
		}
		a.Archiver = archiver
	}

	return audit.NewMultiLogger(loggers...), nil
}

func (a *App) registerJobs() error {
	m := a.Config.Maintenance
	a.Jobs = maintenance.New(a.logger.WithField("component", "maintenance"), m.JobTimeout)

	if err := a.Jobs.Add(maintenance.JobCacheWarm, m.CacheWarmSchedule, maintenance.CacheWarm(a.Engine)); err != nil {
		return err
	}
	if a.AuditDB != nil && a.Config.Audit.Retention > 0 {
		job := maintenance.AuditRetention(a.AuditDB, a.Archiver, a.Config.Audit.Retention, nil, a.logger)
		if err := a.Jobs.Add(maintenance.JobAuditRetention, m.AuditSchedule, job); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for pending audit writes, stops the scheduler and releases
// every connection
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Engine != nil {
		if err := a.Engine.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Jobs != nil {
		if err := a.Jobs.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// closeAll runs closers in reverse order of acquisition
func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
