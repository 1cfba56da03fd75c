package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/chapteradmin/pkg/audit"
	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/observability"
)

// Job names registered by the server
const (
	JobAuditRetention = "audit-retention"
	JobCacheWarm      = "cache-warm"
)

// AuditStore is the part of audit.DBLogger that retention needs
type AuditStore interface {
	List(ctx context.Context, filter audit.Filter) ([]*audit.Event, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// AuditRetention deletes audit events older than retention. When archiver is
// set the expiring events are uploaded first, and a failed upload leaves the
// table untouched.
func AuditRetention(store AuditStore, archiver audit.Archiver, retention time.Duration, now func() time.Time, logger *observability.Logger) Job {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(ctx context.Context) error {
		cutoff := now().UTC().Add(-retention)

		if archiver != nil {
			events, err := store.List(ctx, audit.Filter{Before: &cutoff})
			if err != nil {
				return fmt.Errorf("list expiring audit events: %w", err)
			}
			if len(events) > 0 {
				key, err := archiver.Archive(ctx, cutoff, events)
				if err != nil {
					return fmt.Errorf("archive audit events: %w", err)
				}
				logger.WithFields(map[string]interface{}{
					"events": len(events),
					"key":    key,
				}).Info("audit events archived")
			}
		}

		purged, err := store.Purge(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("purge audit events: %w", err)
		}
		if purged > 0 {
			logger.WithFields(map[string]interface{}{
				"purged": purged,
				"before": cutoff.Format(time.RFC3339),
			}).Info("audit events purged")
		}
		return nil
	}
}

// Warmer reloads the system-admin aggregate view into the cache
type Warmer interface {
	ListAllSchoolsWithAdmins(ctx context.Context) ([]*chapters.SchoolWithAdmins, error)
}

// CacheWarm repopulates the aggregate view so the first system admin
// request after expiry does not pay for the join
func CacheWarm(w Warmer) Job {
	return func(ctx context.Context) error {
		if _, err := w.ListAllSchoolsWithAdmins(ctx); err != nil {
			return fmt.Errorf("warm schools with admins: %w", err)
		}
		return nil
	}
}
