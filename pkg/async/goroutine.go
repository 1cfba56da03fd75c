package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/platinummonkey/chapteradmin/pkg/observability"
)

// Group runs fire-and-forget tasks with:
// - Panic recovery
// - Timeout enforcement
// - Error logging
// - Detachment from the caller's cancellation
//
// and lets shutdown (or a test) wait for in-flight tasks.
//
// Example:
//
//	group.Go(r.Context(), 5*time.Second, "audit write", func(ctx context.Context) error {
//	    return auditLogger.Log(ctx, event)
//	})
type Group struct {
	logger *observability.Logger
	wg     sync.WaitGroup
}

// NewGroup creates a task group logging failures to logger
func NewGroup(logger *observability.Logger) *Group {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Group{logger: logger}
}

// Go runs fn in a goroutine. Values carried by parentCtx stay visible to fn,
// but its cancellation does not: the task outlives the request that started it.
func (g *Group) Go(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				g.logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				}).Error("PANIC recovered in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			g.logger.WithField("task", taskName).WithError(err).Warn("Background task failed")
		}
	}()
}

// Wait blocks until every started task has returned or ctx is done
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}

// SafeGo runs fn in an untracked goroutine with panic recovery and a timeout.
// Prefer a Group when shutdown must wait for the task.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	NewGroup(observability.FromContext(parentCtx, nil)).Go(parentCtx, timeout, taskName, fn)
}
