// Package async provides safe fire-and-forget execution for background tasks.
//
// Tasks recover panics, run under a timeout, and log their errors instead of
// returning them. The engine uses a Group for audit writes so that a slow or
// failing audit sink never fails the request that produced the event, while
// shutdown can still drain pending writes:
//
//	group := async.NewGroup(logger)
//	group.Go(ctx, 5*time.Second, "audit write", write)
//	_ = group.Wait(shutdownCtx)
package async
