// Package chapters is the chapter admin authorization and assignment engine.
//
// It decides, per (user, school) pair, what a caller may do and manages the
// lifecycle of chapter admin assignments.
//
// # Roles
//
// SYSTEM_ADMIN comes from the identity provider and applies to every school.
// CHAPTER_SUPER_ADMIN and CHAPTER_ADMIN are stored per school on an
// Assignment; everyone else is USER. The hierarchy between roles lives only in
// the permission matrix (permissions.go).
//
// # Assignments
//
// At most one Assignment row exists per (user, school). Assign creates it or
// updates it in place (reactivating and/or changing its role); Remove only
// clears IsActive. Concurrent first assignments are resolved by the store's
// uniqueness constraint: the loser gets ErrDuplicateAssignment and retries as
// an update.
//
// # Reads
//
// List reads go through the cache and fall back to the store on a miss or on
// any cache failure. Lifecycle writes invalidate the affected keys after the
// store write succeeds.
//
// # Usage
//
//	engine := chapters.New(chapters.Deps{
//		Identity: provider,
//		Store:    store,
//		Cache:    cache,
//		Logger:   logger,
//	}, chapters.DefaultOptions())
//
//	if err := engine.CheckAssignRole(ctx, callerID, chapters.RoleChapterAdmin, schoolID); err != nil {
//		return err
//	}
//	a, err := engine.Assign(ctx, chapters.AssignRequest{
//		SchoolID:     schoolID,
//		TargetUserID: userID,
//		Role:         chapters.RoleChapterAdmin,
//		AssignedBy:   callerID,
//	})
package chapters
