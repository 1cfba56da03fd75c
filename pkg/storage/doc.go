// Package storage selects and opens the persistence backend for chapter
// admin assignments.
//
// Three backends implement chapters.Store:
//
//   - memory: maps guarded by a mutex; for development and tests
//   - sqlite: mattn/go-sqlite3 on a single connection; for single-node installs
//   - postgres: lib/pq with a primary and optional read replicas
//
// All enforce one assignment row per (user, school). The SQL backends use
// a UNIQUE constraint; a losing concurrent insert surfaces as
// chapters.ErrDuplicateAssignment.
//
//	backend, err := storage.Open(ctx, storage.Config{
//		Type:        storage.TypePostgres,
//		PostgresURL: "postgres://localhost/chapters?sslmode=disable",
//		AutoMigrate: true,
//	}, logger)
package storage
