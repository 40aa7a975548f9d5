// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - auth.UserStore: administrator credentials (internal/database/users)
//   - catalog.Store: books and their notes (internal/database/books)
//   - scheduler.BookLister: id-ordered catalog listing for the cover sweep
//
// ## Cover Downloads
//
//   - catalog.CoverScheduler: fire-and-forget cover downloads, backed either by
//     in-process goroutines (covers.AsyncScheduler) or by the durable task
//     queue (tasks.CoverScheduler)
//   - scheduler.CoverFetcher: synchronous fetch-if-absent used by the sweep
//
// ## Health
//
//   - http.Pinger: connectivity check behind GET /health
//
// Compile-time checks that the concrete types satisfy these interfaces live
// in checks.go.
package interfaces
