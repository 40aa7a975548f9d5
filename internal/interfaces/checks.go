package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Credential store
var _ auth.UserStore = (*users.Repository)(nil)

// Catalog store
var _ catalog.Store = (*books.Repository)(nil)
var _ scheduler.BookLister = (*books.Repository)(nil)

// Health checks
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Cover Downloads
// =============================================================================

// CoverScheduler implementations
var _ catalog.CoverScheduler = (*covers.AsyncScheduler)(nil)
var _ catalog.CoverScheduler = (*tasks.CoverScheduler)(nil)

// CoverFetcher implementations
var _ scheduler.CoverFetcher = (*covers.Fetcher)(nil)
