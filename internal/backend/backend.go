// Package backend implements the capability interface every academic
// database adapter satisfies, plus the concrete adapters themselves.
package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
)

// Backend is the uniform contract every academic-database adapter
// implements.
type Backend interface {
	// Name is both the human-readable and the cache-namespace
	// identifier for this backend.
	Name() string

	// IsLocal reports whether this backend is executed inline by the
	// coordinator rather than dispatched to a drainer.
	IsLocal() bool

	// RequiresDOI reports whether title-query should be skipped when
	// the reference lacks a DOI.
	RequiresDOI() bool

	// QueryByTitle looks up a reference by title.
	QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error)

	// QueryByDOI looks up a reference by identifier. The default
	// implementation (Base) returns (nil, nil) — no DOI-query support.
	QueryByDOI(ctx context.Context, doi, title string, refAuthors []string, client *http.Client, timeout time.Duration) (*domain.DbResult, error)
}

// Base provides the default (non-local, no DOI-requirement, no
// DOI-query support) capability flags. Concrete backends embed it and
// override only what differs.
type Base struct{}

func (Base) IsLocal() bool    { return false }
func (Base) RequiresDOI() bool { return false }

func (Base) QueryByDOI(ctx context.Context, doi, title string, refAuthors []string, client *http.Client, timeout time.Duration) (*domain.DbResult, error) {
	return nil, nil
}
