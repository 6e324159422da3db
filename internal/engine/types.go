package engine

import (
	"log/slog"
	"net/http"

	"github.com/ppiankov/refcheck/internal/backend"
	"github.com/ppiankov/refcheck/internal/cache"
	"github.com/ppiankov/refcheck/internal/config"
	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/netpolicy"
	"github.com/ppiankov/refcheck/internal/progress"
	"github.com/ppiankov/refcheck/internal/ratelimit"
)

// runtime bundles every resource the coordinator and drainer pools
// share for the duration of one Run call: the shared HTTP client,
// cache layer, and rate limiter registry.
type runtime struct {
	cfg      config.Config
	client   *http.Client
	store    cache.Store
	limiters *ratelimit.Registry
	searx    *backend.SearxNG
	doi      *backend.DOIResolver
	local    []backend.Backend
	remote   []backend.Backend
	sink     progress.Sink
	logger   *slog.Logger
	robots   *netpolicy.RobotsChecker
	total    int

	drainerChans map[string]chan *drainerJob
}

// refJob is one unit of coordinator work: a single reference pulled
// from the shared job channel.
type refJob struct {
	ref domain.Reference
}

// drainerJob is one unit of drainer work: a reference dispatched to a
// specific remote backend's queue.
type drainerJob struct {
	ref       domain.Reference
	collector *RefCollector
}
