// Package engine implements the validation engine's concurrency
// fabric: backend assembly, the coordinator/drainer pool, the
// per-reference collector and finalisation protocol, the retry pass,
// and cooperative shutdown.
package engine

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/ppiankov/refcheck/internal/backend"
	"github.com/ppiankov/refcheck/internal/cache"
	"github.com/ppiankov/refcheck/internal/config"
	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/netpolicy"
	"github.com/ppiankov/refcheck/internal/progress"
	"github.com/ppiankov/refcheck/internal/ratelimit"
)

// Run queries the configured backend bank for every reference in refs
// and returns an ordered ValidationResult batch, one per input
// reference.
func Run(ctx context.Context, refs []domain.Reference, cfg config.Config, sink progress.Sink) ([]domain.ValidationResult, error) {
	if sink == nil {
		sink = progress.Noop
	}
	if err := config.Validate(cfg, KnownBackendNames); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if len(refs) == 0 {
		return nil, nil
	}

	asm, err := assemble(cfg)
	if err != nil {
		return nil, err
	}
	defer asm.close()

	logger := slog.Default().With("component", "engine")

	store, closeStore, err := buildCacheStore(cfg)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		defer closeStore()
	}

	client := buildHTTPClient(cfg)
	limiters := buildLimiters(cfg, asm.remote)

	eng := &runtime{
		cfg:      cfg,
		client:   client,
		store:    store,
		limiters: limiters,
		searx:    asm.searx,
		doi:      asm.doi,
		local:    asm.local,
		remote:   asm.remote,
		sink:     sink,
		logger:   logger,
		total:    len(refs),
	}
	if cfg.SearxNGURL != "" {
		eng.robots = netpolicy.NewRobotsChecker(cfg.UserAgent, 3*time.Second)
	}

	jobs := make(chan *refJob, cfg.NumWorkers*2)
	drainerChans := make(map[string]chan *drainerJob, len(asm.remote))
	for _, b := range asm.remote {
		drainerChans[b.Name()] = make(chan *drainerJob, 8)
	}
	eng.drainerChans = drainerChans

	var wg sync.WaitGroup
	for _, b := range asm.remote {
		b := b
		wg.Add(1)
		go func() {
			defer wg.Done()
			eng.drain(ctx, b, drainerChans[b.Name()])
		}()
	}

	resultsCh := make(chan domain.ValidationResult, len(refs))
	numWorkers := cfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			eng.coordinate(ctx, id, jobs, resultsCh, len(refs))
		}(i)
	}

	// Every reference is enqueued even after cancellation: coordinators
	// keep reading jobs (drainRemaining) until the channel closes, so
	// each reference still yields exactly one result below.
	go func() {
		for _, r := range refs {
			jobs <- &refJob{ref: r}
		}
		close(jobs)
	}()

	results := make([]domain.ValidationResult, len(refs))
	for i := 0; i < len(refs); i++ {
		r := <-resultsCh
		results[r.Index] = r
	}

	// The retry pass dispatches its own jobs onto the same per-backend
	// channels the drainers above are still reading from - the channels
	// must stay open, and the drainers alive, until the retry pass has
	// finished sending.
	eng.retryPass(ctx, refs, results)

	for _, ch := range drainerChans {
		close(ch)
	}
	wg.Wait()

	return results, nil
}

// buildHTTPClient constructs the single shared HTTP client every
// backend and the SearxNG fallback issue requests through for the
// lifetime of one Run call: a custom Transport with bounded redirects
// and configurable proxying.
func buildHTTPClient(cfg config.Config) *http.Client {
	transport := &http.Transport{
		Proxy:               netpolicy.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		},
	}
}

// buildCacheStore opens the layered query cache: a memory layer plus
// an optional persistent layer selected by Config.CachePath's shape —
// a single bbolt file when it has an extension, a directory of blobs
// otherwise.
func buildCacheStore(cfg config.Config) (cache.Store, func(), error) {
	if cfg.CachePath == "" {
		return cache.NewLayeredCache(cfg.PositiveTTL(), cfg.NegativeTTL(), nil), nil, nil
	}

	var persistent cache.Store
	var closeFn func()
	if filepath.Ext(cfg.CachePath) != "" {
		bolt, err := cache.OpenBoltCache(cfg.CachePath, cfg.PositiveTTL(), cfg.NegativeTTL())
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		persistent = bolt
		closeFn = func() { _ = bolt.Close() }
	} else {
		persistent = cache.NewDiskCache(cfg.CachePath, cfg.PositiveTTL(), cfg.NegativeTTL())
	}
	return cache.NewLayeredCache(cfg.PositiveTTL(), cfg.NegativeTTL(), persistent), closeFn, nil
}

// buildLimiters installs one adaptive rate limiter per remote backend,
// using OpenAlex/Semantic Scholar/CrossRef's keyed-tier rates when the
// corresponding credential is configured.
func buildLimiters(cfg config.Config, remote []backend.Backend) *ratelimit.Registry {
	reg := ratelimit.NewRegistry()
	for _, b := range remote {
		name := b.Name()
		rate, ok := ratelimit.DefaultBaseRates[name]
		if !ok {
			rate = 1
		}
		switch name {
		case "CrossRef":
			if cfg.CrossRefMailto != "" {
				rate = ratelimit.CrossRefMailtoRate
			}
		case "Semantic Scholar":
			if cfg.S2APIKey != "" {
				rate = ratelimit.SemanticScholarKeyedRate
			}
		}
		reg.Set(name, rate, 1)
	}
	return reg
}

func isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

