package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ppiankov/refcheck/internal/authors"
	"github.com/ppiankov/refcheck/internal/backend"
	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/normalize"
	"github.com/ppiankov/refcheck/internal/progress"
)

// drainerRetryBackoffBase is the starting backoff for a single drainer
// job's own in-flight rate-limit retry loop, independent of the
// engine-wide, post-batch retry pass. It doubles with each attempt.
const drainerRetryBackoffBase = 500 * time.Millisecond

// drain is the sole consumer of backend b's queue and its rate-limit
// slot for the lifetime of one Run call.
func (e *runtime) drain(ctx context.Context, b backend.Backend, jobs <-chan *drainerJob) {
	limiter := e.limiters.Get(b.Name())
	if limiter == nil {
		limiter = e.limiters.Set(b.Name(), 1, 1)
	}

	for job := range jobs {
		e.drainOne(ctx, b, limiter, job)
	}
}

func (e *runtime) drainOne(ctx context.Context, b backend.Backend, limiter interface {
	Wait(context.Context) error
	Throttled() int
	Succeeded()
}, job *drainerJob) {
	collector := job.collector
	ref := job.ref

	if isCancelled(ctx) {
		collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusSkipped})
		e.finishDrainerJob(ctx, collector)
		return
	}

	if collector.Verified() {
		// Early exit already fired. Still check the cache (not an
		// HTTP call) so a concurrently-populated entry for this
		// backend/title isn't lost to a future run. A miss here still
		// records Skipped.
		normTitle := normalize.Title(ref.Title)
		if entry, hit := e.store.Lookup(b.Name(), normTitle); hit && normTitle != "" {
			e.applyCachedEntry(collector, b.Name(), entry)
		} else {
			collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusSkipped})
		}
		e.finishDrainerJob(ctx, collector)
		return
	}

	if b.RequiresDOI() && !ref.HasDOI() {
		collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusSkipped})
		e.finishDrainerJob(ctx, collector)
		return
	}

	retries := e.cfg.MaxRateLimitRetries
	if retries < 0 {
		retries = 0
	}

	var outcome domain.BackendQueryOutcome
	var err error
	var elapsed int64

	for attempt := 0; ; attempt++ {
		if waitErr := limiter.Wait(ctx); waitErr != nil {
			collector.AddFailedDB(b.Name())
			collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusError})
			e.finishDrainerJob(ctx, collector)
			return
		}

		start := time.Now()
		outcome, err = b.QueryByTitle(ctx, ref.Title, e.client, e.cfg.DBTimeout())
		elapsed = time.Since(start).Milliseconds()

		var rl *domain.RateLimitedError
		if errors.As(err, &rl) {
			limiter.Throttled()
			if attempt < retries {
				progress.RateLimitWait(e.sink, b.Name(), drainerRetryBackoffBase<<attempt)
				select {
				case <-time.After(drainerRetryBackoffBase << attempt):
				case <-ctx.Done():
				}
				continue
			}
			collector.AddFailedDB(b.Name())
			collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusRateLimited, ElapsedMS: elapsed})
			e.finishDrainerJob(ctx, collector)
			return
		}
		break
	}

	if err != nil {
		progress.DatabaseQueryComplete(e.sink, ref.Index, b.Name(), statusForErr(err), elapsed)
		var to *domain.TimeoutError
		status := domain.DBStatusError
		if errors.As(err, &to) {
			status = domain.DBStatusTimeout
		}
		collector.AddFailedDB(b.Name())
		collector.AddResult(domain.DbResult{Backend: b.Name(), Status: status, ElapsedMS: elapsed})
		e.finishDrainerJob(ctx, collector)
		return
	}

	limiter.Succeeded()

	if !outcome.Found() {
		progress.DatabaseQueryComplete(e.sink, ref.Index, b.Name(), domain.DBStatusNoMatch, elapsed)
		collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusNoMatch, ElapsedMS: elapsed})
		e.cacheOutcome(b.Name(), ref.Title, outcome, false)
		e.finishDrainerJob(ctx, collector)
		return
	}

	verdict := authors.Validate(ref.Authors, outcome.Authors)
	score := normalize.Similarity(normalize.Title(ref.Title), normalize.Title(outcome.FoundTitle))
	resolved := authors.ResolveUnknown(verdict, score, e.cfg.NearExactTitleThreshold)
	e.cacheOutcome(b.Name(), ref.Title, outcome, true)
	collector.RecordRetraction(outcome.Retraction)

	if resolved == authors.Mismatch {
		progress.DatabaseQueryComplete(e.sink, ref.Index, b.Name(), domain.DBStatusAuthorMismatch, elapsed)
		collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusAuthorMismatch, ElapsedMS: elapsed, Authors: outcome.Authors, PaperURL: outcome.PaperURL})
		collector.RecordMismatch(b.Name(), outcome.Authors)
		e.finishDrainerJob(ctx, collector)
		return
	}

	progress.DatabaseQueryComplete(e.sink, ref.Index, b.Name(), domain.DBStatusMatch, elapsed)
	collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusMatch, ElapsedMS: elapsed, Authors: outcome.Authors, PaperURL: outcome.PaperURL})
	collector.TrySetVerified(b.Name(), outcome.Authors, outcome.PaperURL)
	e.finishDrainerJob(ctx, collector)
}

// finishDrainerJob decrements the collector's outstanding count and
// triggers finalisation the instant it reaches zero.
func (e *runtime) finishDrainerJob(ctx context.Context, collector *RefCollector) {
	if collector.Decrement() == 0 {
		result := e.finalize(ctx, collector, e.total)
		collector.send(result)
	}
}

func statusForErr(err error) domain.DBStatus {
	if err == nil {
		return domain.DBStatusMatch
	}
	var rl *domain.RateLimitedError
	if errors.As(err, &rl) {
		return domain.DBStatusRateLimited
	}
	var to *domain.TimeoutError
	if errors.As(err, &to) {
		return domain.DBStatusTimeout
	}
	return domain.DBStatusError
}
