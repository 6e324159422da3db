package engine

import (
	"context"
	"time"

	"github.com/ppiankov/refcheck/internal/authors"
	"github.com/ppiankov/refcheck/internal/backend"
	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/normalize"
	"github.com/ppiankov/refcheck/internal/progress"
)

// coordinate runs one coordinator task: pull RefJobs from jobs until
// the channel closes, dispatching each reference in turn.
func (e *runtime) coordinate(ctx context.Context, id int, jobs <-chan *refJob, resultsCh chan<- domain.ValidationResult, total int) {
	for {
		if isCancelled(ctx) {
			e.drainRemaining(jobs, resultsCh, total)
			return
		}
		job, ok := <-jobs
		if !ok {
			return
		}
		resultsCh <- e.handleReference(ctx, job.ref, total)
	}
}

// drainRemaining empties jobs with the fast cancelled-path once the
// cancellation signal has fired, so every reference still reaches the
// output batch.
func (e *runtime) drainRemaining(jobs <-chan *refJob, resultsCh chan<- domain.ValidationResult, total int) {
	for job := range jobs {
		resultsCh <- e.cancelledResult(job.ref, total)
	}
}

func (e *runtime) cancelledResult(ref domain.Reference, total int) domain.ValidationResult {
	result := domain.ValidationResult{
		Index:      ref.Index,
		Status:     domain.StatusNotFound,
		RefAuthors: ref.Authors,
	}
	for _, b := range e.remote {
		result.DbResults = append(result.DbResults, domain.DbResult{Backend: b.Name(), Status: domain.DBStatusSkipped})
	}
	progress.Result(e.sink, ref.Index, total, result)
	return result
}

// handleReference implements the coordinator's per-reference lifecycle:
// inline local backends, inline DOI resolution, then dispatch to the
// remote backend pool.
func (e *runtime) handleReference(ctx context.Context, ref domain.Reference, total int) domain.ValidationResult {
	if ref.SkipReason != "" {
		result := domain.ValidationResult{Index: ref.Index, Status: domain.StatusNotFound, RefAuthors: ref.Authors}
		progress.Result(e.sink, ref.Index, total, result)
		return result
	}

	progress.Checking(e.sink, ref.Index, total, ref.Title)

	collector := NewRefCollector(ref, 0)

	// Local backends run inline. A verified match short-circuits the
	// rest of the reference entirely.
	for _, b := range e.local {
		if verified, result := e.runLocalBackend(ctx, b, ref, collector, total); verified {
			return result
		}
	}

	// DOI resolution is fast and authoritative; run inline.
	doiInline := ref.HasDOI() && e.doi != nil && !backendDisabled(e.remote, e.doi.Name())
	if doiInline {
		if verified, result := e.runDOI(ctx, ref, collector, total); verified {
			return result
		}
	}

	// Synchronous cache pre-check for every enabled remote backend,
	// atomic with dispatch: checking the cache and possibly sending on
	// the drainer channel happen without releasing control in between,
	// so a concurrently-arriving cache write for the same key can never
	// be missed between the two. The outstanding count is incremented
	// immediately before each send, matching the drainer side's
	// decrement-and-maybe-finalise: the count must never read as zero
	// while a dispatched job is still in flight. The coordinator also
	// holds one count of its own until the loop ends, so no drainer can
	// finalise while further backends are still to be dispatched.
	collector.remaining.Add(1)
	for _, b := range e.remote {
		if doiInline && b.Name() == e.doi.Name() {
			// Already resolved inline above; one slot per backend.
			continue
		}
		if collector.Verified() {
			// A dispatched drainer has already won early exit; stop
			// visiting further backends entirely, the same
			// short-circuit the inline local/DOI steps apply. A
			// backend already in flight still reports normally and is
			// decremented by the drainer side.
			break
		}
		normTitle := normalize.Title(ref.Title)
		if entry, hit := e.store.Lookup(b.Name(), normTitle); hit && normTitle != "" {
			e.applyCachedEntry(collector, b.Name(), entry)
			continue
		}
		collector.remaining.Add(1)
		select {
		case e.drainerChans[b.Name()] <- &drainerJob{ref: ref, collector: collector}:
		case <-ctx.Done():
			collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusSkipped})
			collector.remaining.Add(-1)
		}
	}

	var result domain.ValidationResult
	if collector.Decrement() == 0 {
		result = e.finalize(ctx, collector, total)
	} else {
		result = collector.Wait()
	}

	progress.Result(e.sink, ref.Index, total, result)
	return result
}

func backendDisabled(remote []backend.Backend, name string) bool {
	for _, b := range remote {
		if b.Name() == name {
			return false
		}
	}
	return true
}

// runLocalBackend executes one local backend inline. It returns
// verified=true (with the already-finalised result) only when this
// backend alone produced a matched, author-validated title.
func (e *runtime) runLocalBackend(ctx context.Context, b backend.Backend, ref domain.Reference, collector *RefCollector, total int) (bool, domain.ValidationResult) {
	timeout := e.cfg.DBTimeoutShort()
	outcome, err := b.QueryByTitle(ctx, ref.Title, e.client, timeout)
	if err != nil {
		collector.AddFailedDB(b.Name())
		collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusError})
		return false, domain.ValidationResult{}
	}
	if !outcome.Found() {
		collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusNoMatch})
		e.cacheOutcome(b.Name(), ref.Title, outcome, false)
		return false, domain.ValidationResult{}
	}

	verdict := authors.Validate(ref.Authors, outcome.Authors)
	score := normalize.Similarity(normalize.Title(ref.Title), normalize.Title(outcome.FoundTitle))
	resolved := authors.ResolveUnknown(verdict, score, e.cfg.NearExactTitleThreshold)
	e.cacheOutcome(b.Name(), ref.Title, outcome, true)

	if resolved == authors.Mismatch {
		collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusAuthorMismatch, Authors: outcome.Authors, PaperURL: outcome.PaperURL})
		collector.RecordMismatch(b.Name(), outcome.Authors)
		collector.RecordRetraction(outcome.Retraction)
		return false, domain.ValidationResult{}
	}

	collector.AddResult(domain.DbResult{Backend: b.Name(), Status: domain.DBStatusMatch, Authors: outcome.Authors, PaperURL: outcome.PaperURL})
	collector.TrySetVerified(b.Name(), outcome.Authors, outcome.PaperURL)
	collector.RecordRetraction(outcome.Retraction)
	collector.remaining.Store(0)
	result := e.finalize(ctx, collector, total)
	progress.Result(e.sink, ref.Index, total, result)
	return true, result
}

// runDOI executes the DOI-resolver lookup inline. A DOI match sets
// verified even with unknown authors.
func (e *runtime) runDOI(ctx context.Context, ref domain.Reference, collector *RefCollector, total int) (bool, domain.ValidationResult) {
	dr, err := e.doi.QueryByDOI(ctx, ref.DOI, ref.Title, ref.Authors, e.client, e.cfg.DBTimeoutShort())
	if err != nil || dr == nil {
		return false, domain.ValidationResult{}
	}
	collector.AddResult(*dr)
	collector.SetDOIValid(dr.Status == domain.DBStatusMatch)
	collector.RecordRetraction(dr.Retraction)
	if dr.Status != domain.DBStatusMatch {
		return false, domain.ValidationResult{}
	}
	if !collector.TrySetVerified(e.doi.Name(), dr.Authors, dr.PaperURL) {
		return false, domain.ValidationResult{}
	}
	collector.remaining.Store(0)
	result := e.finalize(ctx, collector, total)
	progress.Result(e.sink, ref.Index, total, result)
	return true, result
}

func (e *runtime) cacheOutcome(backendName, title string, outcome domain.BackendQueryOutcome, positive bool) {
	norm := normalize.Title(title)
	if norm == "" {
		return
	}
	class := domain.OutcomeClassNegative
	if positive {
		class = domain.OutcomeClassPositive
	}
	entry := domain.CacheEntry{
		FoundTitle: outcome.FoundTitle,
		Authors:    outcome.Authors,
		PaperURL:   outcome.PaperURL,
		Retraction: outcome.Retraction,
		InsertedAt: time.Now(),
		Class:      class,
	}
	_ = e.store.Insert(backendName, norm, entry)
}

// applyCachedEntry copies a cache hit directly into the collector's
// db_results, without dispatching a drainer.
func (e *runtime) applyCachedEntry(collector *RefCollector, backendName string, entry domain.CacheEntry) {
	outcome := entry.Outcome()
	if !outcome.Found() {
		collector.AddResult(domain.DbResult{Backend: backendName, Status: domain.DBStatusNoMatch})
		return
	}

	verdict := authors.Validate(collector.ref.Authors, outcome.Authors)
	score := normalize.Similarity(normalize.Title(collector.ref.Title), normalize.Title(outcome.FoundTitle))
	resolved := authors.ResolveUnknown(verdict, score, e.cfg.NearExactTitleThreshold)
	collector.RecordRetraction(outcome.Retraction)

	if resolved == authors.Mismatch {
		collector.AddResult(domain.DbResult{Backend: backendName, Status: domain.DBStatusAuthorMismatch, Authors: outcome.Authors, PaperURL: outcome.PaperURL})
		collector.RecordMismatch(backendName, outcome.Authors)
		return
	}

	collector.AddResult(domain.DbResult{Backend: backendName, Status: domain.DBStatusMatch, Authors: outcome.Authors, PaperURL: outcome.PaperURL})
	collector.TrySetVerified(backendName, outcome.Authors, outcome.PaperURL)
}
