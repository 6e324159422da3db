package engine

import (
	"context"

	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/progress"
)

// statusRank orders the three-way status by strength of evidence, so
// the retry pass can decide whether a second attempt's verdict
// supersedes the first. Upgrades are allowed; downgrades never happen.
func statusRank(s domain.Status) int {
	switch s {
	case domain.StatusVerified:
		return 2
	case domain.StatusAuthorMismatch:
		return 1
	default:
		return 0
	}
}

// retryPass re-queries, once, every backend that errored, timed out,
// or was rate-limited during the main pass, for every reference that
// is not already Verified. It mutates results in place.
func (e *runtime) retryPass(ctx context.Context, refs []domain.Reference, results []domain.ValidationResult) {
	type retryTarget struct {
		ref     domain.Reference
		idx     int
		backends []string
	}

	var targets []retryTarget
	for i, r := range results {
		if r.Status == domain.StatusVerified || len(r.FailedDBs) == 0 {
			continue
		}
		targets = append(targets, retryTarget{ref: refs[r.Index], idx: i, backends: r.FailedDBs})
	}
	if len(targets) == 0 {
		return
	}

	progress.RetryPass(e.sink, len(targets))

	for _, t := range targets {
		if isCancelled(ctx) {
			return
		}

		var dispatched []string
		collector := NewRefCollector(t.ref, 0)
		collector.skipFallback = true
		// Held until every retry job is sent, so no drainer finalises early.
		collector.remaining.Add(1)
		for _, name := range t.backends {
			ch, ok := e.drainerChans[name]
			if !ok {
				continue
			}
			collector.remaining.Add(1)
			select {
			case ch <- &drainerJob{ref: t.ref, collector: collector}:
				dispatched = append(dispatched, name)
			case <-ctx.Done():
				collector.remaining.Add(-1)
			}
		}
		var retryResult domain.ValidationResult
		if collector.Decrement() == 0 {
			if len(dispatched) == 0 {
				continue
			}
			retryResult = e.finalize(ctx, collector, e.total)
		} else {
			retryResult = collector.Wait()
		}
		e.mergeRetryResult(&results[t.idx], retryResult, dispatched)
	}
}

// mergeRetryResult folds a retry collector's findings back into the
// original ValidationResult: retried backends' db_results/failed_dbs
// entries are replaced, and the overall status is upgraded only when
// the retry produced strictly stronger evidence.
func (e *runtime) mergeRetryResult(original *domain.ValidationResult, retry domain.ValidationResult, retried []string) {
	retriedSet := make(map[string]bool, len(retried))
	for _, name := range retried {
		retriedSet[name] = true
	}

	merged := original.DbResults[:0:0]
	for _, dr := range original.DbResults {
		if retriedSet[dr.Backend] {
			continue
		}
		merged = append(merged, dr)
	}
	merged = append(merged, retry.DbResults...)
	original.DbResults = merged

	var failed []string
	for _, name := range original.FailedDBs {
		if retriedSet[name] {
			continue
		}
		failed = append(failed, name)
	}
	failed = append(failed, retry.FailedDBs...)
	original.FailedDBs = failed

	if statusRank(retry.Status) > statusRank(original.Status) {
		original.Status = retry.Status
		original.Source = retry.Source
		original.FoundAuthors = retry.FoundAuthors
		original.PaperURL = retry.PaperURL
	}

	if retry.RetractionInfo.IsRetracted && !original.RetractionInfo.IsRetracted {
		original.RetractionInfo = retry.RetractionInfo
	}
}
