package engine

import (
	"sync"
	"sync/atomic"

	"github.com/ppiankov/refcheck/internal/domain"
)

// verifiedInfo is the winning verification, captured the instant the
// first drainer's compare-and-swap on RefCollector.verified succeeds.
type verifiedInfo struct {
	source  string
	authors []string
	url     string
}

// mismatchInfo is the first author-mismatch observed for a reference,
// retained only until (and unless) an outright verify supersedes it.
type mismatchInfo struct {
	source  string
	authors []string
}

// collectorState is the RefCollector's guarded, briefly-held fields.
// The lock is never held across a suspension point.
type collectorState struct {
	verifiedInfo  *verifiedInfo
	firstMismatch *mismatchInfo
	retraction    *domain.Retraction
	dbResults []domain.DbResult
	failedDBs []string
	doiValid  *bool
}

// RefCollector is the per-reference aggregation hub shared by every
// drainer dispatched for one reference, terminating in a one-shot
// delivery of the finalised ValidationResult.
type RefCollector struct {
	ref domain.Reference

	remaining atomic.Int32
	verified  atomic.Bool

	mu    sync.Mutex
	state collectorState

	returnCh chan domain.ValidationResult
	once     sync.Once

	// skipFallback marks a collector built for the retry pass, which
	// must not re-run the web-search fallback or identifier checks
	// the main pass already ran for this reference.
	skipFallback bool
}

// NewRefCollector constructs a collector for ref, expecting exactly
// `remaining` drainers to report before it finalises.
func NewRefCollector(ref domain.Reference, remaining int32) *RefCollector {
	c := &RefCollector{
		ref:      ref,
		returnCh: make(chan domain.ValidationResult, 1),
	}
	c.remaining.Store(remaining)
	return c
}

// Verified reports the current early-exit flag with an Acquire load,
// so a true result also makes verifiedInfo's write visible.
func (c *RefCollector) Verified() bool {
	return c.verified.Load()
}

// TrySetVerified attempts to win early exit for source. Only the first
// caller succeeds; it alone writes verified_info, under the state
// lock, before the CAS is visible to any Acquire-ordered load (Go's
// atomic.Bool already provides the required ordering).
func (c *RefCollector) TrySetVerified(source string, foundAuthors []string, url string) bool {
	if !c.verified.CompareAndSwap(false, true) {
		return false
	}
	c.mu.Lock()
	c.state.verifiedInfo = &verifiedInfo{source: source, authors: foundAuthors, url: url}
	c.mu.Unlock()
	return true
}

// RecordMismatch retains the first author-mismatch seen, if none is
// already retained.
func (c *RefCollector) RecordMismatch(source string, foundAuthors []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.firstMismatch == nil {
		c.state.firstMismatch = &mismatchInfo{source: source, authors: foundAuthors}
	}
}

// RecordRetraction retains the first retraction record seen.
func (c *RefCollector) RecordRetraction(r *domain.Retraction) {
	if r == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.retraction == nil {
		c.state.retraction = r
	}
}

// AddResult appends a backend's slot to db_results. It does not
// deduplicate: the coordinator/drainer protocol guarantees each
// backend reports at most once per reference per pass.
func (c *RefCollector) AddResult(dr domain.DbResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.dbResults = append(c.state.dbResults, dr)
}

// AddFailedDB records backend as having timed out or errored.
func (c *RefCollector) AddFailedDB(backend string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.state.failedDBs {
		if b == backend {
			return
		}
	}
	c.state.failedDBs = append(c.state.failedDBs, backend)
}

// SetDOIValid records whether the reference's DOI was confirmed by a
// backend.
func (c *RefCollector) SetDOIValid(valid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := valid
	c.state.doiValid = &v
}

// Decrement records one fewer outstanding drainer. It returns the new
// count; callers invoke the finaliser when it reaches zero.
func (c *RefCollector) Decrement() int32 {
	return c.remaining.Add(-1)
}

// snapshot copies the guarded state for finalisation.
func (c *RefCollector) snapshot() collectorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := c.state
	cp.dbResults = append([]domain.DbResult(nil), c.state.dbResults...)
	cp.failedDBs = append([]string(nil), c.state.failedDBs...)
	return cp
}

// send delivers the finalised result exactly once.
func (c *RefCollector) send(v domain.ValidationResult) {
	c.once.Do(func() {
		c.returnCh <- v
		close(c.returnCh)
	})
}

// Wait blocks for the one-shot finalised result.
func (c *RefCollector) Wait() domain.ValidationResult {
	return <-c.returnCh
}
