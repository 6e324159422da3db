// Package progress implements the engine's ordered lifecycle-event
// bus: a typed event union emitted synchronously to an external,
// non-blocking callback.
package progress

import (
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
)

// EventKind classifies a ProgressEvent using a typed-string enum.
type EventKind string

const (
	EventChecking              EventKind = "checking"
	EventDatabaseQueryComplete EventKind = "database_query_complete"
	EventRateLimitWait         EventKind = "rate_limit_wait"
	EventWarning               EventKind = "warning"
	EventResult                EventKind = "result"
	EventRetryPass             EventKind = "retry_pass"
)

func (k EventKind) String() string { return string(k) }

// Event is the single type carrying every ProgressEvent variant. Only
// the fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	// Checking
	Index int
	Total int
	Title string

	// DatabaseQueryComplete
	RefIndex  int
	Backend   string
	DBStatus  domain.DBStatus
	ElapsedMS int64

	// RateLimitWait
	Wait time.Duration

	// Warning
	FailedDBs []string
	Message   string

	// Result
	Value *domain.ValidationResult

	// RetryPass
	Count int
}

// Sink is the callback the engine invokes for every lifecycle event.
// It must be non-blocking and cheap; it runs on the same goroutine as
// the emitting component.
type Sink func(Event)

// Noop is a Sink that discards every event.
func Noop(Event) {}

// Checking emits a Checking event.
func Checking(sink Sink, index, total int, title string) {
	if sink == nil {
		return
	}
	sink(Event{Kind: EventChecking, Index: index, Total: total, Title: title})
}

// DatabaseQueryComplete emits a DatabaseQueryComplete event.
func DatabaseQueryComplete(sink Sink, refIndex int, backend string, status domain.DBStatus, elapsedMS int64) {
	if sink == nil {
		return
	}
	sink(Event{
		Kind:      EventDatabaseQueryComplete,
		RefIndex:  refIndex,
		Backend:   backend,
		DBStatus:  status,
		ElapsedMS: elapsedMS,
	})
}

// RateLimitWait emits a RateLimitWait event.
func RateLimitWait(sink Sink, backend string, wait time.Duration) {
	if sink == nil {
		return
	}
	sink(Event{Kind: EventRateLimitWait, Backend: backend, Wait: wait})
}

// Warning emits a Warning event.
func Warning(sink Sink, index, total int, title string, failedDBs []string, message string) {
	if sink == nil {
		return
	}
	sink(Event{
		Kind:      EventWarning,
		Index:     index,
		Total:     total,
		Title:     title,
		FailedDBs: failedDBs,
		Message:   message,
	})
}

// Result emits a Result event.
func Result(sink Sink, index, total int, value domain.ValidationResult) {
	if sink == nil {
		return
	}
	sink(Event{Kind: EventResult, Index: index, Total: total, Value: &value})
}

// RetryPass emits a RetryPass event.
func RetryPass(sink Sink, count int) {
	if sink == nil {
		return
	}
	sink(Event{Kind: EventRetryPass, Count: count})
}
