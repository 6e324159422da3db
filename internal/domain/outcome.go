package domain

import "time"

// Retraction is an inline retraction record extracted from a backend's
// own response (only the DOI-bearing backend is expected to populate
// this).
type Retraction struct {
	IsRetracted   bool   `json:"is_retracted"`
	RetractionDOI string `json:"retraction_doi,omitempty"`
	Source        string `json:"source,omitempty"`
}

// BackendQueryOutcome is the result of a single successful query
// attempt against a backend.
type BackendQueryOutcome struct {
	FoundTitle string      `json:"found_title,omitempty"`
	Authors    []string    `json:"authors,omitempty"`
	PaperURL   string      `json:"paper_url,omitempty"`
	Retraction *Retraction `json:"retraction,omitempty"`
}

// Found reports whether the backend claims a title match.
func (o BackendQueryOutcome) Found() bool {
	return o.FoundTitle != ""
}

// OutcomeClass distinguishes cacheable positive and negative results.
type OutcomeClass string

const (
	OutcomeClassPositive OutcomeClass = "positive"
	OutcomeClassNegative OutcomeClass = "negative"
)

// CacheEntry is the value stored in the two-tier query cache.
type CacheEntry struct {
	FoundTitle string       `json:"found_title,omitempty"`
	Authors    []string     `json:"authors,omitempty"`
	PaperURL   string       `json:"paper_url,omitempty"`
	Retraction *Retraction  `json:"retraction,omitempty"`
	InsertedAt time.Time    `json:"inserted_at"`
	Class      OutcomeClass `json:"outcome_class"`
}

// Outcome reconstructs a BackendQueryOutcome from a cache entry.
func (e CacheEntry) Outcome() BackendQueryOutcome {
	return BackendQueryOutcome{
		FoundTitle: e.FoundTitle,
		Authors:    e.Authors,
		PaperURL:   e.PaperURL,
		Retraction: e.Retraction,
	}
}
