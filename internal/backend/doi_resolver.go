package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/retraction"
)

// DOIResolver resolves a DOI directly against doi.org content
// negotiation rather than a database-specific API. It is treated as
// its own backend (its own cache namespace, its own rate limit slot)
// rather than folded into CrossRef, since doi.org fronts every
// registration agency, not just CrossRef's.
type DOIResolver struct {
	Base
	Mailto string
}

func (d *DOIResolver) Name() string      { return "DOI Resolver" }
func (d *DOIResolver) RequiresDOI() bool { return true }

// QueryByTitle is unsupported: resolving by title has no meaning for
// a DOI-keyed backend, so it reports not-found rather than erroring.
func (d *DOIResolver) QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error) {
	return domain.BackendQueryOutcome{}, nil
}

func (d *DOIResolver) QueryByDOI(ctx context.Context, doi, title string, refAuthors []string, client *http.Client, timeout time.Duration) (*domain.DbResult, error) {
	if doi == "" {
		return nil, nil
	}

	userAgent := "ReferenceValidationEngine/1.0"
	if d.Mailto != "" {
		userAgent = fmt.Sprintf("ReferenceValidationEngine/1.0 (mailto:%s)", d.Mailto)
	}

	rawURL := "https://doi.org/" + url.PathEscape(doi)
	var resp map[string]interface{}
	start := time.Now()
	if err := getCSLJSON(ctx, client, d.Name(), rawURL, userAgent, timeout, &resp); err != nil {
		return nil, err
	}

	// CSL-JSON's "title" is a bare string, unlike CrossRef's native
	// {"title": [...]} envelope firstString expects. Its "author" array
	// uses the same {"given", "family"} shape as CrossRef's, though, so
	// extractAuthors still applies.
	foundTitle, _ := resp["title"].(string)
	authors := extractAuthors(resp)

	status := domain.DBStatusNoMatch
	if foundTitle != "" {
		status = domain.DBStatusMatch
	}

	result := &domain.DbResult{
		Backend:   d.Name(),
		Status:    status,
		ElapsedMS: time.Since(start).Milliseconds(),
		Authors:   authors,
		PaperURL:  "https://doi.org/" + doi,
	}

	if ret := retraction.FromWork(resp); ret != nil {
		result.Status = domain.DBStatusMatch
		result.Retraction = ret
	}

	return result, nil
}

// getCSLJSON is getJSON's sibling for doi.org's content-negotiated
// CSL-JSON representation, which arrives as a bare object rather than
// CrossRef's {"message": {...}} envelope.
func getCSLJSON(ctx context.Context, client *http.Client, backendName, rawURL, userAgent string, timeout time.Duration, out *map[string]interface{}) error {
	return getJSONAccept(ctx, client, backendName, rawURL, userAgent, "application/vnd.citationstyles.csl+json", timeout, out)
}
