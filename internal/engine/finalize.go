package engine

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/progress"
)

// finalize builds the terminal ValidationResult for one reference from
// its collector's accumulated state: it resolves the three-way status,
// runs the web-search fallback when every academic backend came up
// empty, and fills in the identifier/retraction side channels.
func (e *runtime) finalize(ctx context.Context, collector *RefCollector, total int) domain.ValidationResult {
	st := collector.snapshot()
	ref := collector.ref

	result := domain.ValidationResult{
		Index:      ref.Index,
		RefAuthors: ref.Authors,
		DbResults:  st.dbResults,
		FailedDBs:  st.failedDBs,
	}

	switch {
	case st.verifiedInfo != nil:
		result.Status = domain.StatusVerified
		result.Source = st.verifiedInfo.source
		result.FoundAuthors = st.verifiedInfo.authors
		result.PaperURL = st.verifiedInfo.url
	case st.firstMismatch != nil:
		result.Status = domain.StatusAuthorMismatch
		result.Source = st.firstMismatch.source
		result.FoundAuthors = st.firstMismatch.authors
	default:
		result.Status = domain.StatusNotFound
	}

	if result.Status == domain.StatusNotFound && e.searx != nil && !collector.skipFallback {
		if hit, dr := e.runWebSearchFallback(ctx, ref, total); hit {
			result.Status = domain.StatusVerified
			result.Source = dr.Backend
			result.PaperURL = dr.PaperURL
			result.DbResults = append(result.DbResults, dr)
		}
	}

	if len(st.failedDBs) > 0 {
		progress.Warning(e.sink, ref.Index, total, ref.Title, st.failedDBs,
			fmt.Sprintf("%d backend(s) failed for this reference", len(st.failedDBs)))
	}

	if !collector.skipFallback && ref.HasDOI() {
		info := &domain.IdentifierInfo{Identifier: ref.DOI}
		if st.doiValid != nil {
			info.Valid = *st.doiValid
		}
		result.DOIInfo = info
	}

	if !collector.skipFallback && ref.ArxivID != "" {
		valid, resolvedTitle := e.checkArxivID(ctx, ref.ArxivID)
		result.ArxivInfo = &domain.IdentifierInfo{
			Identifier:    ref.ArxivID,
			Valid:         valid,
			ResolvedTitle: resolvedTitle,
		}
	}

	if st.retraction != nil {
		result.RetractionInfo = domain.RetractionInfo{
			IsRetracted:   st.retraction.IsRetracted,
			RetractionDOI: st.retraction.RetractionDOI,
			Source:        st.retraction.Source,
		}
	}

	return result
}

// runWebSearchFallback issues the one unrestricted web request the
// engine ever makes, gated by robots.txt compliance via netpolicy.
func (e *runtime) runWebSearchFallback(ctx context.Context, ref domain.Reference, total int) (bool, domain.DbResult) {
	if e.robots != nil {
		searchURL := strings.TrimSuffix(e.searx.BaseURL, "/") + "/search"
		if !e.robots.IsAllowed(ctx, searchURL) {
			progress.Warning(e.sink, ref.Index, total, ref.Title, nil, "web search fallback blocked by robots.txt")
			return false, domain.DbResult{}
		}
	}

	start := time.Now()
	outcome, err := e.searx.QueryByTitle(ctx, ref.Title, e.client, e.cfg.DBTimeoutShort())
	elapsed := time.Since(start).Milliseconds()
	if err != nil || !outcome.Found() {
		return false, domain.DbResult{Backend: e.searx.Name(), Status: domain.DBStatusNoMatch, ElapsedMS: elapsed}
	}
	return true, domain.DbResult{
		Backend:   e.searx.Name(),
		Status:    domain.DBStatusMatch,
		ElapsedMS: elapsed,
		PaperURL:  outcome.PaperURL,
	}
}

type arxivIDFeed struct {
	Entries []arxivIDEntry `xml:"entry"`
}

type arxivIDEntry struct {
	Title string `xml:"title"`
}

// checkArxivID confirms a reference's arXiv identifier resolves to a
// real paper, independent of any title search, using the same
// Atom-feed contract internal/backend/arxiv.go consumes by title.
func (e *runtime) checkArxivID(ctx context.Context, id string) (bool, string) {
	rawURL := "http://export.arxiv.org/api/query?id_list=" + url.QueryEscape(id)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.DBTimeoutShort())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false, ""
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false, ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, ""
	}

	var feed arxivIDFeed
	if err := xml.Unmarshal(body, &feed); err != nil || len(feed.Entries) == 0 {
		return false, ""
	}

	title := strings.TrimSpace(feed.Entries[0].Title)
	if title == "" {
		return false, ""
	}
	return true, title
}
