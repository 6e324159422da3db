package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/normalize"
	"github.com/ppiankov/refcheck/internal/retraction"
)

// CrossRef queries the CrossRef works API by title and extracts inline
// retraction metadata from the matched work. It has no DOI query of
// its own; DOI resolution goes through DOIResolver.
type CrossRef struct {
	Base
	Mailto string
}

func (c *CrossRef) Name() string { return "CrossRef" }

type crossrefResponse struct {
	Message struct {
		Items []map[string]interface{} `json:"items"`
	} `json:"message"`
}

func (c *CrossRef) QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error) {
	query := queryWords(title, 6)
	rawURL := fmt.Sprintf("https://api.crossref.org/works?query.title=%s&rows=5", url.QueryEscape(query))
	userAgent := "Academic Reference Parser"
	if c.Mailto != "" {
		rawURL += "&mailto=" + url.QueryEscape(c.Mailto)
		userAgent = fmt.Sprintf("ReferenceValidationEngine/1.0 (mailto:%s)", c.Mailto)
	}

	var resp crossrefResponse
	if err := getJSON(ctx, client, c.Name(), rawURL, userAgent, timeout, &resp); err != nil {
		return domain.BackendQueryOutcome{}, err
	}

	for _, item := range resp.Message.Items {
		foundTitle := firstString(item["title"])
		if foundTitle == "" || !normalize.TitlesMatch(title, foundTitle) {
			continue
		}

		authors := extractAuthors(item)
		// Skip results with empty authors — let other backends verify;
		// CrossRef sometimes returns a title match with no author data.
		if len(authors) == 0 {
			continue
		}

		doi, _ := item["DOI"].(string)
		var paperURL string
		if doi != "" {
			paperURL = "https://doi.org/" + doi
		}

		return domain.BackendQueryOutcome{
			FoundTitle: foundTitle,
			Authors:    authors,
			PaperURL:   paperURL,
			Retraction: retraction.FromWork(item),
		}, nil
	}

	return domain.BackendQueryOutcome{}, nil
}

// QueryByDOI is unsupported — DOI resolution is DOIResolver's
// responsibility (its own cache namespace and rate limit slot).
// CrossRef remains title-query only, falling back to Base's default.

func extractAuthors(item map[string]interface{}) []string {
	raw, _ := item["author"].([]interface{})
	authors := make([]string, 0, len(raw))
	for _, a := range raw {
		m, ok := a.(map[string]interface{})
		if !ok {
			continue
		}
		given, _ := m["given"].(string)
		family, _ := m["family"].(string)
		name := strings.TrimSpace(given + " " + family)
		if name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

func firstString(v interface{}) string {
	arr, ok := v.([]interface{})
	if !ok || len(arr) == 0 {
		return ""
	}
	s, _ := arr[0].(string)
	return s
}

// queryWords returns the first n whitespace-separated words of title,
// joined by spaces, mirroring the query-trimming the upstream database
// APIs expect for title search.
func queryWords(title string, n int) string {
	words := strings.Fields(title)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
