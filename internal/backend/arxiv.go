package backend

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
	"github.com/ppiankov/refcheck/internal/normalize"
)

// Arxiv queries the arXiv Atom-feed search API by title.
type Arxiv struct {
	Base
}

func (a *Arxiv) Name() string { return "arXiv" }

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title   string        `xml:"title"`
	Authors []arxivAuthor `xml:"author"`
	Links   []arxivLink   `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

func (a *Arxiv) QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error) {
	query := queryWords(title, 6)
	rawURL := fmt.Sprintf("http://export.arxiv.org/api/query?search_query=all:%s&start=0&max_results=5", url.QueryEscape(query))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: a.Name(), Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.BackendQueryOutcome{}, &domain.TimeoutError{Backend: a.Name()}
		}
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: a.Name(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.BackendQueryOutcome{}, &domain.RateLimitedError{Backend: a.Name(), RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: a.Name(), Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: a.Name(), Err: err}
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: a.Name(), Err: err}
	}

	for _, entry := range feed.Entries {
		foundTitle := strings.TrimSpace(entry.Title)
		if foundTitle == "" || !normalize.TitlesMatch(title, foundTitle) {
			continue
		}

		authors := make([]string, 0, len(entry.Authors))
		for _, au := range entry.Authors {
			if n := strings.TrimSpace(au.Name); n != "" {
				authors = append(authors, n)
			}
		}

		var paperURL string
		for _, l := range entry.Links {
			if l.Href != "" {
				paperURL = l.Href
				if l.Rel == "alternate" {
					break
				}
			}
		}

		return domain.BackendQueryOutcome{
			FoundTitle: foundTitle,
			Authors:    authors,
			PaperURL:   paperURL,
		}, nil
	}

	return domain.BackendQueryOutcome{}, nil
}
