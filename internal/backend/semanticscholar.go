package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/normalize"
)

// SemanticScholar queries the Semantic Scholar Graph API by title. An
// optional API key raises its rate limit tier.
type SemanticScholar struct {
	Base
	APIKey string
}

func (s *SemanticScholar) Name() string { return "Semantic Scholar" }

type semanticScholarResponse struct {
	Data []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"data"`
}

func (s *SemanticScholar) QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error) {
	query := queryWords(title, 6)
	rawURL := fmt.Sprintf("https://api.semanticscholar.org/graph/v1/paper/search?query=%s&limit=10&fields=title,authors,url", url.QueryEscape(query))

	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: s.Name(), Err: err}
	}
	req.Header.Set("User-Agent", "Academic Reference Parser")
	req.Header.Set("Accept", "application/json")
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx2.Err() != nil {
			return domain.BackendQueryOutcome{}, &domain.TimeoutError{Backend: s.Name()}
		}
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: s.Name(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.BackendQueryOutcome{}, &domain.RateLimitedError{Backend: s.Name(), RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: s.Name(), Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	var data semanticScholarResponse
	if err := decodeJSONBody(resp, &data); err != nil {
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: s.Name(), Err: err}
	}

	for _, item := range data.Data {
		if item.Title == "" || !normalize.TitlesMatch(title, item.Title) {
			continue
		}
		authors := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}
		return domain.BackendQueryOutcome{
			FoundTitle: item.Title,
			Authors:    authors,
			PaperURL:   item.URL,
		}, nil
	}

	return domain.BackendQueryOutcome{}, nil
}
