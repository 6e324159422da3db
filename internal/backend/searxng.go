package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/normalize"
)

// SearxNG is the last-resort web-search fallback, queried only when
// every academic backend reported not-found. It cannot verify
// authors — a match only confirms the paper exists somewhere on the
// web — so it is weaker evidence than any academic database hit.
// Because it is self-hosted it carries no external rate limit and is
// never a drainer-pool member; it runs inline at finalisation.
type SearxNG struct {
	Base
	BaseURL string
}

func (s *SearxNG) Name() string  { return "Web Search" }
func (s *SearxNG) IsLocal() bool { return true }

type searxngResponse struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"results"`
}

// CheckConnectivity reports whether the configured SearxNG instance
// is reachable, for startup diagnostics. It is not required before a
// query — QueryByTitle treats connection failures as not-found.
func (s *SearxNG) CheckConnectivity(ctx context.Context, client *http.Client) error {
	rawURL := strings.TrimSuffix(s.BaseURL, "/") + "/"
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return nil
}

func (s *SearxNG) QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error) {
	query := `"` + title + `"`
	rawURL := strings.TrimSuffix(s.BaseURL, "/") + "/search?q=" + url.QueryEscape(query) + "&format=json"

	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, http.MethodGet, rawURL, nil)
	if err != nil {
		// Silently not-found: SearxNG is optional infrastructure.
		return domain.BackendQueryOutcome{}, nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return domain.BackendQueryOutcome{}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.BackendQueryOutcome{}, nil
	}

	var data searxngResponse
	if err := decodeJSONBody(resp, &data); err != nil {
		return domain.BackendQueryOutcome{}, nil
	}

	for _, r := range data.Results {
		if titlesMatchLenient(title, r.Title) {
			return domain.BackendQueryOutcome{
				FoundTitle: r.Title,
				PaperURL:   r.URL,
			}, nil
		}
	}

	return domain.BackendQueryOutcome{}, nil
}

// titlesMatchLenient is more permissive than normalize.TitlesMatch:
// an 85% similarity threshold plus substring containment, since a web
// search result title frequently carries a date prefix or venue
// suffix ("October 31, 2024 Oasis: A Universe in a Transformer").
func titlesMatchLenient(refTitle, searchTitle string) bool {
	normRef := normalize.Title(refTitle)
	normSearch := normalize.Title(searchTitle)
	if normRef == "" || normSearch == "" {
		return false
	}
	if normRef == normSearch {
		return true
	}
	if normalize.Similarity(normRef, normSearch) >= 85.0 {
		return true
	}
	if len(normRef) >= 15 && strings.Contains(normSearch, normRef) {
		return true
	}
	if len(normSearch) >= 15 && strings.Contains(normRef, normSearch) {
		return true
	}
	return false
}
