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

// OpenAlex queries the OpenAlex works API by title. The orchestrator
// enables it only when an API key is configured, first in the
// assembly order, at its internal/ratelimit.DefaultBaseRates rate.
type OpenAlex struct {
	Base
	APIKey string
}

func (o *OpenAlex) Name() string { return "OpenAlex" }

type openAlexResponse struct {
	Results []struct {
		Title       string `json:"title"`
		DOI         string `json:"doi"`
		ID          string `json:"id"`
		Authorships []struct {
			Author struct {
				DisplayName string `json:"display_name"`
			} `json:"author"`
		} `json:"authorships"`
	} `json:"results"`
}

func (o *OpenAlex) QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error) {
	query := queryWords(title, 6)
	rawURL := fmt.Sprintf("https://api.openalex.org/works?filter=title.search:%s", url.QueryEscape(query))
	if o.APIKey != "" {
		rawURL += "&api_key=" + url.QueryEscape(o.APIKey)
	}

	var resp openAlexResponse
	if err := getJSON(ctx, client, o.Name(), rawURL, "Academic Reference Parser", timeout, &resp); err != nil {
		return domain.BackendQueryOutcome{}, err
	}

	results := resp.Results
	if len(results) > 5 {
		results = results[:5]
	}

	for _, item := range results {
		if item.Title == "" || !normalize.TitlesMatch(title, item.Title) {
			continue
		}

		authors := make([]string, 0, len(item.Authorships))
		for _, a := range item.Authorships {
			if a.Author.DisplayName != "" {
				authors = append(authors, a.Author.DisplayName)
			}
		}
		// Skip results with empty authors — let other backends verify.
		if len(authors) == 0 {
			continue
		}

		paperURL := item.DOI
		if paperURL == "" {
			paperURL = item.ID
		}

		return domain.BackendQueryOutcome{
			FoundTitle: item.Title,
			Authors:    authors,
			PaperURL:   paperURL,
		}, nil
	}

	return domain.BackendQueryOutcome{}, nil
}
