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
)

// PubMed queries NCBI's E-utilities: esearch for matching PMIDs, then
// esummary for the article details to match against.
type PubMed struct {
	Base
}

func (p *PubMed) Name() string { return "PubMed" }

type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedSummaryResponse struct {
	Result map[string]struct {
		Title   string `json:"title"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"result"`
}

func (p *PubMed) QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error) {
	query := queryWords(title, 6)
	term := query + "[Title]"
	userAgent := "Academic Reference Parser"

	searchURL := fmt.Sprintf(
		"https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi?db=pubmed&term=%s&retmode=json&retmax=10",
		url.QueryEscape(term),
	)
	var search pubmedSearchResponse
	if err := getJSON(ctx, client, p.Name(), searchURL, userAgent, timeout, &search); err != nil {
		return domain.BackendQueryOutcome{}, err
	}
	if len(search.ESearchResult.IDList) == 0 {
		return domain.BackendQueryOutcome{}, nil
	}

	ids := strings.Join(search.ESearchResult.IDList, ",")
	fetchURL := fmt.Sprintf(
		"https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi?db=pubmed&id=%s&retmode=json",
		url.QueryEscape(ids),
	)
	var summary pubmedSummaryResponse
	if err := getJSON(ctx, client, p.Name(), fetchURL, userAgent, timeout, &summary); err != nil {
		return domain.BackendQueryOutcome{}, err
	}

	for _, pmid := range search.ESearchResult.IDList {
		item, ok := summary.Result[pmid]
		if !ok || item.Title == "" || !normalize.TitlesMatch(title, item.Title) {
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
			PaperURL:   "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
		}, nil
	}

	return domain.BackendQueryOutcome{}, nil
}
