package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/normalize"
)

// EuropePMC queries the Europe PMC REST search API by title.
type EuropePMC struct {
	Base
}

func (e *EuropePMC) Name() string { return "Europe PMC" }

var (
	europePMCSpecial = regexp.MustCompile(`["'\[\](){}:;]`)
	europePMCSpace   = regexp.MustCompile(`\s+`)
)

type europePMCResponse struct {
	ResultList struct {
		Result []struct {
			Title        string `json:"title"`
			AuthorString string `json:"authorString"`
			DOI          string `json:"doi"`
			PMCID        string `json:"pmcid"`
			PMID         string `json:"pmid"`
		} `json:"result"`
	} `json:"resultList"`
}

func (e *EuropePMC) QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error) {
	clean := europePMCSpecial.ReplaceAllString(title, " ")
	clean = europePMCSpace.ReplaceAllString(clean, " ")
	if len(clean) > 100 {
		clean = clean[:100]
	}

	rawURL := fmt.Sprintf("https://www.ebi.ac.uk/europepmc/webservices/rest/search?query=%s&format=json&pageSize=15", url.QueryEscape(clean))
	userAgent := "Academic Reference Parser"

	var resp europePMCResponse
	if err := getJSON(ctx, client, e.Name(), rawURL, userAgent, timeout, &resp); err != nil {
		return domain.BackendQueryOutcome{}, err
	}

	for _, item := range resp.ResultList.Result {
		if item.Title == "" || !normalize.TitlesMatch(title, item.Title) {
			continue
		}

		var authors []string
		if item.AuthorString != "" {
			for _, a := range strings.Split(item.AuthorString, ",") {
				if a = strings.TrimSpace(a); a != "" {
					authors = append(authors, a)
				}
			}
		}

		var paperURL string
		switch {
		case item.DOI != "":
			paperURL = "https://doi.org/" + item.DOI
		case item.PMCID != "":
			paperURL = "https://europepmc.org/article/PMC/" + item.PMCID
		case item.PMID != "":
			paperURL = "https://europepmc.org/article/MED/" + item.PMID
		}

		return domain.BackendQueryOutcome{
			FoundTitle: item.Title,
			Authors:    authors,
			PaperURL:   paperURL,
		}, nil
	}

	return domain.BackendQueryOutcome{}, nil
}
