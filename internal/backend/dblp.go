package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/normalize"
)

// DBLPOnline queries dblp.org's publication search API by title.
type DBLPOnline struct {
	Base
}

func (d *DBLPOnline) Name() string { return "DBLP" }

type dblpResponse struct {
	Result struct {
		Hits struct {
			Hit []struct {
				Info struct {
					Title   string `json:"title"`
					URL     string `json:"url"`
					Authors struct {
						Author dblpAuthors `json:"author"`
					} `json:"authors"`
				} `json:"info"`
			} `json:"hit"`
		} `json:"hits"`
	} `json:"result"`
}

// dblpAuthors unmarshals DBLP's inconsistent author shape: a single
// object, a string, or an array of either.
type dblpAuthors []string

func (a *dblpAuthors) UnmarshalJSON(data []byte) error {
	var asArray []json.RawMessage
	if err := json.Unmarshal(data, &asArray); err == nil {
		names := make([]string, 0, len(asArray))
		for _, raw := range asArray {
			if name := decodeDblpAuthor(raw); name != "" {
				names = append(names, name)
			}
		}
		*a = names
		return nil
	}
	if name := decodeDblpAuthor(data); name != "" {
		*a = []string{name}
	}
	return nil
}

func decodeDblpAuthor(raw json.RawMessage) string {
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Text != "" {
		return obj.Text
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func (d *DBLPOnline) QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error) {
	query := queryWords(title, 6)
	rawURL := fmt.Sprintf("https://dblp.org/search/publ/api?q=%s&format=json", url.QueryEscape(query))

	var resp dblpResponse
	if err := getJSON(ctx, client, d.Name(), rawURL, "", timeout, &resp); err != nil {
		return domain.BackendQueryOutcome{}, err
	}

	for _, hit := range resp.Result.Hits.Hit {
		if hit.Info.Title == "" || !normalize.TitlesMatch(title, hit.Info.Title) {
			continue
		}
		return domain.BackendQueryOutcome{
			FoundTitle: hit.Info.Title,
			Authors:    []string(hit.Info.Authors.Author),
			PaperURL:   hit.Info.URL,
		}, nil
	}

	return domain.BackendQueryOutcome{}, nil
}

// DBLPOffline queries a local SQLite dump of the DBLP XML export
// instead of the network API. It supersedes DBLPOnline when
// configured, and runs inline as a local backend.
type DBLPOffline struct {
	Base
	DB *sql.DB
}

func (d *DBLPOffline) Name() string  { return "DBLP" }
func (d *DBLPOffline) IsLocal() bool { return true }

func (d *DBLPOffline) QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error) {
	norm := normalize.Title(title)
	if norm == "" || d.DB == nil {
		return domain.BackendQueryOutcome{}, nil
	}

	rows, err := d.DB.QueryContext(ctx,
		`SELECT title, authors, url FROM publications WHERE normalized_title LIKE ? LIMIT 20`,
		"%"+norm+"%")
	if err != nil {
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: d.Name(), Err: err}
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var foundTitle, authorsJoined, paperURL string
		if err := rows.Scan(&foundTitle, &authorsJoined, &paperURL); err != nil {
			continue
		}
		if !normalize.TitlesMatch(title, foundTitle) {
			continue
		}
		var authors []string
		if authorsJoined != "" {
			authors = strings.Split(authorsJoined, "\x1f")
		}
		return domain.BackendQueryOutcome{
			FoundTitle: foundTitle,
			Authors:    authors,
			PaperURL:   paperURL,
		}, nil
	}

	return domain.BackendQueryOutcome{}, nil
}
