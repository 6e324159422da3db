package backend

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ppiankov/refcheck/internal/domain"
	"github.com/ppiankov/refcheck/internal/normalize"
)

// ACLAnthology scrapes the ACL Anthology's search results page by
// title, since it exposes no JSON search API.
type ACLAnthology struct {
	Base
}

func (a *ACLAnthology) Name() string { return "ACL Anthology" }

func (a *ACLAnthology) QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error) {
	rawURL := "https://aclanthology.org/search/?q=" + url.QueryEscape(title)

	ctx2, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: a.Name(), Err: err}
	}
	req.Header.Set("User-Agent", "Academic Reference Parser")

	resp, err := client.Do(req)
	if err != nil {
		if ctx2.Err() != nil {
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

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: a.Name(), Err: err}
	}

	return parseACLResults(doc, title), nil
}

// parseACLResults walks the search-results page looking for entries
// whose title matches, collecting the badge-styled author spans and
// the /papers/ permalink for the first match found.
func parseACLResults(doc *html.Node, title string) domain.BackendQueryOutcome {
	var entries []*html.Node
	collectByClass(doc, "d-sm-flex align-items-stretch p-2", &entries)

	for _, entry := range entries {
		titleNode := firstByTag(entry, "h5")
		if titleNode == nil {
			continue
		}
		foundTitle := strings.TrimSpace(textContent(titleNode))
		if foundTitle == "" || !normalize.TitlesMatch(title, foundTitle) {
			continue
		}

		var authorNodes []*html.Node
		collectByClass(entry, "badge badge-light", &authorNodes)
		authors := make([]string, 0, len(authorNodes))
		for _, n := range authorNodes {
			if name := strings.TrimSpace(textContent(n)); name != "" {
				authors = append(authors, name)
			}
		}
		// Skip results with empty authors — let other backends verify.
		if len(authors) == 0 {
			continue
		}

		var paperURL string
		if href := firstLinkContaining(entry, "/papers/"); href != "" {
			paperURL = "https://aclanthology.org" + href
		}

		return domain.BackendQueryOutcome{
			FoundTitle: foundTitle,
			Authors:    authors,
			PaperURL:   paperURL,
		}
	}

	return domain.BackendQueryOutcome{}
}

func hasClass(n *html.Node, want string) bool {
	wantParts := strings.Fields(want)
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		classSet := make(map[string]bool)
		for _, c := range strings.Fields(attr.Val) {
			classSet[c] = true
		}
		for _, w := range wantParts {
			if !classSet[w] {
				return false
			}
		}
		return true
	}
	return false
}

func collectByClass(n *html.Node, class string, out *[]*html.Node) {
	if n.Type == html.ElementNode && hasClass(n, class) {
		*out = append(*out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectByClass(c, class, out)
	}
}

func firstByTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := firstByTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func firstLinkContaining(n *html.Node, substr string) string {
	if n.Type == html.ElementNode && n.Data == "a" {
		for _, attr := range n.Attr {
			if attr.Key == "href" && strings.Contains(attr.Val, substr) {
				return attr.Val
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := firstLinkContaining(c, substr); href != "" {
			return href
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// ACLOffline queries a local SQLite dump of the ACL Anthology XML
// export instead of scraping the search page. It supersedes
// ACLAnthology when configured, and runs inline as a local backend.
type ACLOffline struct {
	Base
	DB *sql.DB
}

func (a *ACLOffline) Name() string  { return "ACL Anthology" }
func (a *ACLOffline) IsLocal() bool { return true }

func (a *ACLOffline) QueryByTitle(ctx context.Context, title string, client *http.Client, timeout time.Duration) (domain.BackendQueryOutcome, error) {
	norm := normalize.Title(title)
	if norm == "" || a.DB == nil {
		return domain.BackendQueryOutcome{}, nil
	}

	rows, err := a.DB.QueryContext(ctx,
		`SELECT title, authors, url FROM papers WHERE normalized_title LIKE ? LIMIT 20`,
		"%"+norm+"%")
	if err != nil {
		return domain.BackendQueryOutcome{}, &domain.TransportError{Backend: a.Name(), Err: err}
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
		// Skip results with empty authors — let other backends verify.
		if len(authors) == 0 {
			continue
		}
		return domain.BackendQueryOutcome{
			FoundTitle: foundTitle,
			Authors:    authors,
			PaperURL:   paperURL,
		}, nil
	}

	return domain.BackendQueryOutcome{}, nil
}
