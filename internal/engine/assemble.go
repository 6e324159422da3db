package engine

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/refcheck/internal/backend"
	"github.com/ppiankov/refcheck/internal/config"
)

// KnownBackendNames is the fixed set of backend names the orchestrator
// may ever assemble, used by internal/config.Validate to reject an
// unknown name in disabled_dbs at startup rather than silently
// ignoring it.
var KnownBackendNames = []string{
	"OpenAlex", "CrossRef", "arXiv", "DBLP", "Semantic Scholar",
	"Europe PMC", "PubMed", "ACL Anthology", "DOI Resolver", "Web Search",
}

// assembled is the orchestrator's output: the ordered, already-filtered
// backend list, split into local and remote for the coordinator/drainer
// wiring, plus any resources (open database handles) that must be
// closed when the run ends.
type assembled struct {
	all     []backend.Backend
	local   []backend.Backend
	remote  []backend.Backend
	doi     *backend.DOIResolver
	searx   *backend.SearxNG
	closers []func() error
}

// assemble builds the enabled-backend list: fixed assembly order,
// case-sensitive disable-by-name, and online variants dropped in
// favour of a configured offline counterpart.
//
// A handful of citation indices considered during development are
// left out entirely rather than wired half-heartedly: SSRN's search
// API has no stable JSON contract and NeurIPS proceedings are not
// exposed as a queryable index at all, so neither has a backend file
// here.
func assemble(cfg config.Config) (*assembled, error) {
	a := &assembled{}

	if cfg.OpenAlexKey != "" {
		a.all = append(a.all, &backend.OpenAlex{APIKey: cfg.OpenAlexKey})
	}
	a.all = append(a.all, &backend.CrossRef{Mailto: cfg.CrossRefMailto})
	a.all = append(a.all, &backend.Arxiv{})

	dblpOffline := cfg.DBLPOfflinePath != ""
	if !dblpOffline {
		a.all = append(a.all, &backend.DBLPOnline{})
	}

	a.all = append(a.all, &backend.SemanticScholar{APIKey: cfg.S2APIKey})
	a.all = append(a.all, &backend.EuropePMC{})
	a.all = append(a.all, &backend.PubMed{})

	aclOffline := cfg.ACLOfflinePath != ""
	if !aclOffline {
		a.all = append(a.all, &backend.ACLAnthology{})
	}

	doiBackend := &backend.DOIResolver{Mailto: cfg.CrossRefMailto}
	a.all = append(a.all, doiBackend)

	if dblpOffline {
		db, err := openOfflineIndex(cfg.DBLPOfflinePath)
		if err != nil {
			return nil, fmt.Errorf("open dblp offline index: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.all = append(a.all, &backend.DBLPOffline{DB: db})
	}
	if aclOffline {
		db, err := openOfflineIndex(cfg.ACLOfflinePath)
		if err != nil {
			return nil, fmt.Errorf("open acl offline index: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.all = append(a.all, &backend.ACLOffline{DB: db})
	}

	filtered := a.all[:0:0]
	for _, b := range a.all {
		if cfg.IsDisabled(b.Name()) {
			continue
		}
		filtered = append(filtered, b)
	}
	a.all = filtered

	for _, b := range a.all {
		if b.Name() == "DOI Resolver" {
			a.doi = doiBackend
		}
		if b.IsLocal() {
			a.local = append(a.local, b)
		} else {
			a.remote = append(a.remote, b)
		}
	}

	if cfg.SearxNGURL != "" && !cfg.IsDisabled("Web Search") {
		a.searx = &backend.SearxNG{BaseURL: cfg.SearxNGURL}
	}

	return a, nil
}

func openOfflineIndex(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return db, nil
}

func (a *assembled) close() {
	for _, c := range a.closers {
		_ = c()
	}
}
