// Package enrich builds the exploitation-context lookup tables and
// attaches their values to canonical vulnerabilities. Tables are built
// once per sync cycle and are read-only for the duration of a run.
package enrich

import (
	"encoding/json"
	"strings"

	"golang.org/x/xerrors"
)

// ExploitedEntry is one row of the actively-exploited catalog. Presence
// of a key in the catalog means "known to be exploited in the wild".
type ExploitedEntry struct {
	CveID                      string `json:"cveID"`
	VendorProject              string `json:"vendorProject,omitempty"`
	Product                    string `json:"product,omitempty"`
	DateAdded                  string `json:"dateAdded,omitempty"`
	DueDate                    string `json:"dueDate,omitempty"`
	KnownRansomwareCampaignUse string `json:"knownRansomwareCampaignUse,omitempty"`
}

// ExploitedCatalog is keyed by upper-cased CVE-form identifier.
type ExploitedCatalog map[string]ExploitedEntry

type catalogDocument struct {
	CatalogVersion  string           `json:"catalogVersion"`
	DateReleased    string           `json:"dateReleased"`
	Count           int              `json:"count"`
	Vulnerabilities []ExploitedEntry `json:"vulnerabilities"`
}

// LoadExploitedCatalog builds the catalog table from its source
// document. A wholly malformed document is the caller's cue to proceed
// with a nil table rather than abort the run.
func LoadExploitedCatalog(data []byte) (ExploitedCatalog, error) {
	var doc catalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, xerrors.Errorf("decode exploited catalog: %w", err)
	}
	catalog := make(ExploitedCatalog, len(doc.Vulnerabilities))
	for _, e := range doc.Vulnerabilities {
		id := strings.ToUpper(strings.TrimSpace(e.CveID))
		if id == "" {
			continue
		}
		catalog[id] = e
	}
	return catalog, nil
}

// Lookup checks the given identifiers against the catalog. Callers pass
// identifiers already sorted ascending; the first hit wins, which keeps
// the result reproducible when a merge group carries more than one
// recognized identifier.
func (c ExploitedCatalog) Lookup(ids []string) (ExploitedEntry, bool) {
	for _, id := range ids {
		if e, ok := c[id]; ok {
			return e, true
		}
	}
	return ExploitedEntry{}, false
}
