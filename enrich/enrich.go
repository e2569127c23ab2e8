package enrich

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/aquasecurity/advisory-merger/advisory"
)

// Apply attaches exploitation context to each canonical record by
// checking its full identifier set against both tables. Either table
// may be nil, which is the degraded mode after a failed load: records
// then keep exploited=false and a nil probability. The tables are never
// mutated.
func Apply(vulns []advisory.Vulnerability, catalog ExploitedCatalog, probs ProbabilityTable) []advisory.Vulnerability {
	for i := range vulns {
		ids := CandidateIDs(vulns[i])
		if _, ok := catalog.Lookup(ids); ok {
			vulns[i].Exploited = true
		}
		if p, ok := probs.Lookup(ids); ok {
			p := p
			vulns[i].ExploitProbability = &p
		}
	}
	return vulns
}

// CandidateIDs returns the record's identifiers in table-key form:
// upper-cased, deduplicated, sorted ascending. The ordering is what
// makes the first-hit-wins lookup deterministic when a group carries
// several recognized identifiers.
func CandidateIDs(v advisory.Vulnerability) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, id := range v.Identifiers() {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
