package merge

import (
	"github.com/aquasecurity/advisory-merger/advisory"
	"github.com/aquasecurity/advisory-merger/enrich"
	"github.com/aquasecurity/advisory-merger/triage"
)

// MergeAndClassify is the core entry point: merge the raw records,
// attach exploitation context from the supplied tables, and stamp each
// canonical record with its priority tier. The tables may be nil after
// a failed enrichment load; classification then runs on severity alone.
func MergeAndClassify(raws []advisory.RawAdvisory, catalog enrich.ExploitedCatalog, probs enrich.ProbabilityTable) []advisory.Vulnerability {
	vulns := Merge(raws)
	vulns = enrich.Apply(vulns, catalog, probs)
	for i := range vulns {
		vulns[i].Priority = triage.Classify(vulns[i].Score, vulns[i].Exploited, vulns[i].ExploitProbability)
	}
	return vulns
}
