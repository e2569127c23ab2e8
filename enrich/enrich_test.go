package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/advisory-merger/advisory"
)

const catalogDoc = `{
  "catalogVersion": "2024.02.01",
  "count": 2,
  "vulnerabilities": [
    {"cveID": "CVE-2021-44228", "vendorProject": "Apache", "product": "Log4j", "dateAdded": "2021-12-10", "knownRansomwareCampaignUse": "Known"},
    {"cveID": "cve-2023-1234", "vendorProject": "Example", "product": "Widget"},
    {"cveID": ""}
  ]
}`

func TestLoadExploitedCatalog(t *testing.T) {
	catalog, err := LoadExploitedCatalog([]byte(catalogDoc))
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	entry, ok := catalog["CVE-2021-44228"]
	assert.True(t, ok)
	assert.Equal(t, "Log4j", entry.Product)

	// keys are upper-cased on load
	_, ok = catalog["CVE-2023-1234"]
	assert.True(t, ok)
}

func TestLoadExploitedCatalogMalformed(t *testing.T) {
	_, err := LoadExploitedCatalog([]byte("not json"))
	assert.Error(t, err)
}

func TestLoadProbabilityTable(t *testing.T) {
	doc := `#comment,2024-02-01
cve,epss,percentile
CVE-2021-44228,0.97565,0.99995
CVE-2024-0001,0.00042,0.05
CVE-2024-0002,bogus,0.5
CVE-2024-0003,1.5,0.5
`
	table, err := LoadProbabilityTable([]byte(doc))
	require.NoError(t, err)
	assert.Len(t, table, 2)
	assert.Equal(t, 0.97565, table["CVE-2021-44228"])
	assert.Equal(t, 0.00042, table["CVE-2024-0001"])
}

// When a group carries two recognized identifiers, the ascending
// lexicographic one wins. The governing feeds do not specify this
// tie-break, so it is pinned here.
func TestLookupFirstHitWins(t *testing.T) {
	table := ProbabilityTable{
		"CVE-2024-0002": 0.2,
		"CVE-2024-0010": 0.9,
	}
	v := advisory.Vulnerability{ID: "CVE-2024-0010", Aliases: []string{"CVE-2024-0002"}}
	p, ok := table.Lookup(CandidateIDs(v))
	require.True(t, ok)
	assert.Equal(t, 0.2, p)
}

func TestCandidateIDs(t *testing.T) {
	v := advisory.Vulnerability{ID: "ghsa-c222-2222-2222", Aliases: []string{"CVE-2024-2", "cve-2024-1", "CVE-2024-2", ""}}
	assert.Equal(t, []string{"CVE-2024-1", "CVE-2024-2", "GHSA-C222-2222-2222"}, CandidateIDs(v))
}

func TestApply(t *testing.T) {
	catalog := ExploitedCatalog{"CVE-2024-1": {CveID: "CVE-2024-1"}}
	probs := ProbabilityTable{"CVE-2024-2": 0.4}

	vulns := []advisory.Vulnerability{
		{ID: "CVE-2024-1"},
		{ID: "OSV-2", Aliases: []string{"CVE-2024-2"}},
		{ID: "CVE-2024-3"},
	}
	out := Apply(vulns, catalog, probs)
	require.Len(t, out, 3)

	assert.True(t, out[0].Exploited)
	assert.Nil(t, out[0].ExploitProbability)

	assert.False(t, out[1].Exploited)
	require.NotNil(t, out[1].ExploitProbability)
	assert.Equal(t, 0.4, *out[1].ExploitProbability)

	assert.False(t, out[2].Exploited)
	assert.Nil(t, out[2].ExploitProbability)
}

func TestApplyNilTables(t *testing.T) {
	out := Apply([]advisory.Vulnerability{{ID: "CVE-2024-1"}}, nil, nil)
	require.Len(t, out, 1)
	assert.False(t, out[0].Exploited)
	assert.Nil(t, out[0].ExploitProbability)
}
