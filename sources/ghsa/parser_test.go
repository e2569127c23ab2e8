package ghsa

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/advisory-merger/advisory"
)

func TestParse(t *testing.T) {
	data, err := os.ReadFile("./testdata/ghsa.json")
	require.NoError(t, err)

	raws, warnings, err := NewParser().Parse(data)
	require.NoError(t, err)
	require.Len(t, raws, 2)

	log4j := raws[0]
	assert.Equal(t, "ghsa", log4j.Source)
	assert.Equal(t, "GHSA-jfh8-c2jp-5v3q", log4j.ID)
	assert.Equal(t, []string{"CVE-2021-44228"}, log4j.Aliases)
	require.NotNil(t, log4j.Score)
	assert.Equal(t, 10.0, *log4j.Score)

	// markdown is flattened before the description competes on length
	assert.Contains(t, log4j.Description, "remote code execution")
	assert.NotContains(t, log4j.Description, "**")
	assert.NotContains(t, log4j.Description, "# Summary")
	assert.Contains(t, log4j.Description, "Summary")

	require.Len(t, log4j.Affected, 1)
	assert.Equal(t, "maven", log4j.Affected[0].Ecosystem)
	assert.Equal(t, []advisory.VersionRange{{Introduced: "2.0.0", Fixed: "2.15.0"}}, log4j.Affected[0].Ranges)

	// score 0 with a decodable vector: score comes from the vector
	vectorOnly := raws[1]
	assert.Equal(t, "GHSA-vvpx-j8f3-3w6h", vectorOnly.ID)
	assert.Empty(t, vectorOnly.Aliases)
	require.NotNil(t, vectorOnly.Score)
	assert.Equal(t, 7.5, *vectorOnly.Score)
	assert.Equal(t, "Vector-only advisory", vectorOnly.Description)
	assert.Equal(t, []advisory.VersionRange{{Introduced: "0", LastAffected: "1.1.3"}}, vectorOnly.Affected[0].Ranges)

	// withdrawn and id-less advisories become warnings
	require.Len(t, warnings, 2)
}

func TestParseSingleAdvisory(t *testing.T) {
	doc := `{"ghsa_id": "GHSA-wxc2-cxqh-qwfw", "summary": "one advisory", "cve_id": "CVE-2024-5"}`
	raws, warnings, err := NewParser().Parse([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, raws, 1)
	assert.Equal(t, "GHSA-wxc2-cxqh-qwfw", raws[0].ID)
	assert.Equal(t, []string{"CVE-2024-5"}, raws[0].Aliases)
}

func TestParseGarbage(t *testing.T) {
	_, _, err := NewParser().Parse([]byte("{\"advisories\": 5}"))
	assert.Error(t, err)
}

func TestParseVersionRange(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  advisory.VersionRange
		ok    bool
	}{
		{name: "bounded", input: ">= 4.0.0, < 4.3.12", want: advisory.VersionRange{Introduced: "4.0.0", Fixed: "4.3.12"}, ok: true},
		{name: "upper only", input: "< 1.2.0", want: advisory.VersionRange{Introduced: "0", Fixed: "1.2.0"}, ok: true},
		{name: "inclusive upper", input: "<= 1.1.3", want: advisory.VersionRange{Introduced: "0", LastAffected: "1.1.3"}, ok: true},
		{name: "exact", input: "= 2.0.0", want: advisory.VersionRange{Introduced: "2.0.0", LastAffected: "2.0.0"}, ok: true},
		{name: "empty", input: "", ok: false},
		{name: "unparseable version", input: "< not.a.version", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseVersionRange(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
