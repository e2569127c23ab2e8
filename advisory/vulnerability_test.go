package advisory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		vulns   []Vulnerability
		wantErr string
	}{
		{
			name: "clean set",
			vulns: []Vulnerability{
				{ID: "CVE-2024-1", Aliases: []string{"OSV-1"}, Score: f(7.5)},
				{ID: "CVE-2024-2"},
			},
		},
		{
			name:    "self alias",
			vulns:   []Vulnerability{{ID: "CVE-2024-1", Aliases: []string{"CVE-2024-1"}}},
			wantErr: "lists itself as an alias",
		},
		{
			name: "identifier owned by two records",
			vulns: []Vulnerability{
				{ID: "CVE-2024-1", Aliases: []string{"OSV-1"}},
				{ID: "CVE-2024-2", Aliases: []string{"OSV-1"}},
			},
			wantErr: "belongs to both",
		},
		{
			name:    "empty id",
			vulns:   []Vulnerability{{ID: " "}},
			wantErr: "empty id",
		},
		{
			name:    "score out of range",
			vulns:   []Vulnerability{{ID: "CVE-2024-1", Score: f(11.0)}},
			wantErr: "score 11.00 out of range",
		},
		{
			name:    "probability out of range",
			vulns:   []Vulnerability{{ID: "CVE-2024-1", ExploitProbability: f(1.5)}},
			wantErr: "out of range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.vulns)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestIdentifiers(t *testing.T) {
	v := Vulnerability{ID: "CVE-2024-1", Aliases: []string{"OSV-1", "GHSA-c222-2222-2222"}}
	assert.Equal(t, []string{"CVE-2024-1", "OSV-1", "GHSA-c222-2222-2222"}, v.Identifiers())
}
