package advisory

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/aquasecurity/advisory-merger/triage"
)

// Vulnerability is the canonical record produced for one merge group.
// The whole set is rebuilt from scratch on every merge invocation.
type Vulnerability struct {
	ID                 string            `json:"id"`
	Aliases            []string          `json:"aliases,omitempty"`
	Score              *float64          `json:"score,omitempty"`
	Severity           Severity          `json:"severity"`
	Affected           []AffectedPackage `json:"affected,omitempty"`
	Description        string            `json:"description,omitempty"`
	References         []string          `json:"references,omitempty"`
	Exploited          bool              `json:"exploited"`
	ExploitProbability *float64          `json:"exploit_probability,omitempty"`
	Priority           triage.Priority   `json:"priority"`
}

// Identifiers returns {ID} ∪ Aliases.
func (v Vulnerability) Identifiers() []string {
	ids := make([]string, 0, len(v.Aliases)+1)
	ids = append(ids, v.ID)
	ids = append(ids, v.Aliases...)
	return ids
}

// Validate checks the structural invariants of a canonical set: no
// record aliases itself, no identifier belongs to two records, and
// numeric fields stay inside their published ranges. Problems are
// accumulated, not short-circuited.
func Validate(vulns []Vulnerability) error {
	var result error
	owner := make(map[string]string)
	for _, v := range vulns {
		if strings.TrimSpace(v.ID) == "" {
			result = multierror.Append(result, fmt.Errorf("record with empty id (aliases %v)", v.Aliases))
			continue
		}
		for _, id := range v.Identifiers() {
			if prev, ok := owner[id]; ok && prev != v.ID {
				result = multierror.Append(result, fmt.Errorf("identifier %s belongs to both %s and %s", id, prev, v.ID))
			}
			owner[id] = v.ID
		}
		for _, a := range v.Aliases {
			if a == v.ID {
				result = multierror.Append(result, fmt.Errorf("%s lists itself as an alias", v.ID))
			}
		}
		if v.Score != nil && (*v.Score < 0.0 || *v.Score > 10.0) {
			result = multierror.Append(result, fmt.Errorf("%s score %.2f out of range", v.ID, *v.Score))
		}
		if v.ExploitProbability != nil && (*v.ExploitProbability < 0.0 || *v.ExploitProbability > 1.0) {
			result = multierror.Append(result, fmt.Errorf("%s exploit probability %.4f out of range", v.ID, *v.ExploitProbability))
		}
	}
	return result
}
