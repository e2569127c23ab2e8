package advisory

import (
	"encoding/json"

	"github.com/goark/go-cvss/v3/metric"
)

// Severity is a discrete level derived from a CVSS-like base score.
// The order is total: Unknown < Low < Medium < High < Critical.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = []string{"Unknown", "Low", "Medium", "High", "Critical"}

func (s Severity) String() string {
	if s < SeverityUnknown || s > SeverityCritical {
		return severityNames[SeverityUnknown]
	}
	return severityNames[s]
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range severityNames {
		if n == name {
			*s = Severity(i)
			return nil
		}
	}
	*s = SeverityUnknown
	return nil
}

// SeverityFromScore maps a numeric base score to its severity band. An
// absent score maps to Unknown. A score of exactly 0.0 is treated as
// "none" per the CVSS qualitative scale and also maps to Unknown.
func SeverityFromScore(score *float64) Severity {
	if score == nil {
		return SeverityUnknown
	}
	switch s := *score; {
	case s >= 9.0:
		return SeverityCritical
	case s >= 7.0:
		return SeverityHigh
	case s >= 4.0:
		return SeverityMedium
	case s >= 0.1:
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// ScoreFromVector decodes a CVSS v3.x vector string into its base
// score. An unrecognized vector reports ok=false so the caller can
// degrade the record's severity to Unknown instead of aborting it.
func ScoreFromVector(vector string) (float64, bool) {
	if vector == "" {
		return 0, false
	}
	bm, err := metric.NewBase().Decode(vector)
	if err != nil {
		return 0, false
	}
	return bm.Score(), true
}
