// Package triage computes the discrete urgency tier of a reconciled
// vulnerability. Classify is the only place a priority is ever derived.
package triage

import "encoding/json"

// Priority is an ordered urgency tier. P0 is the most urgent.
type Priority int

const (
	P0 Priority = iota
	P1
	P2
	P3
	P4
)

var priorityNames = []string{"P0", "P1", "P2", "P3", "P4"}

func (p Priority) String() string {
	if p < P0 || p > P4 {
		return priorityNames[P4]
	}
	return priorityNames[p]
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for i, n := range priorityNames {
		if n == name {
			*p = Priority(i)
			return nil
		}
	}
	*p = P4
	return nil
}

// Classify maps a reconciled score, the exploited-catalog flag and the
// exploit probability to a priority tier.
//
// The cases form an ordered decision chain; a later case is reachable
// only when every earlier condition is false, and that order is part of
// the contract. A nil score fails every comparison (it is not zero). A
// nil probability compares as 0.0 so that absence of enrichment data
// can never raise a tier.
func Classify(score *float64, exploited bool, probability *float64) Priority {
	var s float64
	hasScore := score != nil
	if hasScore {
		s = *score
	}
	var p float64
	if probability != nil {
		p = *probability
	}

	switch {
	case (exploited && hasScore && s >= 7.0) || (hasScore && s >= 9.0) || p >= 0.9:
		return P0
	case hasScore && s >= 7.0 && (exploited || p >= 0.5):
		return P1
	case (hasScore && s >= 7.0) || (hasScore && s >= 4.0 && p >= 0.1):
		return P2
	case hasScore && s >= 4.0:
		return P3
	default:
		return P4
	}
}
