package advisory

import "fmt"

// RawAdvisory is one source's view of one vulnerability, produced by a
// feed parser and consumed once by the merge engine. It is never
// persisted by this module.
type RawAdvisory struct {
	Source      string
	ID          string
	Aliases     []string
	Score       *float64
	Vector      string
	Affected    []AffectedPackage
	Description string
	References  []string
}

// AffectedPackage identifies a package by (ecosystem, name). Version
// ranges contributed by different sources for the same package are
// unioned, never intersected.
type AffectedPackage struct {
	Ecosystem string         `json:"ecosystem,omitempty"`
	Name      string         `json:"name"`
	Ranges    []VersionRange `json:"ranges,omitempty"`
}

// Key returns the deduplication identity of the package.
func (p AffectedPackage) Key() string {
	return p.Ecosystem + "/" + p.Name
}

type VersionRange struct {
	Introduced   string `json:"introduced,omitempty"`
	Fixed        string `json:"fixed,omitempty"`
	LastAffected string `json:"last_affected,omitempty"`
}

// ParseWarning reports a single malformed record inside an otherwise
// valid feed document. It is collected, not raised; one bad record must
// never discard the rest of the document.
type ParseWarning struct {
	Source  string
	Ref     string
	Message string
}

func (w ParseWarning) String() string {
	if w.Ref == "" {
		return fmt.Sprintf("%s: %s", w.Source, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Source, w.Ref, w.Message)
}
