// Package sources defines the feed-parser contract shared by the three
// advisory feeds and the fixed precedence the merge engine uses to
// break exact ties between them.
package sources

import (
	"github.com/aquasecurity/advisory-merger/advisory"
)

// Feed names. These are the values parsers stamp into
// advisory.RawAdvisory.Source.
const (
	OSV  = "osv"
	NVD  = "nvd"
	GHSA = "ghsa"
)

// Parser turns one feed document into intermediate records. A non-nil
// error means the document as a whole is undecodable; per-record
// problems come back as warnings with the records that did parse.
type Parser interface {
	Name() string
	Parse(data []byte) ([]advisory.RawAdvisory, []advisory.ParseWarning, error)
}

// Document pairs raw feed bytes with the feed they came from. Path is
// only a hint for warnings.
type Document struct {
	Source string
	Path   string
	Data   []byte
}

// Precedence ranks sources for tie-breaking during merge: the national
// database wins over the advisory feed, which wins over the general
// database. Lower is stronger. Precedence never overrides a strictly
// better value from a weaker source; it only settles exact ties.
func Precedence(source string) int {
	switch source {
	case NVD:
		return 0
	case GHSA:
		return 1
	case OSV:
		return 2
	default:
		return 3
	}
}
