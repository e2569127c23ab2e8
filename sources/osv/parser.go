// Package osv parses documents in the Open Source Vulnerability schema,
// the format of the general open vulnerability database feed.
package osv

import (
	"encoding/json"
	"fmt"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
	"github.com/aquasecurity/go-version/pkg/version"

	"github.com/aquasecurity/advisory-merger/advisory"
	"github.com/aquasecurity/advisory-merger/sources"
)

type document struct {
	Vulns []record `json:"vulns"`
}

type record struct {
	ID         string          `json:"id"`
	Withdrawn  string          `json:"withdrawn"`
	Aliases    []string        `json:"aliases"`
	Summary    string          `json:"summary"`
	Details    string          `json:"details"`
	Severity   []severityEntry `json:"severity"`
	Affected   []affected      `json:"affected"`
	References []reference     `json:"references"`
}

type severityEntry struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

type affected struct {
	Package  pkg        `json:"package"`
	Ranges   []osvRange `json:"ranges"`
	Versions []string   `json:"versions"`
}

type pkg struct {
	Ecosystem string `json:"ecosystem"`
	Name      string `json:"name"`
	Purl      string `json:"purl"`
}

type osvRange struct {
	Type   string  `json:"type"`
	Events []event `json:"events"`
}

type event struct {
	Introduced   string `json:"introduced"`
	Fixed        string `json:"fixed"`
	LastAffected string `json:"last_affected"`
	Limit        string `json:"limit"`
}

type reference struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (*Parser) Name() string { return sources.OSV }

// Parse accepts either a batch document with a "vulns" array or a
// single OSV record.
func (p *Parser) Parse(data []byte) ([]advisory.RawAdvisory, []advisory.ParseWarning, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode osv document: %w", err)
	}
	if len(doc.Vulns) == 0 {
		var single record
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, nil, fmt.Errorf("decode osv record: %w", err)
		}
		if single.ID == "" && single.Details == "" && len(single.Affected) == 0 {
			return nil, nil, nil
		}
		doc.Vulns = []record{single}
	}

	var raws []advisory.RawAdvisory
	var warnings []advisory.ParseWarning
	for _, rec := range doc.Vulns {
		if strings.TrimSpace(rec.ID) == "" {
			warnings = append(warnings, advisory.ParseWarning{
				Source:  sources.OSV,
				Message: "record without id dropped",
			})
			continue
		}
		if rec.Withdrawn != "" {
			warnings = append(warnings, advisory.ParseWarning{
				Source:  sources.OSV,
				Ref:     rec.ID,
				Message: fmt.Sprintf("withdrawn %s, skipped", rec.Withdrawn),
			})
			continue
		}
		raw, warns := convert(rec)
		raws = append(raws, raw)
		warnings = append(warnings, warns...)
	}
	return raws, warnings, nil
}

func convert(rec record) (advisory.RawAdvisory, []advisory.ParseWarning) {
	var warnings []advisory.ParseWarning

	var score *float64
	var vector string
	for _, sev := range rec.Severity {
		if !strings.HasPrefix(sev.Type, "CVSS_V3") {
			continue
		}
		s, ok := advisory.ScoreFromVector(sev.Score)
		if !ok {
			warnings = append(warnings, advisory.ParseWarning{
				Source:  sources.OSV,
				Ref:     rec.ID,
				Message: fmt.Sprintf("unrecognized severity vector %q, severity degraded", sev.Score),
			})
			continue
		}
		if score == nil || s > *score {
			score = &s
			vector = sev.Score
		}
	}

	var packages []advisory.AffectedPackage
	for _, aff := range rec.Affected {
		if aff.Package.Name == "" {
			continue
		}
		pkg := advisory.AffectedPackage{
			Ecosystem: aff.Package.Ecosystem,
			Name:      aff.Package.Name,
		}
		for _, r := range aff.Ranges {
			pkg.Ranges = append(pkg.Ranges, foldEvents(aff.Package.Ecosystem, r.Events)...)
		}
		for _, v := range aff.Versions {
			v = normalizeVersion(aff.Package.Ecosystem, v)
			pkg.Ranges = append(pkg.Ranges, advisory.VersionRange{Introduced: v, LastAffected: v})
		}
		packages = append(packages, pkg)
	}

	description := rec.Details
	if strings.TrimSpace(description) == "" {
		description = rec.Summary
	}

	var refs []string
	for _, r := range rec.References {
		if r.URL != "" {
			refs = append(refs, r.URL)
		}
	}

	return advisory.RawAdvisory{
		Source:      sources.OSV,
		ID:          rec.ID,
		Aliases:     rec.Aliases,
		Score:       score,
		Vector:      vector,
		Affected:    packages,
		Description: description,
		References:  refs,
	}, warnings
}

// foldEvents walks a range's event timeline: an "introduced" event
// opens a range, the next "fixed" or "last_affected" event closes it.
// A trailing open range means affected with no known upper bound and is
// kept as-is.
func foldEvents(ecosystem string, events []event) []advisory.VersionRange {
	var ranges []advisory.VersionRange
	var cur *advisory.VersionRange
	for _, ev := range events {
		switch {
		case ev.Introduced != "":
			if cur != nil {
				ranges = append(ranges, *cur)
			}
			cur = &advisory.VersionRange{Introduced: normalizeVersion(ecosystem, ev.Introduced)}
		case ev.Fixed != "":
			if cur == nil {
				cur = &advisory.VersionRange{}
			}
			cur.Fixed = normalizeVersion(ecosystem, ev.Fixed)
			ranges = append(ranges, *cur)
			cur = nil
		case ev.LastAffected != "":
			if cur == nil {
				cur = &advisory.VersionRange{}
			}
			cur.LastAffected = normalizeVersion(ecosystem, ev.LastAffected)
			ranges = append(ranges, *cur)
			cur = nil
		}
	}
	if cur != nil && *cur != (advisory.VersionRange{}) {
		ranges = append(ranges, *cur)
	}
	return ranges
}

// normalizeVersion standardizes a version string for its ecosystem.
// PyPI versions go through PEP 440 normalization, everything else is
// validated as SemVer; values that fail to parse are kept verbatim so
// a sloppy feed still widens, never narrows, the affected range.
func normalizeVersion(ecosystem, v string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == "0" {
		return v
	}
	if strings.EqualFold(ecosystem, "PyPI") {
		if pv, err := pep440.Parse(v); err == nil {
			return pv.String()
		}
		return v
	}
	if sv, err := version.Parse(strings.TrimPrefix(v, "v")); err == nil {
		return sv.String()
	}
	return v
}
