// Package ghsa parses the GitHub-style security-advisory feed.
package ghsa

import (
	"encoding/json"
	"fmt"
	"strings"

	hashiver "github.com/hashicorp/go-version"

	"github.com/aquasecurity/advisory-merger/advisory"
	"github.com/aquasecurity/advisory-merger/markdown"
	"github.com/aquasecurity/advisory-merger/sources"
)

type document struct {
	Advisories []record `json:"advisories"`
}

type record struct {
	GhsaID          string       `json:"ghsa_id"`
	CveID           string       `json:"cve_id"`
	Summary         string       `json:"summary"`
	Description     string       `json:"description"`
	Severity        string       `json:"severity"`
	CVSS            cvss         `json:"cvss"`
	Identifiers     []identifier `json:"identifiers"`
	References      []string     `json:"references"`
	Withdrawn       string       `json:"withdrawn_at"`
	Vulnerabilities []vulnEntry  `json:"vulnerabilities"`
}

type cvss struct {
	VectorString string  `json:"vector_string"`
	Score        float64 `json:"score"`
}

type identifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type vulnEntry struct {
	Package                pkg    `json:"package"`
	VulnerableVersionRange string `json:"vulnerable_version_range"`
}

type pkg struct {
	Ecosystem string `json:"ecosystem"`
	Name      string `json:"name"`
}

type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (*Parser) Name() string { return sources.GHSA }

// Parse accepts either a batch document with an "advisories" array or a
// single advisory object.
func (p *Parser) Parse(data []byte) ([]advisory.RawAdvisory, []advisory.ParseWarning, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode ghsa document: %w", err)
	}
	if len(doc.Advisories) == 0 {
		var single record
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, nil, fmt.Errorf("decode ghsa advisory: %w", err)
		}
		if single.GhsaID == "" && single.Summary == "" {
			return nil, nil, nil
		}
		doc.Advisories = []record{single}
	}

	var raws []advisory.RawAdvisory
	var warnings []advisory.ParseWarning
	for _, rec := range doc.Advisories {
		if strings.TrimSpace(rec.GhsaID) == "" {
			warnings = append(warnings, advisory.ParseWarning{
				Source:  sources.GHSA,
				Message: "advisory without ghsa_id dropped",
			})
			continue
		}
		if rec.Withdrawn != "" {
			warnings = append(warnings, advisory.ParseWarning{
				Source:  sources.GHSA,
				Ref:     rec.GhsaID,
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
	switch {
	case rec.CVSS.Score > 0:
		s := rec.CVSS.Score
		score = &s
		vector = rec.CVSS.VectorString
	case rec.CVSS.VectorString != "":
		if s, ok := advisory.ScoreFromVector(rec.CVSS.VectorString); ok {
			score = &s
			vector = rec.CVSS.VectorString
		} else {
			warnings = append(warnings, advisory.ParseWarning{
				Source:  sources.GHSA,
				Ref:     rec.GhsaID,
				Message: fmt.Sprintf("unrecognized cvss vector %q, severity degraded", rec.CVSS.VectorString),
			})
		}
	}

	aliases := collectAliases(rec)

	var packages []advisory.AffectedPackage
	for _, v := range rec.Vulnerabilities {
		if v.Package.Name == "" {
			continue
		}
		pkg := advisory.AffectedPackage{
			Ecosystem: strings.ToLower(v.Package.Ecosystem),
			Name:      v.Package.Name,
		}
		vr, ok := parseVersionRange(v.VulnerableVersionRange)
		if ok {
			pkg.Ranges = append(pkg.Ranges, vr)
		}
		packages = append(packages, pkg)
	}

	description := markdown.Plain(rec.Description)
	if description == "" {
		description = rec.Summary
	}

	return advisory.RawAdvisory{
		Source:      sources.GHSA,
		ID:          rec.GhsaID,
		Aliases:     aliases,
		Score:       score,
		Vector:      vector,
		Affected:    packages,
		Description: description,
		References:  rec.References,
	}, warnings
}

func collectAliases(rec record) []string {
	seen := map[string]struct{}{rec.GhsaID: {}}
	var aliases []string
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		aliases = append(aliases, id)
	}
	add(rec.CveID)
	for _, ident := range rec.Identifiers {
		add(ident.Value)
	}
	return aliases
}

// parseVersionRange turns a textual constraint list like
// ">= 4.0.0, < 4.3.12" into a version range. Terms that do not carry a
// parseable version are ignored; an empty result drops the range, not
// the package.
func parseVersionRange(s string) (advisory.VersionRange, bool) {
	var vr advisory.VersionRange
	for _, term := range strings.Split(s, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		op, ver := splitTerm(term)
		if _, err := hashiver.NewVersion(ver); err != nil {
			continue
		}
		switch op {
		case ">=", ">":
			vr.Introduced = ver
		case "<":
			vr.Fixed = ver
		case "<=":
			vr.LastAffected = ver
		case "=", "":
			vr.Introduced = ver
			vr.LastAffected = ver
		}
	}
	if vr == (advisory.VersionRange{}) {
		return vr, false
	}
	// An open lower bound means affected since the beginning.
	if vr.Introduced == "" {
		vr.Introduced = "0"
	}
	return vr, true
}

func splitTerm(term string) (op, ver string) {
	for _, candidate := range []string{">=", "<=", ">", "<", "="} {
		if strings.HasPrefix(term, candidate) {
			return candidate, strings.TrimSpace(strings.TrimPrefix(term, candidate))
		}
	}
	return "", strings.TrimSpace(term)
}
