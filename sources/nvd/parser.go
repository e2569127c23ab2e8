// Package nvd parses the national vulnerability database feed in the
// NVD CVE API 2.0 JSON shape.
package nvd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aquasecurity/advisory-merger/advisory"
	"github.com/aquasecurity/advisory-merger/sources"
)

type document struct {
	Vulnerabilities []struct {
		CVE cveItem `json:"cve"`
	} `json:"vulnerabilities"`
}

type cveItem struct {
	ID             string          `json:"id"`
	VulnStatus     string          `json:"vulnStatus"`
	Descriptions   []langValue     `json:"descriptions"`
	Metrics        metrics         `json:"metrics"`
	References     []refEntry      `json:"references"`
	Configurations []configuration `json:"configurations"`
}

type langValue struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type refEntry struct {
	URL string `json:"url"`
}

type metrics struct {
	CvssMetricV31 []cvssMetric `json:"cvssMetricV31"`
	CvssMetricV30 []cvssMetric `json:"cvssMetricV30"`
	CvssMetricV2  []cvssMetric `json:"cvssMetricV2"`
}

type cvssMetric struct {
	Type     string   `json:"type"`
	CvssData cvssData `json:"cvssData"`
}

type cvssData struct {
	VectorString string  `json:"vectorString"`
	BaseScore    float64 `json:"baseScore"`
}

type configuration struct {
	Nodes []node `json:"nodes"`
}

type node struct {
	CpeMatch []cpeMatch `json:"cpeMatch"`
}

type cpeMatch struct {
	Vulnerable            bool   `json:"vulnerable"`
	Criteria              string `json:"criteria"`
	VersionStartIncluding string `json:"versionStartIncluding"`
	VersionEndIncluding   string `json:"versionEndIncluding"`
	VersionEndExcluding   string `json:"versionEndExcluding"`
}

type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (*Parser) Name() string { return sources.NVD }

func (p *Parser) Parse(data []byte) ([]advisory.RawAdvisory, []advisory.ParseWarning, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode nvd document: %w", err)
	}

	var raws []advisory.RawAdvisory
	var warnings []advisory.ParseWarning
	for _, v := range doc.Vulnerabilities {
		cve := v.CVE
		if strings.TrimSpace(cve.ID) == "" {
			warnings = append(warnings, advisory.ParseWarning{
				Source:  sources.NVD,
				Message: "record without id dropped",
			})
			continue
		}
		if strings.EqualFold(cve.VulnStatus, "Rejected") {
			warnings = append(warnings, advisory.ParseWarning{
				Source:  sources.NVD,
				Ref:     cve.ID,
				Message: "rejected by the naming authority, skipped",
			})
			continue
		}

		score, vector, warn := pickMetric(cve)
		if warn != "" {
			warnings = append(warnings, advisory.ParseWarning{Source: sources.NVD, Ref: cve.ID, Message: warn})
		}

		var refs []string
		for _, r := range cve.References {
			if r.URL != "" {
				refs = append(refs, r.URL)
			}
		}

		raws = append(raws, advisory.RawAdvisory{
			Source:      sources.NVD,
			ID:          cve.ID,
			Score:       score,
			Vector:      vector,
			Affected:    affectedFromConfigurations(cve.Configurations),
			Description: englishDescription(cve.Descriptions),
			References:  refs,
		})
	}
	return raws, warnings, nil
}

// pickMetric selects the best published metric: v3.1 over v3.0 over v2,
// and the Primary entry within a metric list when one exists. A metric
// whose score is absent but whose vector decodes still yields a score;
// an entry that provides neither degrades the record to unknown
// severity with a warning.
func pickMetric(cve cveItem) (*float64, string, string) {
	for _, list := range [][]cvssMetric{cve.Metrics.CvssMetricV31, cve.Metrics.CvssMetricV30, cve.Metrics.CvssMetricV2} {
		if len(list) == 0 {
			continue
		}
		m := list[0]
		for _, cand := range list {
			if cand.Type == "Primary" {
				m = cand
				break
			}
		}
		if m.CvssData.BaseScore > 0 {
			s := m.CvssData.BaseScore
			return &s, m.CvssData.VectorString, ""
		}
		if s, ok := advisory.ScoreFromVector(m.CvssData.VectorString); ok {
			return &s, m.CvssData.VectorString, ""
		}
		return nil, "", fmt.Sprintf("unusable metric %q, severity degraded", m.CvssData.VectorString)
	}
	return nil, "", ""
}

func englishDescription(descs []langValue) string {
	for _, d := range descs {
		if d.Lang == "en" {
			return d.Value
		}
	}
	if len(descs) > 0 {
		return descs[0].Value
	}
	return ""
}

// affectedFromConfigurations derives packages from the vulnerable CPE
// matches. A cpe:2.3 criteria string carries vendor and product in its
// fourth and fifth fields; the vendor stands in for the ecosystem.
func affectedFromConfigurations(configs []configuration) []advisory.AffectedPackage {
	byKey := make(map[string]*advisory.AffectedPackage)
	var order []string
	for _, cfg := range configs {
		for _, n := range cfg.Nodes {
			for _, m := range n.CpeMatch {
				if !m.Vulnerable {
					continue
				}
				vendor, product, cpeVersion, ok := splitCriteria(m.Criteria)
				if !ok {
					continue
				}
				pkg, exists := byKey[vendor+"/"+product]
				if !exists {
					pkg = &advisory.AffectedPackage{Ecosystem: vendor, Name: product}
					byKey[vendor+"/"+product] = pkg
					order = append(order, vendor+"/"+product)
				}
				if vr, ok := rangeFromMatch(m, cpeVersion); ok {
					pkg.Ranges = append(pkg.Ranges, vr)
				}
			}
		}
	}
	out := make([]advisory.AffectedPackage, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out
}

func splitCriteria(criteria string) (vendor, product, version string, ok bool) {
	parts := strings.Split(criteria, ":")
	// cpe:2.3:part:vendor:product:version:...
	if len(parts) < 6 || parts[0] != "cpe" {
		return "", "", "", false
	}
	return parts[3], parts[4], parts[5], true
}

func rangeFromMatch(m cpeMatch, cpeVersion string) (advisory.VersionRange, bool) {
	if cpeVersion != "*" && cpeVersion != "-" && cpeVersion != "" {
		return advisory.VersionRange{Introduced: cpeVersion, LastAffected: cpeVersion}, true
	}
	vr := advisory.VersionRange{
		Introduced:   m.VersionStartIncluding,
		Fixed:        m.VersionEndExcluding,
		LastAffected: m.VersionEndIncluding,
	}
	if vr == (advisory.VersionRange{}) {
		return advisory.VersionRange{}, false
	}
	return vr, true
}
