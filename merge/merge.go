// Package merge resolves which raw advisories denote the same flaw and
// reconciles each group into one canonical vulnerability.
package merge

import (
	"regexp"
	"sort"
	"strings"

	hashiver "github.com/hashicorp/go-version"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/aquasecurity/advisory-merger/advisory"
	"github.com/aquasecurity/advisory-merger/sources"
)

var (
	cveShape  = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)
	ghsaShape = regexp.MustCompile(`^GHSA(-[23456789cfghjmpqrvwx]{4}){3}$`)
)

// normalizeID puts an identifier into its canonical spelling: CVE ids
// upper-cased, GHSA ids with an upper prefix and lower suffix, anything
// else verbatim. Grouping and tie-breaking work on normalized tokens.
func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	up := strings.ToUpper(id)
	if cveShape.MatchString(up) {
		return up
	}
	if strings.HasPrefix(up, "GHSA-") {
		cand := "GHSA-" + strings.ToLower(id[len("GHSA-"):])
		if ghsaShape.MatchString(cand) {
			return cand
		}
	}
	return id
}

// Merge groups the input records by transitive identifier sharing and
// produces one canonical record per group, sorted by canonical id. The
// result is a pure function of the input multiset: any permutation of
// raws yields an identical slice.
func Merge(raws []advisory.RawAdvisory) []advisory.Vulnerability {
	uf := newUnionFind()
	index := make(map[string]int)
	intern := func(id string) int {
		if idx, ok := index[id]; ok {
			return idx
		}
		idx := uf.add()
		index[id] = idx
		return idx
	}

	type member struct {
		raw   advisory.RawAdvisory
		token int
	}
	var members []member
	for _, raw := range raws {
		if strings.TrimSpace(raw.ID) == "" {
			// already filtered by the parsers, kept as a guard
			continue
		}
		primary := intern(normalizeID(raw.ID))
		for _, alias := range raw.Aliases {
			alias = normalizeID(alias)
			if alias == "" {
				continue
			}
			uf.union(primary, intern(alias))
		}
		members = append(members, member{raw: raw, token: primary})
	}

	groupTokens := make(map[int][]string)
	for token, idx := range index {
		root := uf.find(idx)
		groupTokens[root] = append(groupTokens[root], token)
	}
	groupMembers := make(map[int][]advisory.RawAdvisory)
	for _, m := range members {
		root := uf.find(m.token)
		groupMembers[root] = append(groupMembers[root], m.raw)
	}

	out := make([]advisory.Vulnerability, 0, len(groupMembers))
	for root, recs := range groupMembers {
		out = append(out, reconcile(groupTokens[root], recs))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// reconcile collapses one merge group into its canonical record.
func reconcile(tokens []string, recs []advisory.RawAdvisory) advisory.Vulnerability {
	slices.Sort(tokens)
	canonical := canonicalID(tokens)

	aliases := make([]string, 0, len(tokens)-1)
	for _, t := range tokens {
		if t != canonical {
			aliases = append(aliases, t)
		}
	}

	// Fixed source-priority order, then id, settles every remaining tie
	// deterministically regardless of input order.
	sort.SliceStable(recs, func(i, j int) bool {
		pi, pj := sources.Precedence(recs[i].Source), sources.Precedence(recs[j].Source)
		if pi != pj {
			return pi < pj
		}
		if recs[i].ID != recs[j].ID {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].Description < recs[j].Description
	})

	var score *float64
	var description string
	refs := make(map[string]struct{})
	for _, rec := range recs {
		if rec.Score != nil && (score == nil || *rec.Score > *score) {
			s := *rec.Score
			score = &s
		}
		if d := strings.TrimSpace(rec.Description); len(d) > len(description) {
			description = d
		}
		for _, r := range rec.References {
			if r != "" {
				refs[r] = struct{}{}
			}
		}
	}
	references := maps.Keys(refs)
	slices.Sort(references)

	return advisory.Vulnerability{
		ID:          canonical,
		Aliases:     aliases,
		Score:       score,
		Severity:    advisory.SeverityFromScore(score),
		Affected:    unionAffected(recs),
		Description: description,
		References:  references,
	}
}

// canonicalID selects the group's id from its sorted token set: the
// smallest CVE-shaped token, else the smallest GHSA-shaped token, else
// the smallest token of any shape.
func canonicalID(sorted []string) string {
	for _, t := range sorted {
		if cveShape.MatchString(t) {
			return t
		}
	}
	for _, t := range sorted {
		if ghsaShape.MatchString(t) {
			return t
		}
	}
	return sorted[0]
}

// unionAffected unions affected packages across the group. Entries with
// equal (ecosystem, name) contribute to one package whose ranges are
// widened, never narrowed.
func unionAffected(recs []advisory.RawAdvisory) []advisory.AffectedPackage {
	byKey := make(map[string]*advisory.AffectedPackage)
	for _, rec := range recs {
		for _, pkg := range rec.Affected {
			if pkg.Name == "" {
				continue
			}
			existing, ok := byKey[pkg.Key()]
			if !ok {
				cp := advisory.AffectedPackage{Ecosystem: pkg.Ecosystem, Name: pkg.Name}
				byKey[pkg.Key()] = &cp
				existing = &cp
			}
			existing.Ranges = append(existing.Ranges, pkg.Ranges...)
		}
	}

	keys := maps.Keys(byKey)
	slices.Sort(keys)
	out := make([]advisory.AffectedPackage, 0, len(keys))
	for _, k := range keys {
		pkg := *byKey[k]
		pkg.Ranges = dedupRanges(pkg.Ranges)
		out = append(out, pkg)
	}
	return out
}

func dedupRanges(ranges []advisory.VersionRange) []advisory.VersionRange {
	seen := make(map[advisory.VersionRange]struct{}, len(ranges))
	out := ranges[:0]
	for _, r := range ranges {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := compareVersions(out[i].Introduced, out[j].Introduced); c != 0 {
			return c < 0
		}
		if out[i].Fixed != out[j].Fixed {
			return out[i].Fixed < out[j].Fixed
		}
		if out[i].LastAffected != out[j].LastAffected {
			return out[i].LastAffected < out[j].LastAffected
		}
		// Distinct spellings of the same version ("1.0" vs "1.0.0")
		// compare equal above; break the tie on the raw string.
		return out[i].Introduced < out[j].Introduced
	})
	return out
}

func compareVersions(a, b string) int {
	va, errA := hashiver.NewVersion(a)
	vb, errB := hashiver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return strings.Compare(a, b)
}
