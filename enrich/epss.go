package enrich

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// ProbabilityTable maps an upper-cased CVE-form identifier to a
// published exploit probability in [0, 1].
type ProbabilityTable map[string]float64

// LoadProbabilityTable reads the exploit-probability feed, a CSV of
// cve,score,percentile rows with '#' comment lines. Rows with an
// unparseable or out-of-range score are skipped; a document that is not
// CSV at all is an error the caller degrades on.
func LoadProbabilityTable(data []byte) (ProbabilityTable, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comment = '#'
	r.FieldsPerRecord = -1

	table := make(ProbabilityTable)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xerrors.Errorf("decode probability table: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		id := strings.ToUpper(strings.TrimSpace(row[0]))
		if id == "" || id == "CVE" {
			// header row
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil || score < 0.0 || score > 1.0 {
			continue
		}
		table[id] = score
	}
	return table, nil
}

// Lookup checks the given identifiers against the table in order; the
// first hit wins. See ExploitedCatalog.Lookup for the ordering
// contract.
func (t ProbabilityTable) Lookup(ids []string) (float64, bool) {
	for _, id := range ids {
		if p, ok := t[id]; ok {
			return p, true
		}
	}
	return 0, false
}
