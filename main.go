package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/aquasecurity/advisory-merger/advisory"
	"github.com/aquasecurity/advisory-merger/enrich"
	"github.com/aquasecurity/advisory-merger/merge"
	"github.com/aquasecurity/advisory-merger/sources"
	"github.com/aquasecurity/advisory-merger/sources/ghsa"
	"github.com/aquasecurity/advisory-merger/sources/nvd"
	"github.com/aquasecurity/advisory-merger/sources/osv"
)

var (
	dir      = flag.String("dir", "advisories", "advisory mirror directory with osv/, nvd/ and ghsa/ subdirectories")
	kevPath  = flag.String("kev", "", "exploited-catalog document (optional)")
	epssPath = flag.String("epss", "", "exploit-probability document (optional)")
	output   = flag.String("o", "", "output file (default stdout)")
	workers  = flag.Int("workers", 0, "parse workers (default GOMAXPROCS)")
	validate = flag.Bool("validate", false, "validate the canonical set before writing")
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	flag.Parse()
	fs := afero.NewOsFs()

	docs, err := loadDocuments(fs, *dir)
	if err != nil {
		return fmt.Errorf("load advisory documents: %w", err)
	}
	log.Infof("loaded %d advisory documents from %s", len(docs), *dir)

	parsers := map[string]sources.Parser{
		sources.OSV:  osv.NewParser(),
		sources.NVD:  nvd.NewParser(),
		sources.GHSA: ghsa.NewParser(),
	}
	raws, warnings := sources.ParseAll(context.Background(), parsers, docs, *workers)
	for _, w := range warnings {
		log.Warn(w.String())
	}
	log.Infof("parsed %d raw advisories (%d warnings)", len(raws), len(warnings))

	catalog := loadCatalog(fs, *kevPath)
	probs := loadProbabilities(fs, *epssPath)

	vulns := merge.MergeAndClassify(raws, catalog, probs)
	log.Infof("merged into %d canonical vulnerabilities", len(vulns))

	if *validate {
		if err := advisory.Validate(vulns); err != nil {
			return fmt.Errorf("canonical set failed validation: %w", err)
		}
	}

	data, err := json.MarshalIndent(vulns, "", "  ")
	if err != nil {
		return err
	}
	if *output == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return afero.WriteFile(fs, *output, data, 0644)
}

// loadDocuments walks the per-source subdirectories of the synced
// advisory mirror. Retrieval itself happens out of process; this only
// reads what the sync step left behind.
func loadDocuments(fs afero.Fs, root string) ([]sources.Document, error) {
	var docs []sources.Document
	var result error
	for _, source := range []string{sources.OSV, sources.NVD, sources.GHSA} {
		subdir := filepath.Join(root, source)
		infos, err := afero.ReadDir(fs, subdir)
		if err != nil {
			if os.IsNotExist(err) {
				log.Debugf("no %s directory under %s", source, root)
				continue
			}
			result = multierror.Append(result, err)
			continue
		}
		for _, info := range infos {
			if info.IsDir() || filepath.Ext(info.Name()) != ".json" {
				continue
			}
			path := filepath.Join(subdir, info.Name())
			data, err := afero.ReadFile(fs, path)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			docs = append(docs, sources.Document{Source: source, Path: path, Data: data})
		}
	}
	return docs, result
}

// loadCatalog degrades to a nil table on any failure: classification
// still runs, with the documented consequence that the exploited path
// to P0 is unreachable for this cycle.
func loadCatalog(fs afero.Fs, path string) enrich.ExploitedCatalog {
	if path == "" {
		return nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		log.Warnf("exploited catalog unavailable, proceeding without it: %v", err)
		return nil
	}
	catalog, err := enrich.LoadExploitedCatalog(data)
	if err != nil {
		log.Warnf("exploited catalog malformed, proceeding without it: %v", err)
		return nil
	}
	log.Infof("exploited catalog: %d entries", len(catalog))
	return catalog
}

func loadProbabilities(fs afero.Fs, path string) enrich.ProbabilityTable {
	if path == "" {
		return nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		log.Warnf("probability table unavailable, proceeding without it: %v", err)
		return nil
	}
	table, err := enrich.LoadProbabilityTable(data)
	if err != nil {
		log.Warnf("probability table malformed, proceeding without it: %v", err)
		return nil
	}
	log.Infof("probability table: %d entries", len(table))
	return table
}
