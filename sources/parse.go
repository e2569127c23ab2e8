package sources

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aquasecurity/advisory-merger/advisory"
)

// ParseAll runs every document through the parser registered for its
// source, fanning the work out over a bounded pool. Output order is not
// defined; the merge engine is commutative over its input multiset, so
// callers must not rely on it. A document whose source has no parser,
// or which is wholly undecodable, becomes a warning rather than failing
// the batch.
func ParseAll(ctx context.Context, parsers map[string]Parser, docs []Document, workers int) ([]advisory.RawAdvisory, []advisory.ParseWarning) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		mu       sync.Mutex
		raws     []advisory.RawAdvisory
		warnings []advisory.ParseWarning
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, ok := parsers[doc.Source]
			if !ok {
				mu.Lock()
				warnings = append(warnings, advisory.ParseWarning{
					Source:  doc.Source,
					Ref:     doc.Path,
					Message: "no parser registered for source",
				})
				mu.Unlock()
				return nil
			}
			recs, warns, err := p.Parse(doc.Data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				warnings = append(warnings, advisory.ParseWarning{
					Source:  doc.Source,
					Ref:     doc.Path,
					Message: fmt.Sprintf("undecodable document: %v", err),
				})
				return nil
			}
			raws = append(raws, recs...)
			warnings = append(warnings, warns...)
			return nil
		})
	}
	// The workers only return the context error, which means the caller
	// cancelled and already knows.
	_ = g.Wait()
	return raws, warnings
}
