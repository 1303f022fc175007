package mongoidx

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// indexFilesParallel runs a three-phase pipeline:
//
//	Phase A (serial):   read, hash, skip unchanged files.
//	Phase B (parallel): parse and synthesize, each file into its own batch.
//	Phase C (serial):   commit batches to SQLite in completion order.
func (ix *Indexer) indexFilesParallel(ctx context.Context, paths []string) (Stats, error) {
	var stats Stats

	// ---- Phase A: Serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, skip, err := ix.prepareFile(path)
		if err != nil {
			ix.fail(&stats, path, err)
			continue
		}
		if skip {
			stats.Skipped++
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return stats, nil
	}

	// ---- Phase B: Parallel extraction ----
	numWorkers := ix.workers
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(1, min(numWorkers, len(items)))

	type result struct {
		item workItem
		err  error
	}
	resultCh := make(chan result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	go func() {
		for _, item := range items {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				resultCh <- result{item: item, err: ix.extract(gctx, item)}
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	for res := range resultCh {
		if res.err != nil {
			ix.fail(&stats, res.item.path, res.err)
			continue
		}
		if err := res.item.batch.Commit(res.item.hash); err != nil {
			ix.fail(&stats, res.item.path, fmt.Errorf("commit: %w", err))
			continue
		}
		stats.Indexed++
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}
