package mongoidx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/mongoidx/internal/discover"
	"github.com/jward/mongoidx/internal/ruby"
	"github.com/jward/mongoidx/internal/store"
)

// Stats summarizes one indexing run.
type Stats struct {
	Indexed int // files parsed and committed
	Skipped int // unchanged since the last run
	Removed int // previously indexed files no longer on disk
	Failed  int
}

// Indexer drives the host walk over a project into the SQLite store.
type Indexer struct {
	store     *store.Store
	walker    *ruby.Walker
	logger    *slog.Logger
	languages []string
	workers   int
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithIndexLogger sets the logger for per-file failures.
func WithIndexLogger(l *slog.Logger) IndexerOption {
	return func(ix *Indexer) { ix.logger = l }
}

// WithLanguages restricts discovery to the named languages.
func WithLanguages(languages ...string) IndexerOption {
	return func(ix *Indexer) { ix.languages = languages }
}

// WithWorkers bounds the number of files parsed concurrently. Values below
// one select the number of CPUs; one selects the serial path.
func WithWorkers(n int) IndexerOption {
	return func(ix *Indexer) { ix.workers = n }
}

// NewIndexer returns an Indexer committing w's output into s.
func NewIndexer(s *store.Store, w *ruby.Walker, opts ...IndexerOption) *Indexer {
	ix := &Indexer{store: s, walker: w, logger: slog.Default()}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// IndexDirectory indexes every Ruby file under root, honouring git's ignore
// rules, plus every Ruby file under each library path regardless of ignore
// rules. Files previously indexed under root that no longer exist are
// removed from the store.
func (ix *Indexer) IndexDirectory(ctx context.Context, root string, libraries ...string) (Stats, error) {
	var stats Stats

	root, err := filepath.Abs(root)
	if err != nil {
		return stats, fmt.Errorf("mongoidx: %w", err)
	}
	files, err := discover.Files(root, discover.WithLanguages(ix.languages...))
	if err != nil {
		return stats, fmt.Errorf("mongoidx: discover %s: %w", root, err)
	}
	for _, lib := range libraries {
		libFiles, err := discover.Files(lib, discover.WithLanguages(ix.languages...), discover.WithIgnored())
		if err != nil {
			return stats, fmt.Errorf("mongoidx: discover %s: %w", lib, err)
		}
		files = append(files, libFiles...)
	}

	paths := make([]string, len(files))
	present := make(map[string]bool, len(files))
	for i, f := range files {
		paths[i] = f.Path
		present[discover.URI(f.Path)] = true
	}

	removed, err := ix.prune(root, present)
	if err != nil {
		return stats, err
	}

	stats, err = ix.IndexFiles(ctx, paths)
	stats.Removed = removed
	return stats, err
}

// prune deletes stored files under root that discovery no longer returns.
func (ix *Indexer) prune(root string, present map[string]bool) (int, error) {
	known, err := ix.store.Files()
	if err != nil {
		return 0, fmt.Errorf("mongoidx: list files: %w", err)
	}
	prefix := discover.URI(root)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	removed := 0
	for _, f := range known {
		if !strings.HasPrefix(f.URI, prefix) || present[f.URI] {
			continue
		}
		if err := ix.store.DeleteFile(f.URI); err != nil {
			return removed, fmt.Errorf("mongoidx: remove %s: %w", f.URI, err)
		}
		removed++
	}
	return removed, nil
}

// IndexFiles indexes the given paths. Unchanged files (same content hash)
// are skipped. Errors on individual files are logged and counted;
// processing continues.
func (ix *Indexer) IndexFiles(ctx context.Context, paths []string) (Stats, error) {
	if ix.workers == 1 {
		return ix.indexFilesSerial(ctx, paths)
	}
	return ix.indexFilesParallel(ctx, paths)
}

func (ix *Indexer) indexFilesSerial(ctx context.Context, paths []string) (Stats, error) {
	var stats Stats
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		item, skip, err := ix.prepareFile(path)
		if err != nil {
			ix.fail(&stats, path, err)
			continue
		}
		if skip {
			stats.Skipped++
			continue
		}
		if err := ix.extract(ctx, item); err != nil {
			ix.fail(&stats, path, err)
			continue
		}
		if err := item.batch.Commit(item.hash); err != nil {
			ix.fail(&stats, path, err)
			continue
		}
		stats.Indexed++
	}
	return stats, nil
}

func (ix *Indexer) fail(stats *Stats, path string, err error) {
	stats.Failed++
	ix.logger.Warn("mongoidx: index file failed", "path", path, "error", err)
}

// workItem holds everything a worker needs to index one file.
type workItem struct {
	path  string
	uri   string
	hash  string
	src   []byte
	batch *store.Batch
}

// prepareFile reads path and reports skip=true when it is unsupported or
// unchanged since the last commit.
func (ix *Indexer) prepareFile(path string) (workItem, bool, error) {
	if _, ok := ruby.LanguageForFile(path); !ok {
		return workItem{}, true, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	uri := discover.URI(path)
	hash := store.ContentHash(src)

	unchanged, err := ix.store.Unchanged(uri, hash)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if unchanged {
		return workItem{}, true, nil
	}
	return workItem{
		path:  path,
		uri:   uri,
		hash:  hash,
		src:   src,
		batch: ix.store.NewBatch(uri),
	}, false, nil
}

func (ix *Indexer) extract(ctx context.Context, item workItem) error {
	if err := ix.walker.IndexSource(ctx, item.batch, item.uri, item.src); err != nil {
		return fmt.Errorf("walk: %w", err)
	}
	return nil
}
