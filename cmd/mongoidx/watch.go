package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/cobra"

	"github.com/jward/mongoidx"
	"github.com/jward/mongoidx/internal/discover"
	"github.com/jward/mongoidx/internal/reconcile"
	"github.com/jward/mongoidx/internal/ruby"
	"github.com/jward/mongoidx/internal/store"
)

func (c *cli) runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	p, err := c.loadProject(targetDir)
	if err != nil {
		return err
	}
	s, err := openStore(p.dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	logger := c.logger()
	stats, updated, err := c.indexAndReconcile(ctx, p, s, logger, targetDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stderr, "Indexed %s (%d parsed, %d unchanged; %d signatures updated). Watching for changes...\n",
		targetDir, stats.Indexed, stats.Skipped, updated)

	gi, _ := ignore.CompileIgnoreFile(filepath.Join(targetDir, ".gitignore"))
	w := &watcher{cli: c, project: p, store: s, logger: logger}
	return watchTree(ctx, targetDir, c.flagDebounce, gi, func(paths []string) {
		if err := w.apply(ctx, paths); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("mongoidx: re-index failed", "error", err)
		}
	})
}

// watcher re-indexes changed files and re-runs reconciliation so new
// placeholders pick up library signatures.
type watcher struct {
	cli     *cli
	project *project
	store   *store.Store
	logger  *slog.Logger
}

func (w *watcher) apply(ctx context.Context, paths []string) error {
	var changed []string
	removed := 0
	for _, path := range paths {
		if _, ok := ruby.LanguageForFile(path); !ok {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := w.store.DeleteFile(discover.URI(path)); err != nil {
				return err
			}
			removed++
			continue
		}
		changed = append(changed, path)
	}
	if len(changed) == 0 && removed == 0 {
		return nil
	}

	addon := w.project.addon(w.store, w.logger)
	ix := mongoidx.NewIndexer(w.store, addon.Walker(),
		mongoidx.WithIndexLogger(w.logger),
		mongoidx.WithWorkers(w.cli.flagWorkers),
	)
	stats, err := ix.IndexFiles(ctx, changed)
	if err != nil {
		return err
	}

	engine := reconcile.New(w.store,
		reconcile.WithLogger(w.logger),
		reconcile.WithResolver(&reconcile.Resolver{
			InstanceSources: w.project.cfg.InstanceSources,
			ClassSources:    w.project.cfg.ClassSources,
		}),
	)
	updated, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("mongoidx: re-indexed",
		"parsed", stats.Indexed, "unchanged", stats.Skipped, "removed", removed, "updated", updated)
	return nil
}

// watchTree calls onChange with the sorted set of paths changed under root
// after each quiet period of length debounce, until ctx is done.
func watchTree(ctx context.Context, root string, debounce time.Duration, gi *ignore.GitIgnore, onChange func(changedPaths []string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	root = filepath.Clean(root)
	if err := addWatchRecursive(fsw, root, root, gi); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := map[string]bool{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					_ = addWatchRecursive(fsw, path, root, gi)
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ignoredPath(root, path, gi) {
				continue
			}
			if len(pending) > 0 && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			pending[path] = true
			timer.Reset(debounce)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			pending = map[string]bool{}
			onChange(changed)
		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			return watchErr
		}
	}
}

func addWatchRecursive(fsw *fsnotify.Watcher, dir, root string, gi *ignore.GitIgnore) error {
	return filepath.WalkDir(dir, func(path string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if skipWatchDir(root, path, entry.Name(), gi) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func skipWatchDir(root, path, name string, gi *ignore.GitIgnore) bool {
	if path == root {
		return false
	}
	if strings.HasPrefix(name, ".") || name == "node_modules" || name == "tmp" || name == "log" {
		return true
	}
	return ignoredPath(root, path, gi)
}

func ignoredPath(root, path string, gi *ignore.GitIgnore) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, ".swp") || strings.HasPrefix(base, ".#") || strings.HasSuffix(base, "~") {
		return true
	}
	if gi == nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return gi.MatchesPath(filepath.ToSlash(rel))
}
