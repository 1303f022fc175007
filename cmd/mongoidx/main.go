package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/mongoidx"
	"github.com/jward/mongoidx/internal/config"
	"github.com/jward/mongoidx/internal/reconcile"
	"github.com/jward/mongoidx/internal/store"
)

func main() {
	cli := newCLI(os.Stdout, os.Stderr)
	if err := cli.root.Execute(); err != nil {
		if !cli.errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// cli holds the command tree and its flag values.
type cli struct {
	root           *cobra.Command
	stdout, stderr io.Writer

	flagDB      string
	flagFormat  string
	flagVerbose bool

	flagForce     bool
	flagWorkers   int
	flagLibraries []string
	flagLanguages string
	flagDebounce  time.Duration

	// errorHandled is set by outputError so main() doesn't double-print.
	errorHandled bool
}

func newCLI(stdout, stderr io.Writer) *cli {
	c := &cli{stdout: stdout, stderr: stderr}
	c.root = &cobra.Command{
		Use:           "mongoidx",
		Short:         "Mongoid-aware Ruby symbol index",
		Long:          "mongoidx indexes Ruby source with tree-sitter, synthesizes the methods Mongoid macros declare, and writes results to a SQLite database.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(c.flagFormat)
		},
	}
	c.root.SetOut(stdout)
	c.root.SetErr(stderr)
	c.root.PersistentFlags().StringVar(&c.flagDB, "db", "", "database path (default: .mongoidx/index.db relative to repo root)")
	c.root.PersistentFlags().StringVar(&c.flagFormat, "format", "json", "output format: json|text")
	c.root.PersistentFlags().BoolVarP(&c.flagVerbose, "verbose", "v", false, "debug logging")

	indexCmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a Ruby project and reconcile Mongoid signatures",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runIndex,
	}
	c.indexFlags(indexCmd)

	watchCmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Index, then re-index changed files until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runWatch,
	}
	c.indexFlags(watchCmd)
	watchCmd.Flags().DurationVar(&c.flagDebounce, "debounce", 250*time.Millisecond, "quiet period before re-indexing")

	c.root.AddCommand(indexCmd, watchCmd, c.methodsCmd(), c.documentsCmd(), c.hoverCmd())
	return c
}

func (c *cli) indexFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&c.flagForce, "force", false, "delete database and reindex from scratch")
	cmd.Flags().IntVar(&c.flagWorkers, "workers", 0, "parallel parse workers (0: one per CPU, 1: serial)")
	cmd.Flags().StringSliceVar(&c.flagLibraries, "library", nil, "extra library tree to index, e.g. the installed mongoid gem (repeatable)")
	cmd.Flags().StringVar(&c.flagLanguages, "languages", "", "comma-separated language filter")
}

func (c *cli) logger() *slog.Logger {
	level := slog.LevelInfo
	if c.flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
}

// project is everything a command needs about the indexed repository.
type project struct {
	root   string
	cfg    *config.Config
	dbPath string
}

func (c *cli) loadProject(dir string) (*project, error) {
	root := findRepoRoot(dir)
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if c.flagLanguages != "" {
		langs := strings.Split(c.flagLanguages, ",")
		for i := range langs {
			langs[i] = strings.TrimSpace(langs[i])
		}
		cfg.Languages = langs
	}
	dbPath := cfg.DatabasePath()
	if c.flagDB != "" {
		dbPath = c.flagDB
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(root, dbPath)
		}
	}
	return &project{root: root, cfg: cfg, dbPath: dbPath}, nil
}

func (p *project) libraries(extra []string) []string {
	libs := p.cfg.Libraries()
	for _, l := range extra {
		if abs, err := filepath.Abs(l); err == nil {
			l = abs
		}
		libs = append(libs, l)
	}
	return libs
}

func (p *project) addon(s *store.Store, logger *slog.Logger) *mongoidx.Addon {
	return mongoidx.New(s,
		mongoidx.WithLogger(logger),
		mongoidx.WithDocumentMarkers(p.cfg.DocumentMarkers...),
		mongoidx.WithPollInterval(p.cfg.PollInterval),
		mongoidx.WithResolver(&reconcile.Resolver{
			InstanceSources: p.cfg.InstanceSources,
			ClassSources:    p.cfg.ClassSources,
		}),
	)
}

// openStore opens and migrates the project database, creating its
// directory when missing.
func openStore(dbPath string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// openExistingStore opens the database for read commands.
func openExistingStore(dbPath string) (*store.Store, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'mongoidx index' first)", dbPath)
	}
	return openStore(dbPath)
}

func (c *cli) runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	p, err := c.loadProject(targetDir)
	if err != nil {
		return err
	}
	if c.flagForce {
		if err := os.Remove(p.dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(c.stderr, "Cleared database: %s\n", p.dbPath)
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

	fmt.Fprintf(c.stderr, "Indexed %s in %s (%d parsed, %d unchanged, %d removed, %d failed; %d signatures updated)\n",
		targetDir, time.Since(start).Round(time.Millisecond),
		stats.Indexed, stats.Skipped, stats.Removed, stats.Failed, updated)
	fmt.Fprintf(c.stderr, "Database: %s\n", p.dbPath)
	return nil
}

// indexAndReconcile runs one full indexing pass over dir and the project's
// libraries, then the reconciliation pass.
func (c *cli) indexAndReconcile(ctx context.Context, p *project, s *store.Store, logger *slog.Logger, dir string) (mongoidx.Stats, int, error) {
	if err := s.ResetComplete(); err != nil {
		return mongoidx.Stats{}, 0, err
	}
	addon := p.addon(s, logger)
	ix := mongoidx.NewIndexer(s, addon.Walker(),
		mongoidx.WithIndexLogger(logger),
		mongoidx.WithWorkers(c.flagWorkers),
		mongoidx.WithLanguages(p.cfg.Languages...),
	)
	stats, err := ix.IndexDirectory(ctx, dir, p.libraries(c.flagLibraries)...)
	if err != nil {
		return stats, 0, fmt.Errorf("indexing: %w", err)
	}
	if err := s.MarkComplete(); err != nil {
		return stats, 0, err
	}

	addon.Activate(ctx)
	engine := addon.Reconciler()
	<-engine.Done()
	addon.Deactivate()
	return stats, engine.Updated(), engine.Err()
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}
