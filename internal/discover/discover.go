// Package discover finds Ruby source files in a project or library tree.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jward/mongoidx/internal/ruby"
)

// FileEntry is one discovered source file.
type FileEntry struct {
	Path     string // absolute
	Rel      string // relative to the walked root
	Language string
}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".bundle":      {},
	"tmp":          {},
	"log":          {},
	"coverage":     {},
}

type options struct {
	languages map[string]struct{}
	ignored   bool
}

// Option configures a walk.
type Option func(*options)

// WithLanguages restricts results to the named languages.
func WithLanguages(languages ...string) Option {
	return func(o *options) {
		if len(languages) == 0 {
			return
		}
		o.languages = make(map[string]struct{}, len(languages))
		for _, l := range languages {
			o.languages[l] = struct{}{}
		}
	}
}

// WithIgnored includes files that git or .gitignore would exclude. Library
// trees such as vendor/bundle are usually ignored by the project.
func WithIgnored() Option {
	return func(o *options) { o.ignored = true }
}

// Files discovers source files under root, sorted by relative path. Inside a
// git checkout the tracked and untracked-but-not-ignored set from git
// ls-files is used; otherwise root's .gitignore is honoured.
func Files(root string, opts ...Option) ([]FileEntry, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var (
		gitFiles map[string]struct{}
		gi       *ignore.GitIgnore
	)
	if !o.ignored {
		gitFiles = gitLsFiles(root)
		if gitFiles == nil {
			gi = loadGitignore(root)
		}
	}

	var results []FileEntry
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if gitFiles != nil {
			if _, ok := gitFiles[filepath.ToSlash(rel)]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		lang, ok := ruby.LanguageForFile(name)
		if !ok {
			return nil
		}
		if o.languages != nil {
			if _, ok := o.languages[lang]; !ok {
				return nil
			}
		}
		results = append(results, FileEntry{Path: path, Rel: rel, Language: lang})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Rel < results[j].Rel
	})
	return results, nil
}

func gitLsFiles(root string) map[string]struct{} {
	info, err := os.Stat(filepath.Join(root, ".git"))
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// URI converts an absolute path to a file URI.
func URI(path string) string {
	return "file://" + filepath.ToSlash(path)
}

// Path converts a file URI back to a filesystem path.
func Path(uri string) string {
	return filepath.FromSlash(strings.TrimPrefix(uri, "file://"))
}
