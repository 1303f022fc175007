package mongoidx

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mongoidx/internal/discover"
	"github.com/jward/mongoidx/internal/hover"
	"github.com/jward/mongoidx/internal/index"
	"github.com/jward/mongoidx/internal/store"
)

// Golden test format. Every listed expectation must hold; entries not
// listed are not checked.
type goldenFile struct {
	Definitions []goldenDef `json:"definitions,omitempty"`
	Comments    []goldenDoc `json:"comments,omitempty"`
	Absent      []string    `json:"absent,omitempty"`
	Updated     *int        `json:"updated,omitempty"`
}

// goldenDef names a method by its display form ("Post#title", "Post.recent")
// and optionally pins its rendered parameters and location.
type goldenDef struct {
	Method     string  `json:"method"`
	Params     *string `json:"params,omitempty"`
	File       string  `json:"file,omitempty"`
	Line       int     `json:"line,omitempty"`
	Visibility string  `json:"visibility,omitempty"`
}

// goldenDoc pins a method's documentation. "{src}" expands to the source
// directory's file URI.
type goldenDoc struct {
	Method string `json:"method"`
	Text   string `json:"text"`
}

// TestGolden walks testdata/ruby/ and runs one golden test per level: index
// src/ serially, reconcile, then check golden.json.
func TestGolden(t *testing.T) {
	levels, err := os.ReadDir(filepath.Join("testdata", "ruby"))
	if err != nil {
		t.Skip("no testdata directory found")
	}

	for _, level := range levels {
		if !level.IsDir() {
			continue
		}
		testDir := filepath.Join("testdata", "ruby", level.Name())
		goldenPath := filepath.Join(testDir, "golden.json")
		srcDir := filepath.Join(testDir, "src")
		if _, err := os.Stat(goldenPath); err != nil {
			continue
		}
		if _, err := os.Stat(srcDir); err != nil {
			continue
		}

		t.Run(level.Name(), func(t *testing.T) {
			t.Parallel()
			runGoldenTest(t, srcDir, goldenPath)
		})
	}
}

func runGoldenTest(t *testing.T, srcDir, goldenPath string) {
	t.Helper()

	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(goldenData, &golden))

	srcDir, err = filepath.Abs(srcDir)
	require.NoError(t, err)

	s := newTestStore(t)
	addon := New(s, WithLogger(discardLogger()))

	srcEntries, err := os.ReadDir(srcDir)
	require.NoError(t, err)
	var paths []string
	for _, e := range srcEntries {
		if !e.IsDir() {
			paths = append(paths, filepath.Join(srcDir, e.Name()))
		}
	}
	// Serial, in name order, so association summaries are deterministic.
	stats, err := NewIndexer(s, addon.Walker(), WithWorkers(1)).IndexFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Zero(t, stats.Failed)

	require.NoError(t, s.MarkComplete())
	addon.Activate(context.Background())
	waitDone(t, addon)
	updated := addon.Reconciler().Updated()
	addon.Deactivate()

	methods := methodsByDisplay(t, s)

	if golden.Updated != nil {
		t.Run("updated", func(t *testing.T) {
			assert.Equal(t, *golden.Updated, updated)
		})
	}
	if len(golden.Definitions) > 0 {
		t.Run("definitions", func(t *testing.T) {
			verifyDefinitions(t, methods, golden.Definitions)
		})
	}
	if len(golden.Comments) > 0 {
		t.Run("comments", func(t *testing.T) {
			verifyComments(t, methods, discover.URI(srcDir), golden.Comments)
		})
	}
	for _, display := range golden.Absent {
		assert.NotContains(t, methods, display, "unexpected method")
	}
}

func methodsByDisplay(t *testing.T, s *store.Store) map[string][]index.Entry {
	t.Helper()
	entries, err := s.Entries()
	require.NoError(t, err)
	out := make(map[string][]index.Entry)
	for _, e := range entries {
		if e.Kind == index.KindMethod {
			out[e.Display()] = append(out[e.Display()], e)
		}
	}
	return out
}

func renderParams(e index.Entry) string {
	var params []string
	if len(e.Signatures) > 0 {
		for _, p := range e.Signatures[0].Params {
			params = append(params, hover.FormatParameter(p))
		}
	}
	return "(" + strings.Join(params, ", ") + ")"
}

func verifyDefinitions(t *testing.T, methods map[string][]index.Entry, expected []goldenDef) {
	t.Helper()
	for _, exp := range expected {
		entries, ok := methods[exp.Method]
		if !assert.True(t, ok, "missing method: %s", exp.Method) {
			continue
		}
		found := false
		for _, e := range entries {
			if exp.Params != nil && renderParams(e) != *exp.Params {
				continue
			}
			if exp.File != "" && filepath.Base(discover.Path(e.Location.URI)) != exp.File {
				continue
			}
			if exp.Line != 0 && e.Location.StartLine != exp.Line {
				continue
			}
			if exp.Visibility != "" && string(e.Visibility) != exp.Visibility {
				continue
			}
			found = true
			break
		}
		var got []string
		for _, e := range entries {
			got = append(got, renderParams(e)+" "+filepath.Base(e.Location.URI)+":"+string(e.Visibility))
		}
		assert.True(t, found, "no %s matches %+v; have %v", exp.Method, exp, got)
	}
}

func verifyComments(t *testing.T, methods map[string][]index.Entry, srcURI string, expected []goldenDoc) {
	t.Helper()
	for _, exp := range expected {
		entries, ok := methods[exp.Method]
		if !assert.True(t, ok, "missing method: %s", exp.Method) {
			continue
		}
		want := strings.ReplaceAll(exp.Text, "{src}", srcURI)
		assert.Equal(t, want, entries[0].Comments, "comments of %s", exp.Method)
	}
}
