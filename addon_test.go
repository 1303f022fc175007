package mongoidx

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mongoidx/internal/dsl"
	"github.com/jward/mongoidx/internal/index"
)

// syncBuffer lets tests read log output written by the reconciliation
// goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, nil)), buf
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDone(t *testing.T, a *Addon) {
	t.Helper()
	e := a.Reconciler()
	require.NotNil(t, e)
	select {
	case <-e.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reconciliation did not finish")
	}
}

// =============================================================================
// End to end
// =============================================================================

func TestAddon_IndexThenReconcile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	root, lib := newProject(t)
	logger, logs := newLogger()
	addon := New(s, WithLogger(logger), WithPollInterval(10*time.Millisecond))

	_, err := NewIndexer(s, addon.Walker()).IndexDirectory(context.Background(), root, lib)
	require.NoError(t, err)

	// Placeholders before the pass.
	save := s.ResolveMethod("save", "Post")
	require.Len(t, save, 1)
	assert.True(t, save[0].IsPlaceholder())

	addon.Activate(context.Background())
	defer addon.Deactivate()
	require.NoError(t, s.MarkComplete())
	waitDone(t, addon)

	// save, save! per document; where, find, create per document class.
	assert.Equal(t, 10, addon.Reconciler().Updated())
	assert.NoError(t, addon.Reconciler().Err())

	save = s.ResolveMethod("save", "Post")
	require.Len(t, save, 1)
	assert.Equal(t, []index.Signature{{Params: []index.Parameter{{Kind: index.ParamOptional, Name: "options"}}}}, save[0].Signatures)

	where := s.ResolveMethod("where", index.SingletonName("Comment"))
	require.Len(t, where, 1)
	assert.Equal(t, []index.Parameter{{Kind: index.ParamRest, Name: "args"}}, where[0].Signatures[0].Params)

	reload := s.ResolveMethod("reload", "Post")
	require.Len(t, reload, 1)
	assert.True(t, reload[0].IsPlaceholder(), "no library signature to copy")

	out := logs.String()
	assert.Contains(t, out, "Activating Mongoid add-on v"+Version)
	assert.Contains(t, out, "Updated 10 method signatures from Mongoid modules")
}

func TestAddon_DeactivateBeforeReady(t *testing.T) {
	t.Parallel()
	idx := index.NewMemIndex()
	logger, logs := newLogger()
	addon := New(idx, WithLogger(logger))

	addon.Activate(context.Background())
	e := addon.Reconciler()

	stopped := make(chan struct{})
	go func() {
		addon.Deactivate()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Deactivate did not return")
	}
	assert.Nil(t, addon.Reconciler())
	assert.Equal(t, 0, e.Updated())
	assert.NotContains(t, logs.String(), "Updated")
	assert.NotContains(t, logs.String(), "level=ERROR")
}

func TestAddon_ActivateTwice(t *testing.T) {
	t.Parallel()
	logger, logs := newLogger()
	addon := New(index.NewMemIndex(), WithLogger(logger))
	addon.Activate(context.Background())
	first := addon.Reconciler()
	addon.Activate(context.Background())
	defer addon.Deactivate()

	assert.Same(t, first, addon.Reconciler())
	assert.Equal(t, 1, strings.Count(logs.String(), "Activating Mongoid add-on"))
}

// =============================================================================
// OnCall
// =============================================================================

func TestAddon_OnCall(t *testing.T) {
	t.Parallel()
	idx := index.NewMemIndex()
	addon := New(idx, WithLogger(discardLogger()))
	loc := index.Location{URI: "file:///post.rb", StartLine: 3, StartCol: 2, EndLine: 3, EndCol: 20}
	call := dsl.Call{
		Name:     "field",
		Args:     []dsl.Arg{{Kind: dsl.ArgSymbol, Value: "title", Source: ":title"}},
		Location: loc,
	}

	addon.OnCall(call, "")
	assert.Equal(t, 0, idx.Len(), "calls outside a namespace are ignored")

	addon.OnCall(call, "Post")
	got := idx.ResolveMethod("title", "Post")
	require.Len(t, got, 1)
	assert.Equal(t, loc, got[0].Location)
	assert.Len(t, idx.ResolveMethod("title=", "Post"), 1)

	addon.OnCall(dsl.Call{Name: "validates", Location: loc}, "Post")
	assert.Equal(t, 2, idx.Len())
}

func TestAddon_DocumentMarkers(t *testing.T) {
	t.Parallel()
	idx := index.NewMemIndex()
	addon := New(idx, WithLogger(discardLogger()), WithDocumentMarkers("Tenant::Document"))

	require.NoError(t, addon.IndexSource(context.Background(), "file:///a.rb", []byte(`class Account
  include Tenant::Document
end
class Legacy
  include Mongoid::Document
end
`)))
	assert.Len(t, idx.ResolveMethod("save", "Account"), 1)
	assert.Empty(t, idx.ResolveMethod("save", "Legacy"))
}

// =============================================================================
// Hover
// =============================================================================

func TestAddon_HoverAt(t *testing.T) {
	t.Parallel()
	idx := index.NewMemIndex()
	addon := New(idx, WithLogger(discardLogger()))
	ctx := context.Background()
	const postURI = "file:///app/models/post.rb"
	src := []byte(postModel)
	require.NoError(t, addon.IndexSource(ctx, postURI, src))

	text, ok, err := addon.HoverAt(ctx, postURI, src, 4, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "type: String", text)

	text, ok, err = addon.HoverAt(ctx, postURI, src, 5, 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "has_many: Comment", text)

	require.NoError(t, addon.IndexSource(ctx, "file:///app/models/comment.rb", []byte(commentModel)))
	text, _, err = addon.HoverAt(ctx, postURI, src, 5, 4)
	require.NoError(t, err)
	assert.Equal(t, "has_many: [Comment](file:///app/models/comment.rb#L1)", text)

	_, ok, err = addon.HoverAt(ctx, postURI, src, 2, 4)
	require.NoError(t, err)
	assert.False(t, ok, "include has no hover")
}
