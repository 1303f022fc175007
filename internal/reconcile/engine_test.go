package reconcile

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mongoidx/internal/index"
)

const (
	libURI   = "file:///gems/mongoid/lib/mongoid/persistable/savable.rb"
	modelURI = "file:///app/models/user.rb"
)

// syncBuffer lets the test read log output written by the engine goroutine.
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
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})), buf
}

func method(name, owner, uri string, line int, params ...index.Parameter) index.Entry {
	return index.Entry{
		Name:       name,
		Kind:       index.KindMethod,
		Owner:      owner,
		Location:   index.Location{URI: uri, StartLine: line, EndLine: line},
		Signatures: []index.Signature{{Params: params}},
		Visibility: index.Public,
	}
}

var (
	validate = index.Parameter{Kind: index.ParamOptionalKeyword, Name: "validate"}
	value    = index.Parameter{Kind: index.ParamRequired, Name: "value"}
)

// seed builds the canonical scenario: a library `save(validate: true)` and a
// model with a synthesized placeholder `save` plus a parameterized writer.
func seed(t *testing.T) *index.MemIndex {
	t.Helper()
	idx := index.NewMemIndex()
	require.NoError(t, idx.Add(method("save", "Mongoid::Persistable::Savable", libURI, 12, validate)))
	require.NoError(t, idx.Add(method("save", "User", modelURI, 2)))
	require.NoError(t, idx.Add(method("name=", "User", modelURI, 3, value)))
	return idx
}

func paramsOf(t *testing.T, idx index.Index, name, owner string) []index.Parameter {
	t.Helper()
	got := idx.ResolveMethod(name, owner)
	require.Len(t, got, 1)
	require.Len(t, got[0].Signatures, 1)
	return got[0].Signatures[0].Params
}

// =============================================================================
// Resolver
// =============================================================================

func TestResolver_FirstSourceWithParameters(t *testing.T) {
	t.Parallel()
	idx := index.NewMemIndex()
	require.NoError(t, idx.Add(method("reload", "Mongoid::Reloadable", libURI, 1)))
	require.NoError(t, idx.Add(method("reload", "Mongoid::Stateful", libURI, 5, index.Parameter{Kind: index.ParamRest, Name: "args"})))
	require.NoError(t, idx.Add(method("reload", "Mongoid::Changeable", libURI, 9, validate)))

	sigs, module, ok := NewResolver().Resolve(idx, ScopeInstance, "reload")
	require.True(t, ok)
	assert.Equal(t, "Mongoid::Stateful", module, "parameterless definitions are skipped")
	assert.Equal(t, "args", sigs[0].Params[0].Name)
}

func TestResolver_NotFound(t *testing.T) {
	t.Parallel()
	idx := index.NewMemIndex()
	require.NoError(t, idx.Add(method("inspect", "Mongoid::Inspectable", libURI, 1)))

	_, _, ok := NewResolver().Resolve(idx, ScopeInstance, "inspect")
	assert.False(t, ok)
	_, _, ok = NewResolver().Resolve(idx, ScopeClass, "save")
	assert.False(t, ok)
}

func TestResolver_ClassSources(t *testing.T) {
	t.Parallel()
	idx := index.NewMemIndex()
	require.NoError(t, idx.Add(method("find", "Mongoid::Findable", libURI, 1, index.Parameter{Kind: index.ParamRest, Name: "args"})))

	_, module, ok := NewResolver().Resolve(idx, ScopeClass, "find")
	require.True(t, ok)
	assert.Equal(t, "Mongoid::Findable", module)
	_, _, ok = NewResolver().Resolve(idx, ScopeInstance, "find")
	assert.False(t, ok)
}

// =============================================================================
// Engine
// =============================================================================

func TestEngine_UpgradesPlaceholdersAfterCompletion(t *testing.T) {
	t.Parallel()
	idx := seed(t)
	logger, logs := newLogger()
	e := New(idx, WithLogger(logger))

	e.Start(context.Background())
	t.Cleanup(e.Stop)

	// Nothing happens before the host finishes indexing.
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, paramsOf(t, idx, "save", "User"))

	idx.MarkComplete()
	require.Eventually(t, func() bool {
		select {
		case <-e.Done():
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []index.Parameter{validate}, paramsOf(t, idx, "save", "User"))
	assert.Equal(t, []index.Parameter{value}, paramsOf(t, idx, "name=", "User"), "parameterized entries are left alone")
	assert.Equal(t, 1, e.Updated())
	assert.NoError(t, e.Err())
	assert.Contains(t, logs.String(), "Updated 1 method signatures from Mongoid modules")
}

func TestEngine_ClassCatalogueOnlyTouchesSingletons(t *testing.T) {
	t.Parallel()
	idx := index.NewMemIndex()
	require.NoError(t, idx.Add(method("where", "Mongoid::Criteria", libURI, 1, index.Parameter{Kind: index.ParamOptional, Name: "criteria"})))
	require.NoError(t, idx.Add(method("where", index.SingletonName("User"), modelURI, 2)))
	require.NoError(t, idx.Add(method("where", "User", modelURI, 2)))
	idx.MarkComplete()

	n, err := New(idx).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, paramsOf(t, idx, "where", index.SingletonName("User")), 1)
	assert.Empty(t, paramsOf(t, idx, "where", "User"))
}

func TestEngine_NoUpdatesLogsNothing(t *testing.T) {
	t.Parallel()
	idx := index.NewMemIndex()
	require.NoError(t, idx.Add(method("save", "User", modelURI, 2)))
	idx.MarkComplete()
	logger, logs := newLogger()

	n, err := New(idx, WithLogger(logger)).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, logs.String())
}

// pollOnly hides MemIndex's completion channel so the engine must poll.
type pollOnly struct {
	index.Index
}

func TestEngine_PollsWithoutNotifier(t *testing.T) {
	t.Parallel()
	idx := seed(t)
	e := New(pollOnly{idx}, WithPollInterval(5*time.Millisecond))
	e.Start(context.Background())
	t.Cleanup(e.Stop)

	idx.MarkComplete()
	require.Eventually(t, func() bool { return e.Updated() == 1 }, time.Second, 5*time.Millisecond)
}

func TestEngine_StopBeforeReadiness(t *testing.T) {
	t.Parallel()
	idx := seed(t)
	e := New(idx)
	e.Start(context.Background())

	stopped := make(chan struct{})
	go func() {
		e.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return promptly")
	}
	assert.Zero(t, e.Updated())
	assert.NoError(t, e.Err(), "cancellation is not a failure")
	assert.Empty(t, paramsOf(t, idx, "save", "User"))
}

func TestEngine_StartTwiceIsNoop(t *testing.T) {
	t.Parallel()
	idx := seed(t)
	idx.MarkComplete()
	e := New(idx)
	e.Start(context.Background())
	e.Start(context.Background())
	<-e.Done()
	assert.Equal(t, 1, e.Updated())
}

// failingIndex fails every snapshot.
type failingIndex struct {
	*index.MemIndex
	panics bool
}

func (f failingIndex) Entries() ([]index.Entry, error) {
	if f.panics {
		panic("snapshot exploded")
	}
	return nil, errors.New("disk gone")
}

func TestEngine_FailureIsLoggedOnce(t *testing.T) {
	t.Parallel()
	for _, panics := range []bool{false, true} {
		idx := seed(t)
		idx.MarkComplete()
		logger, logs := newLogger()

		_, err := New(failingIndex{MemIndex: idx, panics: panics}, WithLogger(logger)).Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, strings.Count(logs.String(), "level=ERROR"), logs.String())
		assert.Empty(t, paramsOf(t, idx, "save", "User"))
	}
}
