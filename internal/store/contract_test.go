package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mongoidx/internal/index"
)

// The SQLite store and the in-memory index must agree on the
// compare-and-swap contract the reconciliation engine depends on.
func TestIndexContract_ReplaceSignatures(t *testing.T) {
	t.Parallel()
	impls := map[string]func(t *testing.T) index.Index{
		"memory": func(t *testing.T) index.Index { return index.NewMemIndex() },
		"sqlite": func(t *testing.T) index.Index { return newTestStore(t) },
	}
	validate := []index.Signature{{Params: []index.Parameter{{Kind: index.ParamOptionalKeyword, Name: "validate"}}}}

	for name, open := range impls {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			idx := open(t)
			placeholder := testMethod("save", "User", "file:///user.rb", 2)
			writer := testMethod("name=", "User", "file:///user.rb", 3, index.Parameter{Kind: index.ParamRequired, Name: "value"})
			require.NoError(t, idx.Add(placeholder))
			require.NoError(t, idx.Add(writer))

			snap, err := idx.Entries()
			require.NoError(t, err)
			require.Len(t, snap, 2)

			ok, err := idx.ReplaceSignatures(snap[0].Key(), snap[0].Signatures, validate)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = idx.ReplaceSignatures(snap[0].Key(), snap[0].Signatures, validate)
			require.NoError(t, err)
			assert.False(t, ok, "stale from must not match")

			moved := snap[1].Key()
			moved.StartLine++
			ok, err = idx.ReplaceSignatures(moved, snap[1].Signatures, validate)
			require.NoError(t, err)
			assert.False(t, ok, "moved entry must not match")

			require.NoError(t, idx.DeleteURI("file:///user.rb"))
			ok, err = idx.ReplaceSignatures(snap[1].Key(), snap[1].Signatures, validate)
			require.NoError(t, err)
			assert.False(t, ok, "deleted entry must not match")

			assert.Empty(t, idx.ResolveMethod("save", "User"))
		})
	}
}

func TestIndexContract_Singleton(t *testing.T) {
	t.Parallel()
	impls := map[string]func(t *testing.T) index.Index{
		"memory": func(t *testing.T) index.Index { return index.NewMemIndex() },
		"sqlite": func(t *testing.T) index.Index { return newTestStore(t) },
		"batch":  func(t *testing.T) index.Index { return newTestStore(t).NewBatch("file:///post.rb") },
	}
	for name, open := range impls {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			idx := open(t)
			require.NoError(t, idx.Add(testClass("Post", "file:///post.rb", 1)))

			s, err := idx.Singleton("Post")
			require.NoError(t, err)
			assert.Equal(t, "Post::<Class:Post>", s.Name)
			assert.Equal(t, index.KindSingletonClass, s.Kind)
			assert.Equal(t, "Post", s.Owner)
			assert.Len(t, idx.Resolve("Post::<Class:Post>"), 1)
		})
	}
}
