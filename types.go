package mongoidx

import (
	"github.com/jward/mongoidx/internal/dsl"
	"github.com/jward/mongoidx/internal/index"
	"github.com/jward/mongoidx/internal/store"
)

// Public aliases for the internal types used by the add-on API.

type Index = index.Index
type Entry = index.Entry
type Parameter = index.Parameter
type Signature = index.Signature
type Location = index.Location
type Call = dsl.Call
type Store = store.Store
type File = store.File
