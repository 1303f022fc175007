package store

import "github.com/jward/mongoidx/internal/index"

// Compile-time checks: both the direct Store and the per-file Batch satisfy
// the index contract, so the synthesizer can write through either.
var (
	_ index.Index    = (*Store)(nil)
	_ index.Notifier = (*Store)(nil)
	_ index.Index    = (*Batch)(nil)
)
