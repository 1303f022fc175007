// Package index defines the shared symbol index contract the add-on reads
// and writes, and an in-memory implementation of it.
package index

// Index is the shared, concurrently written symbol table. Implementations
// must be safe for concurrent use by the host walk and the reconciliation
// task.
type Index interface {
	// Resolve returns namespace entries (classes, modules, singleton
	// classes) with the given fully qualified name.
	Resolve(name string) []Entry

	// ResolveMethod returns method entries named name owned directly by
	// owner (a qualified namespace name).
	ResolveMethod(name, owner string) []Entry

	// Add inserts e. An entry with the same (name, owner) in the same URI is
	// replaced.
	Add(e Entry) error

	// Singleton returns the class-level scope of owner, creating it if it
	// does not exist yet.
	Singleton(owner string) (Entry, error)

	// Entries returns a point-in-time snapshot of every entry. The returned
	// slice is owned by the caller and does not change when the index does.
	Entries() ([]Entry, error)

	// ReplaceSignatures swaps the signatures of the entry identified by key
	// to the given list. It reports false, without error, when the entry no
	// longer exists or its signatures no longer equal from.
	ReplaceSignatures(key Key, from, to []Signature) (bool, error)

	// DeleteURI removes every entry located in uri.
	DeleteURI(uri string) error

	// IndexingComplete reports whether the host finished initial indexing,
	// including dependencies.
	IndexingComplete() bool
}

// Notifier is implemented by indexes that can announce completion of initial
// indexing. Consumers prefer it over polling IndexingComplete.
type Notifier interface {
	Completed() <-chan struct{}
}
