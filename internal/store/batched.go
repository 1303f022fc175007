package store

import (
	"github.com/jward/mongoidx/internal/index"
)

// Batch buffers one file's entries in memory so a file can be re-indexed
// without readers observing a half-written file. Reads see the buffer plus
// the store's entries from every other URI. Commit replaces the file's rows
// in a single transaction.
//
// A Batch is safe for concurrent use; its buffer is an index.MemIndex.
type Batch struct {
	store *Store // for read passthrough
	uri   string
	buf   *index.MemIndex
}

// NewBatch returns an empty batch for uri.
func (s *Store) NewBatch(uri string) *Batch {
	return &Batch{store: s, uri: uri, buf: index.NewMemIndex()}
}

// URI returns the file the batch replaces.
func (b *Batch) URI() string { return b.uri }

func (b *Batch) Add(e index.Entry) error {
	return b.buf.Add(e)
}

// others drops store entries from the batch's own URI; Commit replaces them.
func (b *Batch) others(entries []index.Entry) []index.Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.Location.URI != b.uri {
			out = append(out, e)
		}
	}
	return out
}

func (b *Batch) Resolve(name string) []index.Entry {
	return append(b.buf.Resolve(name), b.others(b.store.Resolve(name))...)
}

func (b *Batch) ResolveMethod(name, owner string) []index.Entry {
	return append(b.buf.ResolveMethod(name, owner), b.others(b.store.ResolveMethod(name, owner))...)
}

// Singleton finds owner's class-level scope in the buffer or the store,
// creating it in the buffer when neither has it.
func (b *Batch) Singleton(owner string) (index.Entry, error) {
	name := index.SingletonName(owner)
	if found := b.Resolve(name); len(found) > 0 {
		return found[0], nil
	}
	e := index.Entry{Name: name, Kind: index.KindSingletonClass, Owner: owner, Visibility: index.Public}
	if attached := b.Resolve(owner); len(attached) > 0 {
		e.Location = attached[0].Location
	}
	if e.Location.URI == "" {
		e.Location.URI = b.uri
	}
	if err := b.buf.Add(e); err != nil {
		return index.Entry{}, err
	}
	return e, nil
}

func (b *Batch) Entries() ([]index.Entry, error) {
	stored, err := b.store.Entries()
	if err != nil {
		return nil, err
	}
	buffered, err := b.buf.Entries()
	if err != nil {
		return nil, err
	}
	return append(b.others(stored), buffered...), nil
}

func (b *Batch) ReplaceSignatures(key index.Key, from, to []index.Signature) (bool, error) {
	if key.URI == b.uri {
		return b.buf.ReplaceSignatures(key, from, to)
	}
	return b.store.ReplaceSignatures(key, from, to)
}

func (b *Batch) DeleteURI(uri string) error {
	if uri == b.uri {
		return b.buf.DeleteURI(uri)
	}
	return b.store.DeleteURI(uri)
}

func (b *Batch) IndexingComplete() bool {
	return b.store.IndexingComplete()
}

// Len returns the number of buffered entries.
func (b *Batch) Len() int {
	return b.buf.Len()
}
