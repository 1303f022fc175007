package index

import (
	"fmt"
	"sort"
	"sync"
)

// slotKey is the replacement identity inside one URI.
type slotKey struct {
	uri   string
	owner string
	name  string
}

type slot struct {
	entry Entry
	seq   uint64
}

// MemIndex is an in-memory Index guarded by a RWMutex. Lookups return
// entries in insertion order.
type MemIndex struct {
	mu      sync.RWMutex
	entries map[slotKey]slot
	byName  map[string]map[slotKey]struct{}
	seq     uint64

	completeOnce sync.Once
	complete     chan struct{}
}

// Compile-time checks: *MemIndex satisfies Index and Notifier.
var (
	_ Index    = (*MemIndex)(nil)
	_ Notifier = (*MemIndex)(nil)
)

// NewMemIndex returns an empty index.
func NewMemIndex() *MemIndex {
	return &MemIndex{
		entries:  make(map[slotKey]slot),
		byName:   make(map[string]map[slotKey]struct{}),
		complete: make(chan struct{}),
	}
}

func keyOf(e Entry) slotKey {
	return slotKey{uri: e.Location.URI, owner: e.Owner, name: e.Name}
}

func (m *MemIndex) Add(e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("index: add: entry has no name")
	}
	e.Signatures = CloneSignatures(e.Signatures)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(e)
	return nil
}

func (m *MemIndex) addLocked(e Entry) {
	k := keyOf(e)
	m.seq++
	m.entries[k] = slot{entry: e, seq: m.seq}
	names, ok := m.byName[e.Name]
	if !ok {
		names = make(map[slotKey]struct{})
		m.byName[e.Name] = names
	}
	names[k] = struct{}{}
}

// lookupLocked returns entries named name accepted by keep, in insertion order.
func (m *MemIndex) lookupLocked(name string, keep func(Entry) bool) []Entry {
	var slots []slot
	for k := range m.byName[name] {
		s := m.entries[k]
		if keep(s.entry) {
			slots = append(slots, s)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].seq < slots[j].seq })
	out := make([]Entry, len(slots))
	for i, s := range slots {
		out[i] = s.entry
		out[i].Signatures = CloneSignatures(s.entry.Signatures)
	}
	return out
}

func (m *MemIndex) Resolve(name string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(name, func(e Entry) bool { return e.Kind.IsNamespace() })
}

func (m *MemIndex) ResolveMethod(name, owner string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(name, func(e Entry) bool {
		return e.Kind == KindMethod && e.Owner == owner
	})
}

func (m *MemIndex) Singleton(owner string) (Entry, error) {
	name := SingletonName(owner)

	m.mu.Lock()
	defer m.mu.Unlock()
	if found := m.lookupLocked(name, func(e Entry) bool { return e.Kind == KindSingletonClass }); len(found) > 0 {
		return found[0], nil
	}

	e := Entry{Name: name, Kind: KindSingletonClass, Owner: owner, Visibility: Public}
	if attached := m.lookupLocked(owner, func(e Entry) bool { return e.Kind.IsNamespace() }); len(attached) > 0 {
		e.Location = attached[0].Location
	}
	m.addLocked(e)
	return e, nil
}

func (m *MemIndex) Entries() ([]Entry, error) {
	m.mu.RLock()
	slots := make([]slot, 0, len(m.entries))
	for _, s := range m.entries {
		slots = append(slots, s)
	}
	m.mu.RUnlock()

	sort.Slice(slots, func(i, j int) bool { return slots[i].seq < slots[j].seq })
	out := make([]Entry, len(slots))
	for i, s := range slots {
		out[i] = s.entry
		out[i].Signatures = CloneSignatures(s.entry.Signatures)
	}
	return out, nil
}

func (m *MemIndex) ReplaceSignatures(key Key, from, to []Signature) (bool, error) {
	k := slotKey{uri: key.URI, owner: key.Owner, name: key.Name}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.entries[k]
	if !ok {
		return false, nil
	}
	loc := s.entry.Location
	if loc.StartLine != key.StartLine || loc.StartCol != key.StartCol {
		return false, nil
	}
	if !SignaturesEqual(s.entry.Signatures, from) {
		return false, nil
	}
	s.entry.Signatures = CloneSignatures(to)
	m.entries[k] = s
	return true, nil
}

func (m *MemIndex) DeleteURI(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if k.uri != uri {
			continue
		}
		delete(m.entries, k)
		if names := m.byName[k.name]; names != nil {
			delete(names, k)
			if len(names) == 0 {
				delete(m.byName, k.name)
			}
		}
	}
	return nil
}

// MarkComplete signals that initial indexing has finished. Safe to call
// more than once.
func (m *MemIndex) MarkComplete() {
	m.completeOnce.Do(func() { close(m.complete) })
}

func (m *MemIndex) IndexingComplete() bool {
	select {
	case <-m.complete:
		return true
	default:
		return false
	}
}

func (m *MemIndex) Completed() <-chan struct{} {
	return m.complete
}

// Len returns the number of entries.
func (m *MemIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
