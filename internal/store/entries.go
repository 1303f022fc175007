package store

import (
	"database/sql"
	"fmt"

	"github.com/jward/mongoidx/internal/index"
)

const entryColumns = `uri, owner, name, kind, visibility, comments, signatures,
	start_line, start_col, end_line, end_col`

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// insertEntry writes e, replacing any entry with the same (uri, owner, name).
func insertEntry(x execer, e index.Entry) error {
	loc := e.Location
	_, err := x.Exec(
		`INSERT OR REPLACE INTO entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loc.URI, e.Owner, e.Name, string(e.Kind), string(e.Visibility), e.Comments,
		marshalSignatures(e.Signatures),
		loc.StartLine, loc.StartCol, loc.EndLine, loc.EndCol,
	)
	return err
}

func scanEntry(scanner interface{ Scan(...any) error }) (index.Entry, error) {
	var (
		e          index.Entry
		kind, vis  string
		comments   sql.NullString
		signatures string
	)
	err := scanner.Scan(
		&e.Location.URI, &e.Owner, &e.Name, &kind, &vis, &comments, &signatures,
		&e.Location.StartLine, &e.Location.StartCol, &e.Location.EndLine, &e.Location.EndCol,
	)
	if err != nil {
		return index.Entry{}, err
	}
	e.Kind = index.Kind(kind)
	e.Visibility = index.Visibility(vis)
	e.Comments = comments.String
	e.Signatures = unmarshalSignatures(signatures)
	return e, nil
}

func (s *Store) queryEntries(query string, args ...any) ([]index.Entry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []index.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Add inserts e. An entry with the same (name, owner) in the same URI is
// replaced.
func (s *Store) Add(e index.Entry) error {
	if e.Name == "" {
		return fmt.Errorf("store: add: entry has no name")
	}
	if err := insertEntry(s.db, e); err != nil {
		return fmt.Errorf("store: add %s: %w", e.Display(), err)
	}
	return nil
}

// Resolve returns namespace entries with the given qualified name. Lookup
// errors yield no entries.
func (s *Store) Resolve(name string) []index.Entry {
	entries, err := s.queryEntries(
		`SELECT `+entryColumns+` FROM entries
		 WHERE name = ? AND kind IN (?, ?, ?) ORDER BY id`,
		name, string(index.KindClass), string(index.KindModule), string(index.KindSingletonClass),
	)
	if err != nil {
		return nil
	}
	return entries
}

// ResolveMethod returns method entries named name owned by owner.
func (s *Store) ResolveMethod(name, owner string) []index.Entry {
	entries, err := s.queryEntries(
		`SELECT `+entryColumns+` FROM entries
		 WHERE name = ? AND owner = ? AND kind = ? ORDER BY id`,
		name, owner, string(index.KindMethod),
	)
	if err != nil {
		return nil
	}
	return entries
}

// Singleton returns the class-level scope of owner, creating it at the
// attached namespace's location if needed.
func (s *Store) Singleton(owner string) (index.Entry, error) {
	name := index.SingletonName(owner)

	s.singletonMu.Lock()
	defer s.singletonMu.Unlock()

	existing, err := s.queryEntries(
		`SELECT `+entryColumns+` FROM entries WHERE name = ? AND kind = ? ORDER BY id LIMIT 1`,
		name, string(index.KindSingletonClass),
	)
	if err != nil {
		return index.Entry{}, fmt.Errorf("store: singleton %s: %w", owner, err)
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	e := index.Entry{Name: name, Kind: index.KindSingletonClass, Owner: owner, Visibility: index.Public}
	if attached := s.Resolve(owner); len(attached) > 0 {
		e.Location = attached[0].Location
	}
	if err := s.Add(e); err != nil {
		return index.Entry{}, err
	}
	return e, nil
}

// Entries returns every entry in insertion order.
func (s *Store) Entries() ([]index.Entry, error) {
	entries, err := s.queryEntries(`SELECT ` + entryColumns + ` FROM entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: entries: %w", err)
	}
	return entries, nil
}

// EntriesByURI returns the entries located in uri.
func (s *Store) EntriesByURI(uri string) ([]index.Entry, error) {
	entries, err := s.queryEntries(`SELECT `+entryColumns+` FROM entries WHERE uri = ? ORDER BY id`, uri)
	if err != nil {
		return nil, fmt.Errorf("store: entries by uri: %w", err)
	}
	return entries, nil
}

// MethodsByOwner returns the methods defined directly on owner.
func (s *Store) MethodsByOwner(owner string) ([]index.Entry, error) {
	entries, err := s.queryEntries(
		`SELECT `+entryColumns+` FROM entries WHERE owner = ? AND kind = ? ORDER BY start_line, name`,
		owner, string(index.KindMethod),
	)
	if err != nil {
		return nil, fmt.Errorf("store: methods by owner: %w", err)
	}
	return entries, nil
}

// ReplaceSignatures swaps signatures in a single UPDATE that only matches
// while the stored list still equals from.
func (s *Store) ReplaceSignatures(key index.Key, from, to []index.Signature) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE entries SET signatures = ?
		 WHERE uri = ? AND owner = ? AND name = ? AND start_line = ? AND start_col = ? AND signatures = ?`,
		marshalSignatures(to),
		key.URI, key.Owner, key.Name, key.StartLine, key.StartCol, marshalSignatures(from),
	)
	if err != nil {
		return false, fmt.Errorf("store: replace signatures %s: %w", key.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: replace signatures: rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteURI removes every entry located in uri.
func (s *Store) DeleteURI(uri string) error {
	if _, err := s.db.Exec("DELETE FROM entries WHERE uri = ?", uri); err != nil {
		return fmt.Errorf("store: delete uri: %w", err)
	}
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count entries: %w", err)
	}
	return n, nil
}
