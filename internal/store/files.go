package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// FileByURI returns the file row for uri, or nil if it was never indexed.
func (s *Store) FileByURI(uri string) (*File, error) {
	f := &File{}
	var indexed sql.NullTime
	var hash sql.NullString
	err := s.db.QueryRow(
		"SELECT id, uri, hash, entry_count, last_indexed FROM files WHERE uri = ?", uri,
	).Scan(&f.ID, &f.URI, &hash, &f.EntryCount, &indexed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by uri: %w", err)
	}
	f.Hash = hash.String
	f.LastIndexed = indexed.Time
	return f, nil
}

// Files returns every indexed file ordered by URI.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT id, uri, hash, entry_count, last_indexed FROM files ORDER BY uri")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		var indexed sql.NullTime
		var hash sql.NullString
		if err := rows.Scan(&f.ID, &f.URI, &hash, &f.EntryCount, &indexed); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.Hash = hash.String
		f.LastIndexed = indexed.Time
		files = append(files, f)
	}
	return files, rows.Err()
}

// Unchanged reports whether uri was indexed with exactly this content hash.
func (s *Store) Unchanged(uri, hash string) (bool, error) {
	f, err := s.FileByURI(uri)
	if err != nil || f == nil {
		return false, err
	}
	return f.Hash == hash, nil
}

// DeleteFile transactionally removes a file row and all of its entries.
func (s *Store) DeleteFile(uri string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete file: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries WHERE uri = ?", uri); err != nil {
		return fmt.Errorf("delete file: entries: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM files WHERE uri = ?", uri); err != nil {
		return fmt.Errorf("delete file: row: %w", err)
	}
	return tx.Commit()
}
