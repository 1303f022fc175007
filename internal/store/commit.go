package store

import (
	"fmt"
	"time"
)

// Commit replaces the batch's file in a single transaction: its previous
// entries are deleted, the buffered entries inserted and the file row
// upserted with hash.
func (b *Batch) Commit(hash string) error {
	entries, err := b.buf.Entries()
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	tx, err := b.store.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries WHERE uri = ?", b.uri); err != nil {
		return fmt.Errorf("commit batch: delete %s: %w", b.uri, err)
	}
	for _, e := range entries {
		if err := insertEntry(tx, e); err != nil {
			return fmt.Errorf("commit batch: entry %s: %w", e.Display(), err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO files (uri, hash, entry_count, last_indexed) VALUES (?, ?, ?, ?)
		 ON CONFLICT(uri) DO UPDATE SET hash = excluded.hash, entry_count = excluded.entry_count,
		   last_indexed = excluded.last_indexed`,
		b.uri, hash, len(entries), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("commit batch: file %s: %w", b.uri, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}
