package store

import "time"

// File is one indexed source file.
type File struct {
	ID          int64
	URI         string
	Hash        string
	EntryCount  int
	LastIndexed time.Time
}
