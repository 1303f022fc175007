package mongoidx

import (
	"fmt"

	"github.com/jward/mongoidx/internal/index"
	"github.com/jward/mongoidx/internal/store"
)

// QueryBuilder provides read access to an indexed project.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder returns a QueryBuilder over s.
func NewQueryBuilder(s *store.Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// Document is one class recognized as a Mongoid document.
type Document struct {
	Name     string
	Location index.Location // the marker include
	Methods  int            // instance and class methods
}

// Methods returns owner's class-level methods followed by its instance
// methods, each group in source order.
func (q *QueryBuilder) Methods(owner string) ([]index.Entry, error) {
	class, err := q.store.MethodsByOwner(index.SingletonName(owner))
	if err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}
	instance, err := q.store.MethodsByOwner(owner)
	if err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}
	return append(class, instance...), nil
}

// Documents lists every class that includes a document marker, sorted by
// name. A reopened class appears once per file that includes the marker.
func (q *QueryBuilder) Documents() ([]Document, error) {
	rows, err := q.store.DB().Query(
		`SELECT owner, uri, start_line, start_col, end_line, end_col
		 FROM entries WHERE name = '_id' AND kind = ? ORDER BY owner, uri`,
		string(index.KindMethod),
	)
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}
	var docs []Document
	for rows.Next() {
		var d Document
		loc := &d.Location
		if err := rows.Scan(&d.Name, &loc.URI, &loc.StartLine, &loc.StartCol, &loc.EndLine, &loc.EndCol); err != nil {
			rows.Close()
			return nil, fmt.Errorf("documents: scan: %w", err)
		}
		docs = append(docs, d)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("documents: rows: %w", err)
	}

	for i := range docs {
		methods, err := q.Methods(docs[i].Name)
		if err != nil {
			return nil, err
		}
		docs[i].Methods = len(methods)
	}
	return docs, nil
}
