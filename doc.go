// Package mongoidx teaches a Ruby symbol index about Mongoid documents.
//
// Mongoid declares most of a model's methods through class-body macros
// (field, has_many, scope, include Mongoid::Document) rather than def.
// mongoidx watches those call sites while source is indexed and writes the
// methods they imply into the index, so completion and go-to-definition see
// them.
//
// # Pipeline
//
//  1. Walk: each Ruby file is parsed with tree-sitter. Classes, modules and
//     def methods are indexed, and every receiverless call in a class body
//     is handed to the add-on with its owning namespace.
//
//  2. Synthesize: recognized macros become method entries located at the
//     macro call, carrying option summaries as documentation.
//
//  3. Reconcile: once initial indexing completes, a single background pass
//     replaces the parameterless placeholders for well-known document
//     methods (save, update, where, find ...) with the real signatures
//     found in the indexed Mongoid library source.
//
// # Usage
//
//	s, err := store.NewStore("index.db")
//	...
//	addon := mongoidx.New(s, mongoidx.WithLogger(logger))
//	ix := mongoidx.NewIndexer(s, addon.Walker())
//	stats, err := ix.IndexDirectory(ctx, root, libraryPaths...)
//	s.MarkComplete()
//	addon.Activate(ctx)
//	defer addon.Deactivate()
//
// Hosts that run their own walk call [Addon.OnCall] for each call
// expression instead of using the Indexer.
package mongoidx
