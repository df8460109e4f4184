// Package index provides the document store and the two retrieval legs:
// lexical (sparse) search over a bleve inverted index and vector (dense)
// nearest-neighbor search over cached embeddings.
//
// # Store
//
// [Store] owns documents and their lifecycle. Ingestion assigns IDs when
// absent, computes each document's embedding exactly once, and caches it
// alongside the document:
//
//	store := index.NewStore(index.StoreOptions{Embedder: embedder})
//	ids, err := store.Add(ctx,
//	    model.Document{Text: "Go's sync package provides mutexes."},
//	    model.Document{ID: "doc-42", Text: "Channels communicate by sharing."},
//	)
//
// Reads are snapshot-isolated: a search observes the document set as of
// the call; concurrent ingestion does not disturb it.
//
// # Lexical Leg
//
// [LexicalIndex] ranks documents with bleve's tf-idf scoring. The bleve
// index is cached by a fingerprint of the document set and rebuilt only
// when the content changes:
//
//	hits, err := store.SearchLexical(ctx, "mutex contention", 50)
//
// # Dense Leg
//
// [VectorIndex] does exact cosine nearest-neighbor search over document
// embeddings:
//
//	hits, err := store.SearchVector(ctx, queryVec, 50)
//
// Both legs return hits ordered score descending with ties broken by
// document ID ascending, so identical inputs always produce identical
// orderings. An empty index yields zero hits, not an error.
package index
