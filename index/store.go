package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonwraymond/toolrouting/model"
	"github.com/jonwraymond/toolrouting/provider"
)

// StoreOptions configures a Store.
type StoreOptions struct {
	// Embedder computes document embeddings at ingestion. Nil disables
	// the dense leg: documents are still lexically searchable.
	Embedder provider.Embedder

	// Lexical configures the lexical index.
	Lexical LexicalConfig

	// Logger receives ingestion events. Nil uses a no-op logger.
	Logger *zap.Logger
}

// Store owns the document corpus and both retrieval legs. Embeddings
// are computed once at ingestion and cached alongside each document.
// Safe for concurrent use; searches observe the document set as of the
// call.
type Store struct {
	embedder provider.Embedder
	lexical  *LexicalIndex
	vector   *VectorIndex
	logger   *zap.Logger

	mu   sync.RWMutex
	docs map[string]model.Document
}

// NewStore creates an empty Store.
func NewStore(opts StoreOptions) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		embedder: opts.Embedder,
		lexical:  NewLexicalIndex(opts.Lexical),
		vector:   NewVectorIndex(),
		logger:   logger,
		docs:     make(map[string]model.Document),
	}
}

// Add ingests documents, assigning IDs where absent and computing each
// embedding exactly once. Returns the IDs in input order. A document
// whose embedding fails is still ingested for lexical search; the dense
// leg simply never sees it.
func (s *Store) Add(ctx context.Context, docs ...model.Document) ([]string, error) {
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		if doc.Text == "" {
			return ids, fmt.Errorf("document text is required")
		}
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}

		if doc.Embedding == nil && s.embedder != nil {
			vec, err := s.embedder.Embed(ctx, doc.Text)
			if err != nil {
				s.logger.Warn("document embedding failed, dense leg will skip it",
					zap.String("document", doc.ID), zap.Error(err))
			} else {
				doc.Embedding = vec
			}
		}

		s.mu.Lock()
		s.docs[doc.ID] = doc.Clone()
		s.mu.Unlock()

		if doc.Embedding != nil {
			s.vector.Add(doc.ID, doc.Embedding)
		}
		ids = append(ids, doc.ID)
	}

	return ids, nil
}

// Remove drops a document from the corpus and both legs.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	_, ok := s.docs[id]
	delete(s.docs, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	s.vector.Remove(id)
	return nil
}

// Get returns a copy of the document by ID.
func (s *Store) Get(id string) (model.Document, bool) {
	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return model.Document{}, false
	}
	return doc.Clone(), true
}

// Len returns the number of documents in the corpus.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Documents returns a deep-copied snapshot of the corpus ordered by ID.
func (s *Store) Documents() []model.Document {
	s.mu.RLock()
	docs := make([]model.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// SearchLexical runs the sparse leg over the current corpus snapshot.
func (s *Store) SearchLexical(ctx context.Context, query string, topN int) ([]Hit, error) {
	return s.lexical.Search(ctx, query, topN, s.Documents())
}

// SearchVector runs the dense leg against the given query embedding.
func (s *Store) SearchVector(ctx context.Context, query []float32, topN int) ([]Hit, error) {
	return s.vector.Search(ctx, query, topN)
}

// Close releases index resources.
func (s *Store) Close() error {
	return s.lexical.Close()
}
