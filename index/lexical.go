package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/jonwraymond/toolrouting/model"
)

// Hit is one scored result from a retrieval leg.
type Hit struct {
	// DocumentID identifies the matched document.
	DocumentID string

	// Score is the leg's raw score: tf-idf for the lexical leg, cosine
	// similarity for the dense leg. Scores are comparable only within
	// one leg; fusion works on ranks, not raw scores.
	Score float64
}

// LexicalConfig configures a LexicalIndex.
type LexicalConfig struct {
	// MaxDocTextLen truncates document text before indexing.
	// 0 = unlimited.
	MaxDocTextLen int
}

// LexicalIndex ranks documents with bleve's tf-idf scoring over an
// in-memory inverted index. The bleve index is cached by document-set
// fingerprint and rebuilt only when content changes. Safe for
// concurrent use.
type LexicalIndex struct {
	config LexicalConfig

	mu          sync.Mutex
	index       bleve.Index
	fingerprint string
}

// NewLexicalIndex creates an empty LexicalIndex.
func NewLexicalIndex(cfg LexicalConfig) *LexicalIndex {
	return &LexicalIndex{config: cfg}
}

type lexicalDoc struct {
	Text string `json:"text"`
}

// Search ranks docs against query and returns the top-N hits, score
// descending with ties broken by document ID. An empty query or empty
// document set yields zero hits.
func (l *LexicalIndex) Search(ctx context.Context, query string, topN int, docs []model.Document) ([]Hit, error) {
	if topN <= 0 || len(docs) == 0 || query == "" {
		return nil, nil
	}

	idx, err := l.ensureIndex(docs)
	if err != nil {
		return nil, err
	}

	mq := bleve.NewMatchQuery(query)
	mq.SetField("text")
	req := bleve.NewSearchRequestOptions(mq, topN, 0, false)

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{DocumentID: h.ID, Score: h.Score})
	}
	sortHits(hits)
	return hits, nil
}

// Close releases the cached bleve index.
func (l *LexicalIndex) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.index == nil {
		return nil
	}
	err := l.index.Close()
	l.index = nil
	l.fingerprint = ""
	return err
}

// ensureIndex returns a bleve index covering exactly docs, rebuilding
// only when the document set fingerprint changes.
func (l *LexicalIndex) ensureIndex(docs []model.Document) (bleve.Index, error) {
	fingerprint := computeFingerprint(docs)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.index != nil && l.fingerprint == fingerprint {
		return l.index, nil
	}

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("build lexical index: %w", err)
	}

	batch := idx.NewBatch()
	for _, doc := range docs {
		text := doc.Text
		if l.config.MaxDocTextLen > 0 && len(text) > l.config.MaxDocTextLen {
			text = text[:l.config.MaxDocTextLen]
		}
		if err := batch.Index(doc.ID, lexicalDoc{Text: text}); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("index document %s: %w", doc.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("apply index batch: %w", err)
	}

	if l.index != nil {
		_ = l.index.Close()
	}
	l.index = idx
	l.fingerprint = fingerprint
	return idx, nil
}

// sortHits orders score descending, then document ID ascending for
// deterministic results.
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})
}
