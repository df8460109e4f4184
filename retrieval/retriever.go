package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/toolrouting/index"
	"github.com/jonwraymond/toolrouting/model"
	"github.com/jonwraymond/toolrouting/provider"
)

// Method selects which retrieval legs run.
type Method string

const (
	// MethodLexical runs only the sparse leg.
	MethodLexical Method = "lexical"

	// MethodVector runs only the dense leg.
	MethodVector Method = "vector"

	// MethodHybrid runs both legs and fuses their rankings.
	MethodHybrid Method = "hybrid"
)

// Defaults for Options fields left zero.
const (
	DefaultRRFK             = 60
	DefaultTopK             = 10
	DefaultLegTopN          = 50
	DefaultRerankCandidates = 50
	DefaultLegTimeout       = 10 * time.Second
)

// Options configures a Retriever.
type Options struct {
	// Store holds the corpus and both search legs. Required.
	Store *index.Store

	// Embedder embeds the dense-leg query. Nil disables the dense leg.
	Embedder provider.Embedder

	// Transformer produces query variants. Nil disables rewrite and HyDE.
	Transformer *Transformer

	// Reranker rescores the top fused candidates. Nil disables reranking.
	Reranker provider.Reranker

	// Method selects the legs to run. Defaults to MethodHybrid.
	Method Method

	// Rewrite and HyDE enable the corresponding query transforms.
	Rewrite bool
	HyDE    bool

	// Rerank enables the rerank pass when a Reranker is set.
	Rerank bool

	// TopK is the result count returned by Retrieve.
	TopK int

	// LegTopN is the per-leg candidate breadth before fusion.
	LegTopN int

	// RRFK is the reciprocal-rank-fusion constant.
	RRFK int

	// RerankCandidates caps how many fused candidates are rescored.
	RerankCandidates int

	// LegTimeout bounds each search leg. A leg that exceeds it
	// contributes zero candidates.
	LegTimeout time.Duration

	// Logger receives degradation events. Nil uses a no-op logger.
	Logger *zap.Logger
}

// Result pairs a retrieved document with its ranking provenance.
type Result struct {
	Document  model.Document
	Candidate model.Candidate
}

// Retriever runs the hybrid retrieval pipeline. Safe for concurrent
// use.
type Retriever struct {
	store       *index.Store
	embedder    provider.Embedder
	transformer *Transformer
	reranker    provider.Reranker
	logger      *zap.Logger

	method           Method
	rewrite          bool
	hyde             bool
	rerank           bool
	topK             int
	legTopN          int
	rrfK             int
	rerankCandidates int
	legTimeout       time.Duration
}

// New creates a Retriever, applying defaults for zero option fields.
func New(opts Options) (*Retriever, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	r := &Retriever{
		store:            opts.Store,
		embedder:         opts.Embedder,
		transformer:      opts.Transformer,
		reranker:         opts.Reranker,
		logger:           opts.Logger,
		method:           opts.Method,
		rewrite:          opts.Rewrite,
		hyde:             opts.HyDE,
		rerank:           opts.Rerank,
		topK:             opts.TopK,
		legTopN:          opts.LegTopN,
		rrfK:             opts.RRFK,
		rerankCandidates: opts.RerankCandidates,
		legTimeout:       opts.LegTimeout,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.method == "" {
		r.method = MethodHybrid
	}
	switch r.method {
	case MethodLexical, MethodVector, MethodHybrid:
	default:
		return nil, fmt.Errorf("unknown retrieval method %q", r.method)
	}
	if r.topK <= 0 {
		r.topK = DefaultTopK
	}
	if r.legTopN <= 0 {
		r.legTopN = DefaultLegTopN
	}
	if r.rrfK <= 0 {
		r.rrfK = DefaultRRFK
	}
	if r.rerankCandidates <= 0 {
		r.rerankCandidates = DefaultRerankCandidates
	}
	if r.rerankCandidates < r.topK {
		r.rerankCandidates = r.topK
	}
	if r.legTimeout <= 0 {
		r.legTimeout = DefaultLegTimeout
	}
	return r, nil
}

// Retrieve runs the full pipeline for query and returns at most TopK
// results. Provider failures and leg timeouts degrade (pass-through
// transform, empty leg, skipped rerank); an empty corpus or no matches
// yields an empty, non-nil-error result.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	variants := r.transform(ctx, query)
	sparseHits, denseHits := r.runLegs(ctx, variants)

	candidates := fuse(sparseHits, denseHits, r.rrfK)
	if len(candidates) == 0 {
		return []Result{}, nil
	}

	if r.rerank && r.reranker != nil {
		candidates = r.rerankCandidatesPass(ctx, query, candidates)
	}
	if len(candidates) > r.topK {
		candidates = candidates[:r.topK]
	}

	results := make([]Result, 0, len(candidates))
	for _, cand := range candidates {
		doc, ok := r.store.Get(cand.DocumentID)
		if !ok {
			// Removed between search and lookup; skip.
			continue
		}
		results = append(results, Result{Document: doc, Candidate: cand})
	}
	return results, nil
}

func (r *Retriever) transform(ctx context.Context, query string) Transformed {
	if r.transformer == nil || (!r.rewrite && !r.hyde) {
		return Transformed{Original: query, Sparse: query, Dense: query}
	}
	return r.transformer.Transform(ctx, query, TransformOptions{
		Rewrite: r.rewrite,
		HyDE:    r.hyde,
	})
}

// runLegs fans out the enabled legs concurrently and waits for both. A
// leg that errors or times out yields zero hits.
func (r *Retriever) runLegs(ctx context.Context, variants Transformed) (sparse, dense []index.Hit) {
	g, gctx := errgroup.WithContext(ctx)

	if r.method != MethodVector {
		g.Go(func() error {
			sparse = r.sparseLeg(gctx, variants.Sparse)
			return nil
		})
	}
	if r.method != MethodLexical {
		g.Go(func() error {
			dense = r.denseLeg(gctx, variants.Dense)
			return nil
		})
	}
	_ = g.Wait()
	return sparse, dense
}

func (r *Retriever) sparseLeg(ctx context.Context, query string) []index.Hit {
	legCtx, cancel := context.WithTimeout(ctx, r.legTimeout)
	defer cancel()

	hits, err := r.store.SearchLexical(legCtx, query, r.legTopN)
	if err != nil {
		r.logger.Warn("sparse leg degraded to empty", zap.Error(err))
		return nil
	}
	return hits
}

func (r *Retriever) denseLeg(ctx context.Context, query string) []index.Hit {
	if r.embedder == nil {
		return nil
	}
	legCtx, cancel := context.WithTimeout(ctx, r.legTimeout)
	defer cancel()

	vec, err := r.embedder.Embed(legCtx, query)
	if err != nil {
		r.logger.Warn("dense leg degraded to empty", zap.Error(err))
		return nil
	}
	hits, err := r.store.SearchVector(legCtx, vec, r.legTopN)
	if err != nil {
		r.logger.Warn("dense leg degraded to empty", zap.Error(err))
		return nil
	}
	return hits
}

// rerankCandidatesPass rescores the top fused candidates against the
// original query. Any failure — a scoring error, or a candidate whose
// document left the store mid-call — skips the pass entirely and keeps
// the fused order, so reranked and unreranked scores never mix.
func (r *Retriever) rerankCandidatesPass(ctx context.Context, query string, candidates []model.Candidate) []model.Candidate {
	limit := min(len(candidates), r.rerankCandidates)
	head := make([]model.Candidate, limit)
	copy(head, candidates[:limit])

	for i := range head {
		doc, ok := r.store.Get(head[i].DocumentID)
		if !ok {
			r.logger.Warn("rerank skipped, candidate document removed",
				zap.String("document", head[i].DocumentID))
			return candidates
		}
		score, err := r.reranker.Score(ctx, query, doc.Text)
		if err != nil {
			r.logger.Warn("rerank skipped, keeping fused order", zap.Error(err))
			return candidates
		}
		head[i].RerankScore = score
		head[i].Reranked = true
	}

	sort.Slice(head, func(i, j int) bool {
		if head[i].RerankScore != head[j].RerankScore {
			return head[i].RerankScore > head[j].RerankScore
		}
		return head[i].DocumentID < head[j].DocumentID
	})
	return head
}

// fuse merges the two legs with reciprocal rank fusion: each document
// scores the sum of 1/(k+rank) over the legs that returned it. The
// result is ordered fused score descending, document ID ascending.
func fuse(sparse, dense []index.Hit, k int) []model.Candidate {
	byID := make(map[string]*model.Candidate, len(sparse)+len(dense))

	for i, hit := range sparse {
		rank := i + 1
		byID[hit.DocumentID] = &model.Candidate{
			DocumentID: hit.DocumentID,
			SparseRank: rank,
			FusedScore: 1 / float64(k+rank),
		}
	}
	for i, hit := range dense {
		rank := i + 1
		if cand, ok := byID[hit.DocumentID]; ok {
			cand.DenseRank = rank
			cand.FusedScore += 1 / float64(k+rank)
			continue
		}
		byID[hit.DocumentID] = &model.Candidate{
			DocumentID: hit.DocumentID,
			DenseRank:  rank,
			FusedScore: 1 / float64(k+rank),
		}
	}

	fused := make([]model.Candidate, 0, len(byID))
	for _, cand := range byID {
		fused = append(fused, *cand)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		return fused[i].DocumentID < fused[j].DocumentID
	})
	return fused
}
