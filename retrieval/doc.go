// Package retrieval implements hybrid passage retrieval over a document
// store: optional query transformation (rewrite, hypothetical-document
// generation), concurrent sparse and dense search legs, reciprocal rank
// fusion, and an optional rerank pass.
//
// # Pipeline
//
// Retrieve runs in four stages:
//
//  1. Transform: the query is optionally rewritten for the sparse leg
//     and expanded into a hypothetical answer passage for the dense leg.
//     Generator failures degrade to the original query.
//  2. Fan-out: the sparse (lexical) and dense (vector) legs run
//     concurrently, each bounded by a per-leg timeout. A leg that fails
//     or times out contributes zero candidates instead of failing the
//     call.
//  3. Fusion: candidates from both legs are merged with reciprocal rank
//     fusion. Each document scores the sum of 1/(k+rank) over the legs
//     that returned it. Ties break by document ID.
//  4. Rerank: the top fused candidates are optionally rescored by an
//     external relevance model against the original query, then the
//     list is truncated to top-K.
//
// Retrieval never fails on provider degradation: the worst case is an
// empty result list, which callers treat as "no context available".
//
// # Example
//
//	store := index.NewStore(index.StoreOptions{Embedder: embedder})
//	store.Add(ctx, docs...)
//
//	retriever, err := retrieval.New(retrieval.Options{
//		Store:    store,
//		Embedder: embedder,
//		Reranker: reranker,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := retriever.Retrieve(ctx, "how do I configure retries?")
//	for _, res := range results {
//		fmt.Println(res.Document.ID, res.Candidate.FusedScore)
//	}
package retrieval
