// Package provider defines the external capability contracts consumed by
// the routing and retrieval packages, without enforcing any specific
// backend. This allows users to bring their own inference provider
// (OpenAI, Ollama, local models).
//
// # Core Interfaces
//
// The package defines three capability interfaces:
//
//   - [Embedder]: maps text to a fixed-length vector
//   - [Generator]: produces text from a prompt (query rewrite, HyDE)
//   - [Reranker]: scores a candidate passage against a query
//
// All three are suspension points: implementations should honor context
// cancellation and deadlines. Callers guard every invocation with a
// per-call timeout and degrade per their documented fallback when the
// call fails.
//
// # Unavailability
//
// [ErrUnavailable] signals that the backing capability cannot be
// reached. Components recover locally: semantic matching degrades to "no
// match", query transformation passes the original query through, and
// reranking is skipped. Check with errors.Is:
//
//	if errors.Is(err, provider.ErrUnavailable) {
//	    // fall back
//	}
//
// # HTTP Implementation
//
// [HTTPClient] implements all three interfaces against an
// OpenAI-compatible API (embeddings, chat completions, rerank), with
// exponential-backoff retries on transient failures:
//
//	client, err := provider.NewHTTPClient(provider.HTTPConfig{
//	    BaseURL:         "http://localhost:11434/v1",
//	    EmbeddingModel:  "nomic-embed-text",
//	    GenerationModel: "qwen2.5",
//	})
//
// # Embedding Cache
//
// [CachingEmbedder] memoizes embeddings by input text. Tool description
// embeddings and repeated queries hit the cache instead of the backend:
//
//	embedder := provider.NewCachingEmbedder(client, 4096)
package provider
