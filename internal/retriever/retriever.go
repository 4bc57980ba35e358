// Package retriever turns a query into ranked document chunks: it embeds
// the query text, runs a similarity search against the vector store and
// shapes the results, with an LRU cache over the (query, threshold, count)
// triple.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/bedtimenews/newsagent/internal/log"
	"github.com/bedtimenews/newsagent/internal/store"
)

var (
	// ErrInvalidRequest indicates the retrieval request failed validation.
	ErrInvalidRequest = errors.New("invalid retrieval request")

	// ErrEmbedding indicates query embedding failed after all retries.
	ErrEmbedding = errors.New("query embedding failed")
)

const (
	cacheCapacity     = 1000
	embedMaxRetries   = 3
	embedInitialDelay = 500 * time.Millisecond
)

// Searcher is the slice of the vector store the retriever needs.
type Searcher interface {
	SearchSimilarChunks(ctx context.Context, embedding []float32, threshold float64, count int, docIDs []string) ([]store.ChunkMatch, error)
}

// Retriever performs cached similarity retrieval.
// Safe for concurrent use by multiple goroutines.
type Retriever struct {
	searcher Searcher
	embedder ai.Embedder
	cache    *resultCache
	logger   log.Logger
}

// New creates a Retriever.
func New(searcher Searcher, embedder ai.Embedder, logger log.Logger) *Retriever {
	return &Retriever{
		searcher: searcher,
		embedder: embedder,
		cache:    newResultCache(cacheCapacity),
		logger:   logger.With("component", "retriever"),
	}
}

// normalize validates req and fills defaults for zero-valued fields.
func normalize(req Request) (Request, error) {
	if req.Query == "" {
		return req, fmt.Errorf("%w: query must not be empty", ErrInvalidRequest)
	}
	if req.MatchThreshold == 0 {
		req.MatchThreshold = DefaultMatchThreshold
	}
	if req.MatchThreshold < 0 || req.MatchThreshold > 1 {
		return req, fmt.Errorf("%w: match threshold %.3f out of [0, 1]", ErrInvalidRequest, req.MatchThreshold)
	}
	if req.MatchCount == 0 {
		req.MatchCount = DefaultMatchCount
	}
	if req.MatchCount < 1 || req.MatchCount > MaxMatchCount {
		return req, fmt.Errorf("%w: match count %d out of [1, %d]", ErrInvalidRequest, req.MatchCount, MaxMatchCount)
	}
	return req, nil
}

// Retrieve embeds the query and returns ranked chunks.
func (r *Retriever) Retrieve(ctx context.Context, req Request) (*Response, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	// Doc-filtered requests bypass the cache: the key covers only the
	// (query, threshold, count) triple.
	useCache := len(req.DocIDFilter) == 0
	key := cacheKey(req.Query, req.MatchThreshold, req.MatchCount)

	if useCache {
		if results, ok := r.cache.get(key); ok {
			r.logger.Debug("cache hit", "query", req.Query)
			return r.respond(req, results), nil
		}
	}

	embedding, err := r.embedText(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	results, err := r.search(ctx, req, embedding)
	if err != nil {
		return nil, err
	}

	if useCache {
		r.cache.put(key, results)
	}
	return r.respond(req, results), nil
}

// RetrieveBatch retrieves several queries, embedding all cache misses in a
// single provider call. Results are returned in request order.
func (r *Retriever) RetrieveBatch(ctx context.Context, reqs []Request) ([]*Response, error) {
	normalized := make([]Request, len(reqs))
	for i, req := range reqs {
		n, err := normalize(req)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		normalized[i] = n
	}

	responses := make([]*Response, len(normalized))

	// Resolve cache hits first, collect the misses for one embed call.
	var missIdx []int
	for i, req := range normalized {
		if len(req.DocIDFilter) == 0 {
			key := cacheKey(req.Query, req.MatchThreshold, req.MatchCount)
			if results, ok := r.cache.get(key); ok {
				responses[i] = r.respond(req, results)
				continue
			}
		}
		missIdx = append(missIdx, i)
	}

	if len(missIdx) == 0 {
		return responses, nil
	}

	docs := make([]*ai.Document, len(missIdx))
	for j, i := range missIdx {
		docs[j] = ai.DocumentFromText(normalized[i].Query, nil)
	}
	embeddings, err := r.embedDocuments(ctx, docs)
	if err != nil {
		return nil, err
	}

	for j, i := range missIdx {
		req := normalized[i]
		results, err := r.search(ctx, req, embeddings[j])
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", req.Query, err)
		}
		if len(req.DocIDFilter) == 0 {
			r.cache.put(cacheKey(req.Query, req.MatchThreshold, req.MatchCount), results)
		}
		responses[i] = r.respond(req, results)
	}

	return responses, nil
}

// search runs the similarity search and shapes full (unprojected) results.
func (r *Retriever) search(ctx context.Context, req Request, embedding []float32) ([]ChunkResult, error) {
	matches, err := r.searcher.SearchSimilarChunks(ctx, embedding, req.MatchThreshold, req.MatchCount, req.DocIDFilter)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]ChunkResult, len(matches))
	for i, m := range matches {
		results[i] = ChunkResult{
			ChunkID:    m.ChunkID,
			DocID:      m.DocID,
			ChunkIndex: m.ChunkIndex,
			Heading:    m.Heading,
			Text:       m.Text,
			WordCount:  m.WordCount,
			Similarity: math.Round(m.Similarity*10000) / 10000,
			Rank:       i + 1,
		}
	}
	return results, nil
}

// respond applies the projection flags to a copy of results.
func (r *Retriever) respond(req Request, results []ChunkResult) *Response {
	out := make([]ChunkResult, len(results))
	copy(out, results)
	for i := range out {
		if !req.IncludeText {
			out[i].Text = ""
		}
		if !req.IncludeHeading {
			out[i].Heading = ""
		}
	}
	return &Response{Query: req.Query, Results: out, Total: len(out)}
}

// embedText embeds one query with bounded retry.
func (r *Retriever) embedText(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := r.embedDocuments(ctx, []*ai.Document{ai.DocumentFromText(text, nil)})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// embedDocuments embeds docs in one provider call, retrying transient
// failures with exponential backoff.
func (r *Retriever) embedDocuments(ctx context.Context, docs []*ai.Document) ([][]float32, error) {
	var lastErr error
	delay := embedInitialDelay

	for attempt := 0; attempt < embedMaxRetries; attempt++ {
		resp, err := r.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
		if err == nil {
			if len(resp.Embeddings) != len(docs) {
				return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmbedding, len(resp.Embeddings), len(docs))
			}
			out := make([][]float32, len(docs))
			for i, e := range resp.Embeddings {
				if len(e.Embedding) == 0 {
					return nil, fmt.Errorf("%w: empty embedding at index %d", ErrEmbedding, i)
				}
				out[i] = e.Embedding
			}
			return out, nil
		}

		lastErr = err
		if attempt == embedMaxRetries-1 {
			break
		}

		r.logger.Debug("retrying embedding", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay *= 2
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrEmbedding, lastErr)
}
