package indexer

import (
	"math"

	"github.com/bedtimenews/newsagent/internal/store"
)

// Stats summarizes a set of produced chunks before embedding, including
// a cost estimate for the embedding calls.
type Stats struct {
	TotalDocuments    int     `json:"total_documents"`
	TotalChunks       int     `json:"total_chunks"`
	TotalTokens       int     `json:"total_tokens"`
	AvgTokensPerChunk float64 `json:"avg_tokens_per_chunk"`
	MinTokens         int     `json:"min_tokens"`
	MaxTokens         int     `json:"max_tokens"`
	EmbeddingModel    string  `json:"embedding_model"`
	EstimatedAPICalls int     `json:"estimated_api_calls"`
}

// TokenCounter reports the model token count of a text.
type TokenCounter interface {
	CountTokens(text string) int
}

// ComputeStats tokenizes every chunk and aggregates the counts.
func ComputeStats(chunks []store.Chunk, counter TokenCounter, model string, batchSize int) Stats {
	stats := Stats{EmbeddingModel: model}
	if len(chunks) == 0 {
		return stats
	}

	docs := make(map[string]struct{})
	stats.MinTokens = math.MaxInt

	for _, c := range chunks {
		docs[c.DocID] = struct{}{}

		tokens := counter.CountTokens(c.Text)
		stats.TotalTokens += tokens
		stats.MinTokens = min(stats.MinTokens, tokens)
		stats.MaxTokens = max(stats.MaxTokens, tokens)
	}

	stats.TotalDocuments = len(docs)
	stats.TotalChunks = len(chunks)
	stats.AvgTokensPerChunk = float64(stats.TotalTokens) / float64(len(chunks))
	stats.EstimatedAPICalls = (len(chunks) + batchSize - 1) / batchSize
	return stats
}
