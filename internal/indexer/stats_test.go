package indexer

import (
	"testing"

	"github.com/bedtimenews/newsagent/internal/store"
)

// runeCounter counts runes as tokens, close enough for aggregation tests.
type runeCounter struct{}

func (runeCounter) CountTokens(text string) int { return len([]rune(text)) }

func TestComputeStats(t *testing.T) {
	chunks := []store.Chunk{
		{DocID: "main/001", Text: "四字内容"},
		{DocID: "main/001", Text: "六个字的内容"},
		{DocID: "daily/002", Text: "两字"},
	}

	stats := ComputeStats(chunks, runeCounter{}, "text-embedding-3-small", 2)

	if stats.TotalDocuments != 2 {
		t.Errorf("TotalDocuments = %d, want 2", stats.TotalDocuments)
	}
	if stats.TotalChunks != 3 {
		t.Errorf("TotalChunks = %d, want 3", stats.TotalChunks)
	}
	if stats.TotalTokens != 12 {
		t.Errorf("TotalTokens = %d, want 12", stats.TotalTokens)
	}
	if stats.MinTokens != 2 || stats.MaxTokens != 6 {
		t.Errorf("token bounds = [%d, %d], want [2, 6]", stats.MinTokens, stats.MaxTokens)
	}
	if stats.AvgTokensPerChunk != 4 {
		t.Errorf("AvgTokensPerChunk = %g, want 4", stats.AvgTokensPerChunk)
	}
	if stats.EstimatedAPICalls != 2 {
		t.Errorf("EstimatedAPICalls = %d, want 2", stats.EstimatedAPICalls)
	}
	if stats.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %q", stats.EmbeddingModel)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil, runeCounter{}, "text-embedding-3-small", 64)
	if stats.TotalChunks != 0 || stats.MinTokens != 0 || stats.EstimatedAPICalls != 0 {
		t.Errorf("stats = %+v, want zero values", stats)
	}
}
