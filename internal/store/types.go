package store

import "time"

// Chunk is a section-aware slice of a document, ready for embedding.
// ChunkID encodes the document path and position, e.g.
// "main_501-600_588_chunk_000".
type Chunk struct {
	ChunkID    string
	DocID      string
	ChunkIndex int
	Heading    string // section heading, empty when the document has no headings
	Text       string
	WordCount  int
	Embedding  []float32 // nil until embedded
}

// ChunkMatch is a similarity search hit.
type ChunkMatch struct {
	ChunkID    string
	DocID      string
	ChunkIndex int
	Heading    string
	Text       string
	WordCount  int
	Similarity float64
}

// IndexingHistory records the last indexed state of one file.
type IndexingHistory struct {
	FilePath     string
	ContentHash  string
	IndexedAt    time.Time
	LastModified time.Time
}

// File action types recorded in the audit log.
const (
	ActionAdd    = "ADD"
	ActionModify = "MODIFY"
	ActionDelete = "DELETE"
)

// TableStats summarizes the indexed corpus.
type TableStats struct {
	TotalDocuments int64
	TotalChunks    int64
	TotalWords     int64
	AvgWordsChunk  float64
	MinWordsChunk  int64
	MaxWordsChunk  int64
}
