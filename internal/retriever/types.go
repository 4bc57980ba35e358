package retriever

// Request describes one similarity search.
type Request struct {
	// Query is the search text. Must be non-empty.
	Query string

	// MatchThreshold is the minimum cosine similarity, in [0, 1].
	MatchThreshold float64

	// MatchCount is the maximum number of results, in [1, 100].
	MatchCount int

	// DocIDFilter restricts results to the given document IDs when non-empty.
	DocIDFilter []string

	// IncludeText and IncludeHeading control result projection.
	IncludeText    bool
	IncludeHeading bool
}

// Defaults applied by Validate for zero-valued fields.
const (
	DefaultMatchThreshold = 0.7
	DefaultMatchCount     = 10
	MaxMatchCount         = 100
)

// ChunkResult is one retrieved chunk.
type ChunkResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocID      string  `json:"doc_id"`
	ChunkIndex int     `json:"chunk_index"`
	Heading    string  `json:"heading,omitempty"`
	Text       string  `json:"text,omitempty"`
	WordCount  int     `json:"word_count"`
	Similarity float64 `json:"similarity"` // rounded to 4 decimals
	Rank       int     `json:"rank"`       // 1-based position in the result list
}

// Response is the result of one retrieval.
type Response struct {
	Query   string        `json:"query"`
	Results []ChunkResult `json:"results"`
	Total   int           `json:"total"`
}
