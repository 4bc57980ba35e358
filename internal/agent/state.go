package agent

import "github.com/bedtimenews/newsagent/internal/retriever"

// State flows through the workflow nodes, accumulating information and
// transformations at each step.
type State struct {
	// Question is the original user input, never mutated.
	Question string

	// NeedsRetrieval is the routing decision: true for the RAG path,
	// false for a direct answer.
	NeedsRetrieval bool

	// RewrittenQueries are the search queries of the current round.
	// Overwritten, not appended, on each rewrite.
	RewrittenQueries []string

	// Documents are the merged retrieval results of the current round.
	Documents []retriever.ChunkResult

	// RelevantDocuments is the graded subset of Documents.
	RelevantDocuments []retriever.ChunkResult

	// FinalAnswer is the generated answer with citations.
	FinalAnswer string

	// ReasoningSteps is the append-only trace of node decisions.
	ReasoningSteps []string

	// IterationCount counts rewrite rounds; incremented by the rewrite
	// node. Never exceeds MaxIterations+1.
	IterationCount int

	// MaxIterations bounds the query refinement loop.
	MaxIterations int
}

// NewState creates the initial workflow state for a question.
func NewState(question string, maxIterations int) *State {
	return &State{
		Question:      question,
		MaxIterations: maxIterations,
	}
}

// addStep appends a reasoning trace entry and returns it.
func (s *State) addStep(entry string) string {
	s.ReasoningSteps = append(s.ReasoningSteps, entry)
	return entry
}
