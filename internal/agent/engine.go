// Package agent implements the agentic retrieval workflow: a state
// machine that routes a question, rewrites it into search queries,
// retrieves and grades document chunks, retries with broader queries when
// nothing relevant is found, and generates a cited answer.
//
// Workflow:
//
//	route ── greeting ──────────────────────→ direct
//	  │
//	  └─ RAG → rewrite → retrieve → grade ─┬→ generate
//	              ↑                        │
//	              └──── no relevant docs ──┘
//	                    (bounded by MaxIterations)
package agent

import (
	"context"
	"fmt"

	"github.com/bedtimenews/newsagent/internal/llm"
	"github.com/bedtimenews/newsagent/internal/log"
	"github.com/bedtimenews/newsagent/internal/retriever"
)

// Tuning constants of the retrieval round.
const (
	// matchCountPerQuery is the per-query search width.
	matchCountPerQuery = 100

	// topDocuments caps the merged result set passed to grading.
	topDocuments = 30

	// gradeExcerptRunes bounds each document excerpt shown to the grader.
	gradeExcerptRunes = 500
)

// Generation temperatures, per answer mode.
const (
	generateTemperature = 0.3
	directTemperature   = 0.7
)

// Generator is the slice of the LLM client the workflow needs.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	Stream(ctx context.Context, req llm.Request, onChunk func(text string) error) (string, error)
}

// Searcher is the slice of the retriever the workflow needs.
type Searcher interface {
	Retrieve(ctx context.Context, req retriever.Request) (*retriever.Response, error)
}

// Config holds the workflow tuning knobs.
type Config struct {
	FastModel       string  // routing, rewriting, grading
	GenerationModel string  // answer generation
	MatchThreshold  float64 // similarity floor for retrieval
	MaxIterations   int     // rewrite rounds after the first
}

// Engine runs the workflow. Safe for concurrent use: all per-question
// state lives in State.
type Engine struct {
	generator Generator
	searcher  Searcher
	cfg       Config
	logger    log.Logger
}

// NewEngine creates a workflow engine.
func NewEngine(generator Generator, searcher Searcher, cfg Config, logger log.Logger) *Engine {
	return &Engine{
		generator: generator,
		searcher:  searcher,
		cfg:       cfg,
		logger:    logger.With("component", "agent"),
	}
}

// routeDecision is the outcome of the routing node.
type routeDecision int

const (
	routeRetrieve routeDecision = iota
	routeDirect
)

// gradeDecision is the outcome after grading a retrieval round.
type gradeDecision int

const (
	gradeGenerate gradeDecision = iota
	gradeRewrite
)

// decideRoute picks the path after routing.
func decideRoute(st *State) routeDecision {
	if st.NeedsRetrieval {
		return routeRetrieve
	}
	return routeDirect
}

// decideAfterGrade picks between generating and another rewrite round.
// Generation proceeds with an empty document set once the iteration
// budget is spent.
func decideAfterGrade(st *State) gradeDecision {
	if len(st.RelevantDocuments) > 0 {
		return gradeGenerate
	}
	if st.IterationCount < st.MaxIterations {
		return gradeRewrite
	}
	return gradeGenerate
}

// Query runs the workflow to completion and returns the final answer.
func (e *Engine) Query(ctx context.Context, question string) (string, error) {
	st, err := e.run(ctx, question, nil)
	if err != nil {
		return "", err
	}
	return st.FinalAnswer, nil
}

// StreamQuery runs the workflow, forwarding step and answer_chunk events
// to emit as they occur, and returns the final state. Step events are
// deduplicated per (step, content) pair.
func (e *Engine) StreamQuery(ctx context.Context, question string, emit func(Event) error) (*State, error) {
	return e.run(ctx, question, emit)
}

// run is the workflow driver. emit may be nil for synchronous use.
func (e *Engine) run(ctx context.Context, question string, emit func(Event) error) (*State, error) {
	st := NewState(question, e.cfg.MaxIterations)

	emitted := make(map[string]bool)
	emitStep := func(step Step, content string) error {
		if emit == nil {
			return nil
		}
		key := string(step) + "_" + content
		if emitted[key] {
			return nil
		}
		emitted[key] = true
		return emit(Event{Type: EventStep, Step: step, Content: content})
	}

	var emitToken func(text string) error
	if emit != nil {
		emitToken = func(text string) error {
			return emit(Event{Type: EventAnswerChunk, Content: text})
		}
	}

	trace, err := e.route(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}
	if err := emitStep(StepRoute, trace); err != nil {
		return nil, err
	}

	switch decideRoute(st) {
	case routeDirect:
		trace, err := e.direct(ctx, st, emitToken)
		if err != nil {
			return nil, fmt.Errorf("direct: %w", err)
		}
		if err := emitStep(StepGenerate, trace); err != nil {
			return nil, err
		}
		return st, nil

	case routeRetrieve:
		for {
			trace, err := e.rewrite(ctx, st)
			if err != nil {
				return nil, fmt.Errorf("rewrite: %w", err)
			}
			if err := emitStep(StepRewrite, trace); err != nil {
				return nil, err
			}

			trace, err = e.retrieve(ctx, st)
			if err != nil {
				return nil, fmt.Errorf("retrieve: %w", err)
			}
			if err := emitStep(StepRetrieve, trace); err != nil {
				return nil, err
			}

			trace, err = e.grade(ctx, st)
			if err != nil {
				return nil, fmt.Errorf("grade: %w", err)
			}
			if err := emitStep(StepGrade, trace); err != nil {
				return nil, err
			}

			if decideAfterGrade(st) == gradeGenerate {
				break
			}
		}

		trace, err := e.generate(ctx, st, emitToken)
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		if err := emitStep(StepGenerate, trace); err != nil {
			return nil, err
		}
		return st, nil
	}

	return st, nil
}
