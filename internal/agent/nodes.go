package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bedtimenews/newsagent/internal/llm"
	"github.com/bedtimenews/newsagent/internal/retriever"
)

// Each node mutates st, appends exactly one reasoning trace entry and
// returns it.

// route classifies the question as a greeting or a knowledge-base query.
// Only an explicit GREETING reply skips retrieval; ambiguous replies
// default to the RAG path so a real question is never left unanswered.
func (e *Engine) route(ctx context.Context, st *State) (string, error) {
	resp, err := e.generator.Complete(ctx, llm.Request{
		Model:  e.cfg.FastModel,
		System: routeSystemPrompt,
		Prompt: "User input: " + st.Question,
	})
	if err != nil {
		return "", err
	}

	decision := strings.ToUpper(strings.TrimSpace(resp))
	st.NeedsRetrieval = decision != "GREETING"

	path := "Direct (greeting)"
	if st.NeedsRetrieval {
		path = "RAG"
	}

	e.logger.Info("routed question", "decision", decision, "path", path)
	return st.addStep(fmt.Sprintf("[ROUTE] Decision: %s. Path: %s", decision, path)), nil
}

// rewrite transforms the question into search queries. The first round
// asks for precise entity-rich queries; retry rounds broaden to 1-2 core
// keywords, telling the model which queries already failed.
func (e *Engine) rewrite(ctx context.Context, st *State) (string, error) {
	system := rewriteSystemPrompt
	if st.IterationCount > 0 {
		system = rewriteRetrySystemPrompt(st.Question, st.IterationCount, st.RewrittenQueries)
	}

	resp, err := e.generator.Complete(ctx, llm.Request{
		Model:  e.cfg.FastModel,
		System: system,
		Prompt: "User input: " + st.Question,
	})
	if err != nil {
		return "", err
	}

	var queries []string
	for _, line := range strings.Split(resp, "\n") {
		if q := strings.TrimSpace(line); q != "" {
			queries = append(queries, q)
		}
	}

	st.RewrittenQueries = queries
	st.IterationCount++

	e.logger.Info("rewrote queries", "count", len(queries), "iteration", st.IterationCount)
	return st.addStep(fmt.Sprintf("[QUERY_REWRITE] Generated %d queries: %v", len(queries), queries)), nil
}

// retrieve searches all rewritten queries concurrently and merges the
// results: duplicates collapse to their first occurrence in query order,
// the merge is sorted by similarity and truncated to topDocuments.
// Individual query failures are tolerated; the step fails only when every
// query fails.
func (e *Engine) retrieve(ctx context.Context, st *State) (string, error) {
	queries := st.RewrittenQueries

	perQuery := make([]*retriever.Response, len(queries))
	perErr := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		g.Go(func() error {
			resp, err := e.searcher.Retrieve(gctx, retriever.Request{
				Query:          query,
				MatchThreshold: e.cfg.MatchThreshold,
				MatchCount:     matchCountPerQuery,
				IncludeText:    true,
				IncludeHeading: true,
			})
			if err != nil {
				e.logger.Warn("query retrieval failed", "query", query, "error", err)
				perErr[i] = err
				return nil
			}
			perQuery[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	total := 0
	failed := 0
	seen := make(map[string]bool)
	var unique []retriever.ChunkResult
	for i := range queries {
		if perErr[i] != nil {
			failed++
			continue
		}
		for _, res := range perQuery[i].Results {
			total++
			if seen[res.ChunkID] {
				continue
			}
			seen[res.ChunkID] = true
			unique = append(unique, res)
		}
	}

	if len(queries) > 0 && failed == len(queries) {
		return "", fmt.Errorf("all %d queries failed, last error: %w", failed, perErr[len(perErr)-1])
	}

	sort.SliceStable(unique, func(a, b int) bool {
		return unique[a].Similarity > unique[b].Similarity
	})
	if len(unique) > topDocuments {
		unique = unique[:topDocuments]
	}

	st.Documents = unique

	e.logger.Info("retrieved documents",
		"chunks", total, "unique", len(seen), "kept", len(unique), "failed_queries", failed)
	return st.addStep(fmt.Sprintf(
		"[RETRIEVE] Retrieved %d chunks (%d unique), kept top %d by similarity.",
		total, len(seen), len(unique))), nil
}

// grade filters the retrieved documents for relevance in one batch call.
// An empty document set skips the model call entirely.
func (e *Engine) grade(ctx context.Context, st *State) (string, error) {
	docs := st.Documents

	if len(docs) == 0 {
		st.RelevantDocuments = nil
		return st.addStep("[GRADE] No documents to grade."), nil
	}

	var chunkList []string
	for i, doc := range docs {
		excerpt := []rune(doc.Text)
		if len(excerpt) > gradeExcerptRunes {
			excerpt = excerpt[:gradeExcerptRunes]
		}
		chunkList = append(chunkList, fmt.Sprintf("Document %d:\n%s\n", i+1, string(excerpt)))
	}

	prompt := fmt.Sprintf("User input: %s\n\n## Documents to Grade:\n\n%s\n\nRelevant document numbers:",
		st.Question, strings.Join(chunkList, "\n---\n"))

	resp, err := e.generator.Complete(ctx, llm.Request{
		Model:  e.cfg.FastModel,
		System: gradeSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}

	indices := parseGradeResponse(resp, len(docs))
	relevant := make([]retriever.ChunkResult, 0, len(indices))
	for _, i := range indices {
		relevant = append(relevant, docs[i])
	}
	st.RelevantDocuments = relevant

	e.logger.Info("graded documents", "graded", len(docs), "relevant", len(relevant))
	return st.addStep(fmt.Sprintf("[GRADE] Graded %d documents, %d relevant.", len(docs), len(relevant))), nil
}

// buildContext renders the relevant documents into the generation prompt,
// each with its citation link, similarity and heading.
func buildContext(docs []retriever.ChunkResult) string {
	if len(docs) == 0 {
		return "No relevant documents found."
	}

	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = fmt.Sprintf("Citation: %s\nSimilarity: %.2f\nHeading: %s\nContent: %s\n",
			citationFor(doc.DocID), doc.Similarity, doc.Heading, doc.Text)
	}
	return strings.Join(parts, "\n---\n")
}

// generate synthesizes the final answer from the relevant documents,
// streaming tokens through onChunk when it is non-nil.
func (e *Engine) generate(ctx context.Context, st *State, onChunk func(string) error) (string, error) {
	req := llm.Request{
		Model:       e.cfg.GenerationModel,
		System:      generateSystemPrompt,
		Prompt:      fmt.Sprintf("User input: %s\n\n## Retrieved Documents:\n\n%s", st.Question, buildContext(st.RelevantDocuments)),
		Temperature: generateTemperature,
	}

	answer, err := e.complete(ctx, req, onChunk)
	if err != nil {
		return "", err
	}
	st.FinalAnswer = answer

	e.logger.Info("generated answer", "documents", len(st.RelevantDocuments), "chars", len([]rune(answer)))
	return st.addStep(fmt.Sprintf("[GENERATE] Generated answer with %d documents. Answer length: %d characters.",
		len(st.RelevantDocuments), len([]rune(answer)))), nil
}

// direct answers greetings and meta-questions without retrieval.
func (e *Engine) direct(ctx context.Context, st *State, onChunk func(string) error) (string, error) {
	req := llm.Request{
		Model:       e.cfg.GenerationModel,
		System:      directSystemPrompt,
		Prompt:      st.Question,
		Temperature: directTemperature,
	}

	answer, err := e.complete(ctx, req, onChunk)
	if err != nil {
		return "", err
	}
	st.FinalAnswer = answer

	e.logger.Info("answered directly", "chars", len([]rune(answer)))
	return st.addStep("[DIRECT] Greeting/meta-question - answered directly."), nil
}

func (e *Engine) complete(ctx context.Context, req llm.Request, onChunk func(string) error) (string, error) {
	if onChunk != nil {
		return e.generator.Stream(ctx, req, onChunk)
	}
	return e.generator.Complete(ctx, req)
}
