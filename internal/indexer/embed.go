package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pkoukk/tiktoken-go"

	"github.com/bedtimenews/newsagent/internal/log"
)

// Token limits for the OpenAI embedding API.
const (
	maxTokensPerInput = 8191
	splitTokenMargin  = 100 // headroom below the limit for split pieces

	embedMaxAttempts  = 3
	embedInitialDelay = time.Second
)

// tokenEncoder is the tokenizer subset the Embedder needs. Satisfied by
// *tiktoken.Tiktoken.
type tokenEncoder interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

// Embedder turns chunk texts into vectors. Texts over the model's token
// limit are split, embedded separately, and the resulting vectors merged
// by element-wise average so callers always get one vector per input.
type Embedder struct {
	embedder   ai.Embedder
	encoding   tokenEncoder
	batchSize  int
	retryDelay time.Duration
	logger     log.Logger
}

// NewEmbedder wraps a Genkit embedder with token-aware splitting. The
// tokenizer falls back to cl100k_base when the model is unknown to
// tiktoken, which holds for all current OpenAI embedding models.
func NewEmbedder(embedder ai.Embedder, model string, batchSize int, logger log.Logger) (*Embedder, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn("unknown model for tokenizer, falling back to cl100k_base",
			"model", model, "error", err)
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load cl100k_base encoding: %w", err)
		}
	}

	return &Embedder{
		embedder:   embedder,
		encoding:   encoding,
		batchSize:  batchSize,
		retryDelay: embedInitialDelay,
		logger:     logger,
	}, nil
}

// CountTokens returns the token count of one text.
func (e *Embedder) CountTokens(text string) int {
	return len(e.encoding.Encode(text, nil, nil))
}

// EmbedTexts embeds all texts and returns one vector per input, in order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	pieces, owners := e.splitOversized(texts)

	vectors := make([][]float32, 0, len(pieces))
	for start := 0; start < len(pieces); start += e.batchSize {
		end := min(start+e.batchSize, len(pieces))

		batch, err := e.embedBatch(ctx, pieces[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}

	return mergeByOwner(vectors, owners, len(texts)), nil
}

// splitOversized breaks texts above the token limit into pieces that fit,
// and records which original index each piece belongs to.
func (e *Embedder) splitOversized(texts []string) (pieces []string, owners []int) {
	limit := maxTokensPerInput - splitTokenMargin

	for i, text := range texts {
		tokens := e.encoding.Encode(text, nil, nil)
		if len(tokens) <= maxTokensPerInput {
			pieces = append(pieces, text)
			owners = append(owners, i)
			continue
		}

		e.logger.Warn("text exceeds embedding token limit, splitting",
			"index", i, "tokens", len(tokens))

		for start := 0; start < len(tokens); start += limit {
			end := min(start+limit, len(tokens))
			pieces = append(pieces, e.encoding.Decode(tokens[start:end]))
			owners = append(owners, i)
		}
	}
	return pieces, owners
}

// embedBatch calls the embedding model once with retry on transient
// failures.
func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(text, nil)
	}

	var lastErr error
	delay := e.retryDelay
	if delay <= 0 {
		delay = embedInitialDelay
	}
	for attempt := range embedMaxAttempts {
		if attempt > 0 {
			e.logger.Warn("retrying embedding batch",
				"attempt", attempt+1, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Embeddings) != len(docs) {
			lastErr = fmt.Errorf("embedding count mismatch: got %d, want %d",
				len(resp.Embeddings), len(docs))
			continue
		}

		vectors := make([][]float32, len(resp.Embeddings))
		for i, emb := range resp.Embeddings {
			vectors[i] = emb.Embedding
		}
		return vectors, nil
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", embedMaxAttempts, lastErr)
}

// mergeByOwner averages the piece vectors of split texts back into one
// vector per original input.
func mergeByOwner(vectors [][]float32, owners []int, total int) [][]float32 {
	out := make([][]float32, total)
	counts := make([]int, total)

	for i, vec := range vectors {
		owner := owners[i]
		if out[owner] == nil {
			out[owner] = make([]float32, len(vec))
		}
		for j, v := range vec {
			out[owner][j] += v
		}
		counts[owner]++
	}

	for i, vec := range out {
		if counts[i] > 1 {
			for j := range vec {
				vec[j] /= float32(counts[i])
			}
		}
	}
	return out
}
