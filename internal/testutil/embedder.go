package testutil

import (
	"context"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// MockEmbedder implements ai.Embedder for testing.
// The zero value returns a fixed 3-dimensional vector for every input.
type MockEmbedder struct {
	mu sync.Mutex

	// Err, when set, is returned by every Embed call.
	Err error

	// ErrUntilCall makes Embed fail with Err while CallCount < ErrUntilCall.
	// Used to exercise retry paths.
	ErrUntilCall int

	// EmbedFunc, when set, computes the vector for each input text.
	EmbedFunc func(text string) []float32

	// CallCount counts Embed invocations.
	CallCount int

	// Inputs records the text of every embedded document.
	Inputs []string
}

func (m *MockEmbedder) Name() string { return "mock-embedder" }

func (m *MockEmbedder) Register(r api.Registry) {
	// No-op for testing
}

func (m *MockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	if m.Err != nil && (m.ErrUntilCall == 0 || m.CallCount <= m.ErrUntilCall) {
		return nil, m.Err
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		text := ""
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		m.Inputs = append(m.Inputs, text)

		vec := []float32{0.1, 0.2, 0.3}
		if m.EmbedFunc != nil {
			vec = m.EmbedFunc(text)
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: vec})
	}
	return resp, nil
}
