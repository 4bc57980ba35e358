package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/bedtimenews/newsagent/internal/llm"
)

// GeneratorCall records one generation request for assertions.
type GeneratorCall struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
}

// ScriptedGenerator is a fake text generator that replays a fixed script
// of responses in order. It satisfies the Generator interface the agent
// package defines.
type ScriptedGenerator struct {
	mu sync.Mutex

	// Responses are returned one per call, in order. An entry starting
	// with "ERROR:" is returned as an error instead.
	Responses []string

	// Calls records every request, in order.
	Calls []GeneratorCall
}

func (g *ScriptedGenerator) next(req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Calls = append(g.Calls, GeneratorCall{
		Model:       req.Model,
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
	})

	if len(g.Calls) > len(g.Responses) {
		return "", fmt.Errorf("scripted generator exhausted after %d responses", len(g.Responses))
	}

	resp := g.Responses[len(g.Calls)-1]
	if len(resp) > 6 && resp[:6] == "ERROR:" {
		return "", fmt.Errorf("%s", resp[6:])
	}
	return resp, nil
}

func (g *ScriptedGenerator) Complete(ctx context.Context, req llm.Request) (string, error) {
	return g.next(req)
}

// Stream replays the scripted response as a single chunk.
func (g *ScriptedGenerator) Stream(ctx context.Context, req llm.Request, onChunk func(text string) error) (string, error) {
	resp, err := g.next(req)
	if err != nil {
		return "", err
	}
	if err := onChunk(resp); err != nil {
		return "", err
	}
	return resp, nil
}
