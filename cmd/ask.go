package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bedtimenews/newsagent/internal/agent"
	"github.com/bedtimenews/newsagent/internal/app"
	"github.com/bedtimenews/newsagent/internal/config"
)

// runAsk answers one question on the command line, streaming workflow
// progress to stderr and the answer to stdout.
func runAsk(args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return errors.New("usage: newsagent ask <question>")
	}

	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	_, err = a.Engine.StreamQuery(ctx, question, func(ev agent.Event) error {
		switch ev.Type {
		case agent.EventStep:
			fmt.Fprintln(os.Stderr, ev.Content)
		case agent.EventAnswerChunk:
			fmt.Print(ev.Content)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println()
	return nil
}
