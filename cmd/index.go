package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bedtimenews/newsagent/internal/app"
	"github.com/bedtimenews/newsagent/internal/config"
	"github.com/bedtimenews/newsagent/internal/indexer"
)

// runIndex executes one incremental indexing pass over the archive.
func runIndex() error {
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

	summary, err := a.Pipeline.Run(ctx)
	if err != nil {
		if errors.Is(err, indexer.ErrPipelineRunning) {
			return errors.New("another indexing run is in progress")
		}
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Printf("Scanned:  %d files\n", summary.FilesScanned)
	fmt.Printf("Added:    %d\n", summary.FilesAdded)
	fmt.Printf("Modified: %d\n", summary.FilesModified)
	fmt.Printf("Deleted:  %d\n", summary.FilesDeleted)
	fmt.Printf("Failed:   %d\n", summary.FilesFailed)
	fmt.Printf("Chunks:   %d\n", summary.ChunksWritten)

	if summary.ChunksWritten > 0 {
		s := summary.Stats
		fmt.Printf("Tokens:   %d total, %.1f avg/chunk (min %d, max %d)\n",
			s.TotalTokens, s.AvgTokensPerChunk, s.MinTokens, s.MaxTokens)
		fmt.Printf("Embedded with %s in ~%d API calls\n", s.EmbeddingModel, s.EstimatedAPICalls)
	}

	// Per-file failures are reported above and logged by the pipeline;
	// only fatal errors (scan, lock, database) exit non-zero.
	if summary.FilesFailed > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d files failed to index, see log for details\n", summary.FilesFailed)
	}
	return nil
}
