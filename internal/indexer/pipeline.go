package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/bedtimenews/newsagent/internal/log"
	"github.com/bedtimenews/newsagent/internal/store"
)

// ErrPipelineRunning is returned when another indexing run holds the lock.
var ErrPipelineRunning = errors.New("indexing pipeline is already running")

// TextEmbedder is the embedding surface the pipeline needs.
type TextEmbedder interface {
	TokenCounter
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore is the persistence surface the pipeline needs.
type ChunkStore interface {
	GetIndexingHistory(ctx context.Context) (map[string]string, error)
	ReindexDocument(ctx context.Context, filePath, docID, contentHash, action string, chunks []store.Chunk) error
	RemoveDocument(ctx context.Context, filePath, docID string) error
}

// Summary reports one pipeline run.
type Summary struct {
	FilesScanned  int
	FilesAdded    int
	FilesModified int
	FilesDeleted  int
	FilesFailed   int
	ChunksWritten int
	Stats         Stats
}

// Pipeline runs incremental indexing: scan the archive, detect changes
// against the stored history, and reindex only what changed. A file lock
// keeps concurrent runs from racing on the same tables.
type Pipeline struct {
	store       ChunkStore
	embedder    TextEmbedder
	contentsDir string
	configFile  string
	lockFile    string
	model       string
	batchSize   int
	chunkOpts   Options
	logger      log.Logger
}

// NewPipeline wires an indexing pipeline. The lock file path should be
// stable across runs on the same host.
func NewPipeline(st ChunkStore, emb TextEmbedder, contentsDir, configFile, lockFile, model string, batchSize int, logger log.Logger) *Pipeline {
	return &Pipeline{
		store:       st,
		embedder:    emb,
		contentsDir: contentsDir,
		configFile:  configFile,
		lockFile:    lockFile,
		model:       model,
		batchSize:   batchSize,
		chunkOpts:   DefaultOptions(),
		logger:      logger,
	}
}

// Run executes one incremental indexing pass. Per-file failures are
// logged and counted but do not abort the run; the failed files stay
// unindexed and will be retried on the next run.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	lock := flock.New(p.lockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire pipeline lock %s: %w", p.lockFile, err)
	}
	if !locked {
		return nil, ErrPipelineRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("release pipeline lock", "error", err)
		}
	}()

	scanCfg, err := LoadScanConfig(p.configFile)
	if err != nil {
		return nil, err
	}

	files, err := ScanFiles(p.contentsDir, scanCfg)
	if err != nil {
		return nil, err
	}

	history, err := p.store.GetIndexingHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load indexing history: %w", err)
	}

	changes, err := DetectChanges(p.contentsDir, files, history)
	if err != nil {
		return nil, err
	}

	p.logger.Info("change detection complete",
		"scanned", len(files),
		"added", len(changes.Added),
		"modified", len(changes.Modified),
		"deleted", len(changes.Deleted))

	summary := &Summary{FilesScanned: len(files)}
	var produced []store.Chunk

	for _, rel := range changes.Added {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks, err := p.reindexFile(ctx, rel, store.ActionAdd)
		if err != nil {
			p.logger.Error("index file", "file", rel, "action", store.ActionAdd, "error", err)
			summary.FilesFailed++
			continue
		}
		summary.FilesAdded++
		summary.ChunksWritten += len(chunks)
		produced = append(produced, chunks...)
	}

	for _, rel := range changes.Modified {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks, err := p.reindexFile(ctx, rel, store.ActionModify)
		if err != nil {
			p.logger.Error("index file", "file", rel, "action", store.ActionModify, "error", err)
			summary.FilesFailed++
			continue
		}
		summary.FilesModified++
		summary.ChunksWritten += len(chunks)
		produced = append(produced, chunks...)
	}

	for _, rel := range changes.Deleted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.store.RemoveDocument(ctx, rel, DocID(rel)); err != nil {
			p.logger.Error("remove file", "file", rel, "error", err)
			summary.FilesFailed++
			continue
		}
		summary.FilesDeleted++
	}

	summary.Stats = ComputeStats(produced, p.embedder, p.model, p.batchSize)

	p.logger.Info("indexing run complete",
		"added", summary.FilesAdded,
		"modified", summary.FilesModified,
		"deleted", summary.FilesDeleted,
		"failed", summary.FilesFailed,
		"chunks", summary.ChunksWritten)
	return summary, nil
}

// reindexFile loads, chunks, embeds, and stores one document atomically.
func (p *Pipeline) reindexFile(ctx context.Context, rel, action string) ([]store.Chunk, error) {
	docID := DocID(rel)

	doc, err := LoadDocument(p.contentsDir, docID)
	if err != nil {
		return nil, err
	}

	hash, err := FileHash(filepath.Join(p.contentsDir, rel))
	if err != nil {
		return nil, err
	}

	chunks := ChunkDocument(doc, p.chunkOpts)
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", rel, err)
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	}

	if err := p.store.ReindexDocument(ctx, rel, docID, hash, action, chunks); err != nil {
		return nil, fmt.Errorf("store %s: %w", rel, err)
	}
	return chunks, nil
}
