package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"github.com/bedtimenews/newsagent/internal/store"
	"github.com/bedtimenews/newsagent/internal/testutil"
)

type fakeStore struct {
	mu      sync.Mutex
	history map[string]string

	reindexed []string // "ACTION file" in call order
	removed   []string
	chunks    map[string][]store.Chunk

	reindexErr map[string]error
}

func newFakeStore(history map[string]string) *fakeStore {
	return &fakeStore{
		history:    history,
		chunks:     make(map[string][]store.Chunk),
		reindexErr: make(map[string]error),
	}
}

func (f *fakeStore) GetIndexingHistory(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.history))
	for k, v := range f.history {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) ReindexDocument(ctx context.Context, filePath, docID, contentHash, action string, chunks []store.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reindexErr[filePath]; err != nil {
		return err
	}
	f.reindexed = append(f.reindexed, action+" "+filePath)
	f.chunks[filePath] = chunks
	return nil
}

func (f *fakeStore) RemoveDocument(ctx context.Context, filePath, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, filePath)
	return nil
}

// fakeTextEmbedder avoids the tokenizer and returns fixed-size vectors.
type fakeTextEmbedder struct {
	embedErr error
	calls    int
}

func (f *fakeTextEmbedder) CountTokens(text string) int { return len([]rune(text)) }

func (f *fakeTextEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func testPipeline(t *testing.T, st ChunkStore, emb TextEmbedder, contentsDir string) *Pipeline {
	t.Helper()
	cfgFile := writeScanConfig(t, "include:\n  - \"*.md\"\n")
	lockFile := filepath.Join(t.TempDir(), "index.lock")
	p := NewPipeline(st, emb, contentsDir, cfgFile, lockFile, "text-embedding-3-small", 64, testutil.QuietLogger())
	p.chunkOpts.MinChunkSize = 0
	return p
}

func episodeText(n int) string {
	return fmt.Sprintf("# 第%d期\n\n", n) + strings.Repeat("正文内容。", 60)
}

func TestPipelineFirstRunAddsEverything(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main/001.md", episodeText(1))
	writeFile(t, dir, "daily/002.md", episodeText(2))

	st := newFakeStore(nil)
	emb := &fakeTextEmbedder{}
	p := testPipeline(t, st, emb, dir)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.FilesScanned != 2 || summary.FilesAdded != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.FilesModified != 0 || summary.FilesDeleted != 0 || summary.FilesFailed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(st.reindexed) != 2 || st.reindexed[0] != "ADD daily/002.md" || st.reindexed[1] != "ADD main/001.md" {
		t.Errorf("reindexed = %v", st.reindexed)
	}
	for _, chunks := range st.chunks {
		for _, c := range chunks {
			if len(c.Embedding) == 0 {
				t.Errorf("chunk %s stored without embedding", c.ChunkID)
			}
		}
	}
	if summary.Stats.TotalDocuments != 2 {
		t.Errorf("Stats.TotalDocuments = %d", summary.Stats.TotalDocuments)
	}
}

func TestPipelineIncrementalRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main/001.md", episodeText(1))
	writeFile(t, dir, "main/002.md", episodeText(2))

	unchangedHash, err := FileHash(filepath.Join(dir, "main", "001.md"))
	if err != nil {
		t.Fatal(err)
	}
	st := newFakeStore(map[string]string{
		"main/001.md": unchangedHash,
		"main/002.md": "stale-hash",
		"main/003.md": "gone-hash",
	})
	p := testPipeline(t, st, &fakeTextEmbedder{}, dir)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.FilesAdded != 0 || summary.FilesModified != 1 || summary.FilesDeleted != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(st.reindexed) != 1 || st.reindexed[0] != "MODIFY main/002.md" {
		t.Errorf("reindexed = %v", st.reindexed)
	}
	if len(st.removed) != 1 || st.removed[0] != "main/003.md" {
		t.Errorf("removed = %v", st.removed)
	}
}

func TestPipelineContinuesAfterFileFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main/001.md", episodeText(1))
	writeFile(t, dir, "main/002.md", episodeText(2))

	st := newFakeStore(nil)
	st.reindexErr["main/001.md"] = errors.New("connection refused")
	p := testPipeline(t, st, &fakeTextEmbedder{}, dir)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.FilesFailed != 1 || summary.FilesAdded != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(st.reindexed) != 1 || st.reindexed[0] != "ADD main/002.md" {
		t.Errorf("reindexed = %v", st.reindexed)
	}
}

func TestPipelineEmbeddingFailureCountsAsFailed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main/001.md", episodeText(1))

	st := newFakeStore(nil)
	p := testPipeline(t, st, &fakeTextEmbedder{embedErr: errors.New("quota exceeded")}, dir)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FilesFailed != 1 || summary.FilesAdded != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(st.reindexed) != 0 {
		t.Errorf("reindexed = %v, want none", st.reindexed)
	}
}

func TestPipelineLockContention(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main/001.md", episodeText(1))

	lockFile := filepath.Join(t.TempDir(), "index.lock")
	cfgFile := writeScanConfig(t, "include: []\n")
	p := NewPipeline(newFakeStore(nil), &fakeTextEmbedder{}, dir, cfgFile, lockFile,
		"text-embedding-3-small", 64, testutil.QuietLogger())

	held := flock.New(lockFile)
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquire lock for test: %v", err)
	}
	defer func() { _ = held.Unlock() }()

	if _, err := p.Run(context.Background()); !errors.Is(err, ErrPipelineRunning) {
		t.Fatalf("Run error = %v, want ErrPipelineRunning", err)
	}
}

func TestPipelineCanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main/001.md", episodeText(1))

	p := testPipeline(t, newFakeStore(nil), &fakeTextEmbedder{}, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}

	// The lock is released, so a fresh run succeeds.
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
}

func TestPipelineStatsReflectProducedChunks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main/001.md", episodeText(1))

	st := newFakeStore(nil)
	p := testPipeline(t, st, &fakeTextEmbedder{}, dir)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.ChunksWritten == 0 {
		t.Fatal("no chunks written")
	}
	if summary.Stats.TotalChunks != summary.ChunksWritten {
		t.Errorf("Stats.TotalChunks = %d, ChunksWritten = %d",
			summary.Stats.TotalChunks, summary.ChunksWritten)
	}
	if summary.Stats.TotalTokens == 0 || summary.Stats.EstimatedAPICalls != 1 {
		t.Errorf("Stats = %+v", summary.Stats)
	}
}
