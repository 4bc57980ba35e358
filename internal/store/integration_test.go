package store_test

import (
	"context"
	"testing"

	"github.com/bedtimenews/newsagent/internal/store"
	"github.com/bedtimenews/newsagent/internal/testutil"
)

// testVector builds a 1536-dimension unit-ish vector dominated by one axis
// so cosine similarity between different axes is near zero.
func testVector(axis int) []float32 {
	v := make([]float32, 1536)
	v[axis] = 1
	return v
}

func chunk(id, docID string, index, axis int) store.Chunk {
	return store.Chunk{
		ChunkID:    id,
		DocID:      docID,
		ChunkIndex: index,
		Heading:    "空间站",
		Text:       "中国空间站的建设进展",
		WordCount:  10,
		Embedding:  testVector(axis),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	st := store.New(db.Pool, testutil.QuietLogger())

	chunks := []store.Chunk{
		chunk("main_588_chunk_000", "main/588", 0, 0),
		chunk("main_588_chunk_001", "main/588", 1, 1),
	}
	if err := st.ReindexDocument(ctx, "main/588.md", "main/588", "hash-1", store.ActionAdd, chunks); err != nil {
		t.Fatalf("ReindexDocument: %v", err)
	}

	t.Run("search finds similar chunks", func(t *testing.T) {
		matches, err := st.SearchSimilarChunks(ctx, testVector(0), 0.5, 10, nil)
		if err != nil {
			t.Fatalf("SearchSimilarChunks: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("got %d matches, want 1", len(matches))
		}
		m := matches[0]
		if m.ChunkID != "main_588_chunk_000" {
			t.Errorf("ChunkID = %q", m.ChunkID)
		}
		if m.Similarity < 0.99 {
			t.Errorf("Similarity = %v, want ~1", m.Similarity)
		}
		if m.Heading != "空间站" || m.Text == "" {
			t.Errorf("match = %+v", m)
		}
	})

	t.Run("threshold filters", func(t *testing.T) {
		matches, err := st.SearchSimilarChunks(ctx, testVector(2), 0.5, 10, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 0 {
			t.Errorf("got %d matches, want 0", len(matches))
		}
	})

	t.Run("doc filter restricts results", func(t *testing.T) {
		matches, err := st.SearchSimilarChunks(ctx, testVector(0), 0.5, 10, []string{"other/doc"})
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 0 {
			t.Errorf("got %d matches, want 0 for non-matching filter", len(matches))
		}

		matches, err = st.SearchSimilarChunks(ctx, testVector(0), 0.5, 10, []string{"main/588"})
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 1 {
			t.Errorf("got %d matches, want 1 with matching filter", len(matches))
		}
	})

	t.Run("history reflects reindex", func(t *testing.T) {
		history, err := st.GetIndexingHistory(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if history["main/588.md"] != "hash-1" {
			t.Errorf("history = %v", history)
		}
	})

	t.Run("list history returns full records", func(t *testing.T) {
		records, err := st.ListIndexingHistory(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 1 {
			t.Fatalf("got %d records, want 1", len(records))
		}
		rec := records[0]
		if rec.FilePath != "main/588.md" || rec.ContentHash != "hash-1" {
			t.Errorf("record = %+v", rec)
		}
		if rec.IndexedAt.IsZero() || rec.LastModified.IsZero() {
			t.Errorf("timestamps not populated: %+v", rec)
		}
	})

	t.Run("modify replaces chunks", func(t *testing.T) {
		replacement := []store.Chunk{chunk("main_588_chunk_000", "main/588", 0, 3)}
		if err := st.ReindexDocument(ctx, "main/588.md", "main/588", "hash-2", store.ActionModify, replacement); err != nil {
			t.Fatalf("ReindexDocument: %v", err)
		}

		stats, err := st.Stats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if stats.TotalChunks != 1 || stats.TotalDocuments != 1 {
			t.Errorf("stats = %+v", stats)
		}

		history, err := st.GetIndexingHistory(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if history["main/588.md"] != "hash-2" {
			t.Errorf("history = %v", history)
		}
	})

	t.Run("remove deletes chunks and history", func(t *testing.T) {
		if err := st.RemoveDocument(ctx, "main/588.md", "main/588"); err != nil {
			t.Fatalf("RemoveDocument: %v", err)
		}

		stats, err := st.Stats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if stats.TotalChunks != 0 {
			t.Errorf("TotalChunks = %d after removal", stats.TotalChunks)
		}

		history, err := st.GetIndexingHistory(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := history["main/588.md"]; ok {
			t.Error("history still contains removed file")
		}
	})

	t.Run("action log preserved", func(t *testing.T) {
		var count int
		err := db.Pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM rag.file_actions WHERE file_path = $1`, "main/588.md").Scan(&count)
		if err != nil {
			t.Fatal(err)
		}
		// ADD, MODIFY, DELETE
		if count != 3 {
			t.Errorf("file_actions count = %d, want 3", count)
		}
	})
}
