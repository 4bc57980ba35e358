// Package store persists document chunks, embeddings and indexing state
// in PostgreSQL with pgvector.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/bedtimenews/newsagent/internal/log"
)

// DB defines the database operations the Store needs.
// Following Go best practices: interfaces are defined by the consumer,
// not the provider. *pgxpool.Pool satisfies this interface.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store manages document chunks with vector search, indexing history and
// the file-action audit log.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db          DB
	retryConfig RetryConfig
	logger      log.Logger
}

// New creates a Store backed by db (typically a *pgxpool.Pool).
func New(db DB, logger log.Logger) *Store {
	return &Store{
		db:          db,
		retryConfig: DefaultRetryConfig(),
		logger:      logger.With("component", "store"),
	}
}

const searchSQL = `
SELECT chunk_id, doc_id, chunk_index, heading, text, word_count,
       1 - (embedding <=> $1::vector) AS similarity
FROM rag.document_chunks
WHERE embedding IS NOT NULL
  AND 1 - (embedding <=> $1::vector) >= $2
  AND ($4::text[] IS NULL OR doc_id = ANY($4))
ORDER BY similarity DESC, chunk_id
LIMIT $3`

// SearchSimilarChunks returns chunks by cosine similarity to the query
// embedding, highest first, ties broken by chunk_id. docIDs, when
// non-empty, restricts results to those documents.
func (s *Store) SearchSimilarChunks(ctx context.Context, embedding []float32, threshold float64, count int, docIDs []string) ([]ChunkMatch, error) {
	var filter any
	if len(docIDs) > 0 {
		filter = docIDs
	}

	var matches []ChunkMatch
	err := s.withRetry(ctx, "search similar chunks", func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, searchSQL, pgvector.NewVector(embedding), threshold, count, filter)
		if err != nil {
			return err
		}
		defer rows.Close()

		matches = matches[:0]
		for rows.Next() {
			var m ChunkMatch
			var heading *string
			if err := rows.Scan(&m.ChunkID, &m.DocID, &m.ChunkIndex, &heading, &m.Text, &m.WordCount, &m.Similarity); err != nil {
				return err
			}
			if heading != nil {
				m.Heading = *heading
			}
			matches = append(matches, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("similarity search", "matches", len(matches), "threshold", threshold)
	return matches, nil
}

const insertChunkSQL = `
INSERT INTO rag.document_chunks
    (chunk_id, doc_id, chunk_index, heading, text, word_count, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (chunk_id) DO NOTHING`

// insertChunks batches chunk inserts on tx. Conflicting chunk IDs are
// skipped; callers that replace a document must delete its chunks first.
func insertChunks(ctx context.Context, tx pgx.Tx, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		var heading any
		if c.Heading != "" {
			heading = c.Heading
		}
		var embedding any
		if c.Embedding != nil {
			embedding = pgvector.NewVector(c.Embedding)
		}
		batch.Queue(insertChunkSQL, c.ChunkID, c.DocID, c.ChunkIndex, heading, c.Text, c.WordCount, embedding)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return results.Close()
}

const (
	deleteChunksSQL  = `DELETE FROM rag.document_chunks WHERE doc_id = $1`
	upsertHistorySQL = `
INSERT INTO rag.indexing_history (file_path, content_hash, indexed_at, last_modified)
VALUES ($1, $2, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
ON CONFLICT (file_path) DO UPDATE
SET content_hash = EXCLUDED.content_hash,
    indexed_at = CURRENT_TIMESTAMP,
    last_modified = CURRENT_TIMESTAMP`
	deleteHistorySQL = `DELETE FROM rag.indexing_history WHERE file_path = $1`
	logActionSQL     = `
INSERT INTO rag.file_actions (file_path, action_type, content_hash)
VALUES ($1, $2, $3)`
)

// ReindexDocument replaces all chunks of a document, updates its indexing
// history and records the action, in a single transaction. Used for both
// newly added (ActionAdd) and modified (ActionModify) files.
func (s *Store) ReindexDocument(ctx context.Context, filePath, docID, contentHash, action string, chunks []Chunk) error {
	err := s.withRetry(ctx, "reindex document", func(ctx context.Context) error {
		tx, err := s.db.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if _, err := tx.Exec(ctx, deleteChunksSQL, docID); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		if err := insertChunks(ctx, tx, chunks); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, upsertHistorySQL, filePath, contentHash); err != nil {
			return fmt.Errorf("upsert history: %w", err)
		}
		if _, err := tx.Exec(ctx, logActionSQL, filePath, action, contentHash); err != nil {
			return fmt.Errorf("log action: %w", err)
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("reindexed document", "doc_id", docID, "action", action, "chunks", len(chunks))
	return nil
}

// RemoveDocument deletes all chunks of a document, drops its indexing
// history and records the DELETE action, in a single transaction.
func (s *Store) RemoveDocument(ctx context.Context, filePath, docID string) error {
	err := s.withRetry(ctx, "remove document", func(ctx context.Context) error {
		tx, err := s.db.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if _, err := tx.Exec(ctx, deleteChunksSQL, docID); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		if _, err := tx.Exec(ctx, deleteHistorySQL, filePath); err != nil {
			return fmt.Errorf("delete history: %w", err)
		}
		if _, err := tx.Exec(ctx, logActionSQL, filePath, ActionDelete, nil); err != nil {
			return fmt.Errorf("log action: %w", err)
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("removed document", "doc_id", docID)
	return nil
}

// GetIndexingHistory returns the stored content hash for every indexed
// file, keyed by file path.
func (s *Store) GetIndexingHistory(ctx context.Context) (map[string]string, error) {
	history := make(map[string]string)
	err := s.withRetry(ctx, "get indexing history", func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, `SELECT file_path, content_hash FROM rag.indexing_history`)
		if err != nil {
			return err
		}
		defer rows.Close()

		clear(history)
		for rows.Next() {
			var path, hash string
			if err := rows.Scan(&path, &hash); err != nil {
				return err
			}
			history[path] = hash
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

const listHistorySQL = `
SELECT file_path, content_hash, indexed_at, last_modified
FROM rag.indexing_history
ORDER BY file_path`

// ListIndexingHistory returns the full indexing record of every file,
// ordered by file path. GetIndexingHistory is the cheaper hash-only view
// used by change detection.
func (s *Store) ListIndexingHistory(ctx context.Context) ([]IndexingHistory, error) {
	var records []IndexingHistory
	err := s.withRetry(ctx, "list indexing history", func(ctx context.Context) error {
		rows, err := s.db.Query(ctx, listHistorySQL)
		if err != nil {
			return err
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			var h IndexingHistory
			if err := rows.Scan(&h.FilePath, &h.ContentHash, &h.IndexedAt, &h.LastModified); err != nil {
				return err
			}
			records = append(records, h)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

const statsSQL = `
SELECT COUNT(DISTINCT doc_id),
       COUNT(*),
       COALESCE(SUM(word_count), 0),
       COALESCE(AVG(word_count), 0),
       COALESCE(MIN(word_count), 0),
       COALESCE(MAX(word_count), 0)
FROM rag.document_chunks`

// Stats returns aggregate statistics over the indexed corpus.
func (s *Store) Stats(ctx context.Context) (*TableStats, error) {
	var stats TableStats
	err := s.withRetry(ctx, "table stats", func(ctx context.Context) error {
		return s.db.QueryRow(ctx, statsSQL).Scan(
			&stats.TotalDocuments,
			&stats.TotalChunks,
			&stats.TotalWords,
			&stats.AvgWordsChunk,
			&stats.MinWordsChunk,
			&stats.MaxWordsChunk,
		)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
