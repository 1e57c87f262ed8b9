package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"docuchat/internal/model"
)

func init() {
	sqlite_vec.Auto()
}

const sqliteDDL = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS documents (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    source      TEXT NOT NULL DEFAULT 'upload',
    chunk_count INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    position    INTEGER NOT NULL DEFAULT 0,
    content     TEXT NOT NULL,
    created_at  DATETIME NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id INTEGER PRIMARY KEY,
    embedding float[%d] distance_metric=cosine
);
`

// SQLiteStore keeps chunks in SQLite with embeddings in a sqlite-vec
// virtual table, so nearest neighbour search runs inside the database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and initializes the
// schema. dim must match the embedding model's output width; the vec0
// table is fixed-size.
func OpenSQLite(path string, dim int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite failed: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf(sqliteDDL, dim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema failed: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddChunks(ctx context.Context, doc *model.Document, chunks []model.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, ErrEmptyBatch
	}

	// Serialize all embeddings up front so a malformed vector fails
	// before the transaction starts.
	blobs := make([][]byte, len(chunks))
	for i := range chunks {
		blob, err := sqlite_vec.SerializeFloat32(chunks[i].EmbeddingVector())
		if err != nil {
			return 0, fmt.Errorf("serialize embedding %d failed: %w", i, err)
		}
		blobs[i] = blob
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx failed: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO documents (name, source, chunk_count, created_at) VALUES (?, ?, ?, ?)",
		doc.Name, doc.Source, len(chunks), doc.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert document failed: %w", err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	doc.ID = uint(docID)
	doc.ChunkCount = len(chunks)

	chunkStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (document_id, position, content, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer chunkStmt.Close()

	vecStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return 0, err
	}
	defer vecStmt.Close()

	for i := range chunks {
		if chunks[i].CreatedAt.IsZero() {
			chunks[i].CreatedAt = now
		}
		res, err := chunkStmt.ExecContext(ctx, docID, chunks[i].Position, chunks[i].Content, chunks[i].CreatedAt)
		if err != nil {
			return 0, fmt.Errorf("insert chunk %d failed: %w", i, err)
		}
		chunkID, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		chunks[i].ID = uint(chunkID)
		chunks[i].DocumentID = doc.ID

		if _, err := vecStmt.ExecContext(ctx, chunkID, blobs[i]); err != nil {
			return 0, fmt.Errorf("insert embedding for chunk %d failed: %w", chunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit failed: %w", err)
	}
	return len(chunks), nil
}

func (s *SQLiteStore) Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]model.ScoredChunk, error) {
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding failed: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, v.distance, c.document_id, c.position, c.content, c.created_at, d.name
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE v.embedding MATCH ?
		ORDER BY v.distance
		LIMIT ?
	`, blob, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var results []model.ScoredChunk
	for rows.Next() {
		var (
			chunk    model.Chunk
			distance float64
			docName  string
		)
		if err := rows.Scan(&chunk.ID, &distance, &chunk.DocumentID, &chunk.Position, &chunk.Content, &chunk.CreatedAt, &docName); err != nil {
			return nil, err
		}
		// vec0 cosine reports distance = 1 - similarity.
		score := 1 - distance
		if score < threshold {
			continue
		}
		results = append(results, model.ScoredChunk{Chunk: chunk, DocumentName: docName, Score: score})
	}
	return results, rows.Err()
}

func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks failed: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, source, chunk_count, created_at FROM documents ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Name, &d.Source, &d.ChunkCount, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
