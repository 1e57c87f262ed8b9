package store

import (
	"context"
	"errors"

	"docuchat/internal/model"
)

var ErrEmptyBatch = errors.New("no chunks to add")

// Store holds documents and their embedded chunks and answers nearest
// neighbour queries. AddChunks is all or nothing: on error the store
// must look exactly as it did before the call.
type Store interface {
	// AddChunks persists the document and its chunks in one batch and
	// returns the number of chunks added. doc.ID and chunk IDs are
	// assigned on success.
	AddChunks(ctx context.Context, doc *model.Document, chunks []model.Chunk) (int, error)

	// Search returns up to topK chunks whose cosine similarity to the
	// query embedding is at least threshold, best first.
	Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]model.ScoredChunk, error)

	// CountChunks returns the total number of chunks in the store.
	CountChunks(ctx context.Context) (int64, error)

	ListDocuments(ctx context.Context) ([]model.Document, error)

	Close() error
}
