package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"docuchat/internal/model"
	"docuchat/internal/pkg/vecmath"
)

// MemoryStore keeps everything in process memory. It is the default
// backend and mirrors the behaviour of an in-process vector index:
// fast, dependency-free and gone on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	documents   []model.Document
	chunks      []model.Chunk
	embeddings  [][]float32
	nextDocID   uint
	nextChunkID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextDocID: 1, nextChunkID: 1}
}

func (s *MemoryStore) AddChunks(ctx context.Context, doc *model.Document, chunks []model.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, ErrEmptyBatch
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// Decode all embeddings before touching state so a bad one leaves
	// the store untouched.
	vectors := make([][]float32, len(chunks))
	for i := range chunks {
		vectors[i] = chunks[i].EmbeddingVector()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	doc.ID = s.nextDocID
	doc.ChunkCount = len(chunks)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	s.nextDocID++

	for i := range chunks {
		chunks[i].ID = s.nextChunkID
		chunks[i].DocumentID = doc.ID
		if chunks[i].CreatedAt.IsZero() {
			chunks[i].CreatedAt = now
		}
		s.nextChunkID++
	}

	s.documents = append(s.documents, *doc)
	s.chunks = append(s.chunks, chunks...)
	s.embeddings = append(s.embeddings, vectors...)
	return len(chunks), nil
}

func (s *MemoryStore) Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]model.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[uint]string, len(s.documents))
	for _, d := range s.documents {
		names[d.ID] = d.Name
	}

	var scored []model.ScoredChunk
	for i := range s.chunks {
		score := vecmath.CosineSimilarity(embedding, s.embeddings[i])
		if score < threshold {
			continue
		}
		scored = append(scored, model.ScoredChunk{
			Chunk:        s.chunks[i],
			DocumentName: names[s.chunks[i].DocumentID],
			Score:        score,
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *MemoryStore) CountChunks(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.chunks)), nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Document, len(s.documents))
	copy(out, s.documents)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
