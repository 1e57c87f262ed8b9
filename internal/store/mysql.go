package store

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"docuchat/internal/model"
	"docuchat/internal/pkg/vecmath"
	"docuchat/internal/repository"
)

// MySQLStore persists documents and chunks through gorm. Embeddings
// live in a JSON text column and the similarity scan runs in Go, which
// is fine at the corpus sizes a single instance serves.
type MySQLStore struct {
	db *gorm.DB
}

func NewMySQLStore(db *gorm.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) AddChunks(ctx context.Context, doc *model.Document, chunks []model.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, ErrEmptyBatch
	}

	doc.ChunkCount = len(chunks)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewDocumentRepository(tx).Create(doc); err != nil {
			return err
		}
		for i := range chunks {
			chunks[i].DocumentID = doc.ID
		}
		return repository.NewChunkRepository(tx).CreateBatch(chunks)
	})
	if err != nil {
		return 0, fmt.Errorf("add chunks failed: %w", err)
	}
	return len(chunks), nil
}

func (s *MySQLStore) Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]model.ScoredChunk, error) {
	chunks, err := repository.NewChunkRepository(s.db.WithContext(ctx)).ListAll()
	if err != nil {
		return nil, err
	}
	docs, err := repository.NewDocumentRepository(s.db.WithContext(ctx)).List()
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(docs))
	for _, d := range docs {
		names[d.ID] = d.Name
	}

	var scored []model.ScoredChunk
	for i := range chunks {
		score := vecmath.CosineSimilarity(embedding, chunks[i].EmbeddingVector())
		if score < threshold {
			continue
		}
		scored = append(scored, model.ScoredChunk{
			Chunk:        chunks[i],
			DocumentName: names[chunks[i].DocumentID],
			Score:        score,
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *MySQLStore) CountChunks(ctx context.Context) (int64, error) {
	return repository.NewChunkRepository(s.db.WithContext(ctx)).Count()
}

func (s *MySQLStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	return repository.NewDocumentRepository(s.db.WithContext(ctx)).List()
}

// Close is a no-op; the gorm connection is shared with the audit trail
// and closed by whoever opened it.
func (s *MySQLStore) Close() error {
	return nil
}
