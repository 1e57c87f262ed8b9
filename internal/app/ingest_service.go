package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"docuchat/internal/model"
	"docuchat/internal/splitter"
	"docuchat/internal/store"
)

// Embedder turns text into vectors. Chunk and query embeddings must
// come from the same model or similarity scores are meaningless.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EventPublisher forwards ingest audit events to a queue. Publishing
// is best effort and never gates the upload path.
type EventPublisher interface {
	Publish(ctx context.Context, event model.IngestEvent) error
}

// IngestService turns raw document text into embedded chunks in the
// store. The whole batch lands or nothing does.
type IngestService struct {
	store     store.Store
	embedder  Embedder
	splitter  *splitter.Splitter
	publisher EventPublisher // nil = audit trail disabled
}

func NewIngestService(st store.Store, embedder Embedder, split *splitter.Splitter, publisher EventPublisher) *IngestService {
	return &IngestService{
		store:     st,
		embedder:  embedder,
		splitter:  split,
		publisher: publisher,
	}
}

type IngestInput struct {
	Name    string
	Source  string
	Content string
}

type IngestResult struct {
	Document   model.Document `json:"document"`
	ChunkCount int            `json:"chunk_count"`
	// TotalChunks is the store-wide chunk count after this ingest.
	TotalChunks int64 `json:"total_chunks"`
}

// Ingest splits the content, embeds every chunk, and persists the
// document with its chunks in one batch. If any embedding or the store
// write fails, nothing is persisted.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrNoText
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "Untitled"
	}
	source := input.Source
	if source == "" {
		source = model.SourceUpload
	}

	texts := s.splitter.Split(input.Content)
	if len(texts) == 0 {
		return nil, ErrNoText
	}

	// Embed everything before touching the store so a mid-batch
	// failure leaves the chunk count unchanged.
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		s.audit(ctx, name, source, model.IngestStatusFailed, 0, err.Error())
		return nil, fmt.Errorf("%w: embed chunks: %v", ErrIngestion, err)
	}
	if len(vectors) != len(texts) {
		s.audit(ctx, name, source, model.IngestStatusFailed, 0, "embedding count mismatch")
		return nil, fmt.Errorf("%w: embedding count mismatch", ErrIngestion)
	}

	chunks := make([]model.Chunk, len(texts))
	for i := range texts {
		chunks[i] = model.Chunk{Position: i, Content: texts[i]}
		chunks[i].SetEmbedding(vectors[i])
	}

	doc := model.Document{Name: name, Source: source}
	added, err := s.store.AddChunks(ctx, &doc, chunks)
	if err != nil {
		s.audit(ctx, name, source, model.IngestStatusFailed, 0, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrIngestion, err)
	}

	total, err := s.store.CountChunks(ctx)
	if err != nil {
		log.Printf("count chunks after ingest failed: %v", err)
		total = int64(added)
	}

	s.audit(ctx, name, source, model.IngestStatusOK, added, "")
	return &IngestResult{Document: doc, ChunkCount: added, TotalChunks: total}, nil
}

func (s *IngestService) audit(ctx context.Context, name, source, status string, chunkCount int, detail string) {
	if s.publisher == nil {
		return
	}
	event := model.IngestEvent{
		DocumentName: name,
		Source:       source,
		Status:       status,
		ChunkCount:   chunkCount,
		Detail:       detail,
		OccurredAt:   time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("publish ingest audit event failed: %v", err)
	}
}
