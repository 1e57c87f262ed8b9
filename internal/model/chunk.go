package model

import (
	"encoding/json"
	"time"
)

// Chunk stores a text fragment and its embedding for retrieval.
// Embedding is stored as a JSON array of float32 for portability
// across store backends.
type Chunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	Position   int       `gorm:"not null" json:"position"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Embedding  string    `gorm:"type:text" json:"-"` // JSON array of float32
	CreatedAt  time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *Chunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *Chunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}

// ScoredChunk pairs a chunk with its similarity to a query. The owning
// document's name rides along so answers can cite their sources.
type ScoredChunk struct {
	Chunk        Chunk
	DocumentName string
	Score        float64
}
