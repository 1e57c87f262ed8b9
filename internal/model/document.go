package model

import "time"

const (
	SourceUpload = "upload"
	SourceSeed   = "seed"
	SourceWatch  = "watch"
)

// Document is one ingested source: an uploaded PDF, a seed text, or a
// file picked up from the watch directory.
type Document struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:256;not null" json:"name"`
	Source     string    `gorm:"size:32;not null;default:upload" json:"source"` // upload, seed, watch
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}
