package model

import "time"

const (
	IngestStatusOK     = "ok"
	IngestStatusFailed = "failed"
)

// IngestEvent is an audit record of one ingest attempt. Events are
// published to RabbitMQ after the fact and persisted by a background
// worker; they never gate the upload path.
type IngestEvent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DocumentName string    `gorm:"size:256;not null" json:"document_name"`
	Source       string    `gorm:"size:32;not null" json:"source"`
	Status       string    `gorm:"size:16;not null" json:"status"`
	ChunkCount   int       `json:"chunk_count"`
	Detail       string    `gorm:"type:text" json:"detail,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
	CreatedAt    time.Time `json:"created_at"`
}
