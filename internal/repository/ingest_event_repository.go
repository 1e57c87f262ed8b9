package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type IngestEventRepository struct {
	db *gorm.DB
}

func NewIngestEventRepository(db *gorm.DB) *IngestEventRepository {
	return &IngestEventRepository{db: db}
}

func (r *IngestEventRepository) Create(event *model.IngestEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("create ingest event failed: %w", err)
	}
	return nil
}
