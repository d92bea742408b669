package postgres

import (
	"fmt"
	"time"

	"collab-service/internal/models"

	"gorm.io/gorm"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *models.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(id uint) (*models.Document, error) {
	var doc models.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByOwner(ownerID uint) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.
		Select("id", "owner_id", "title", "snapshot_at", "created_at", "updated_at").
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// SaveSnapshot overwrites the latest durable snapshot for a document
func (r *DocumentRepository) SaveSnapshot(id uint, content []byte) error {
	now := time.Now()
	result := r.db.Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":     content,
			"snapshot_at": &now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save snapshot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(id uint) error {
	return r.db.Delete(&models.Document{}, id).Error
}
