package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, candidateID uint) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (d *documentRepository) Create(ctx context.Context, document *models.Document) error {
	if err := d.db.WithContext(ctx).Create(document).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

func (d *documentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	return &doc, nil
}

func (d *documentRepository) MarkProcessed(ctx context.Context, id uuid.UUID, candidateID uint) error {
	return d.update(ctx, id, map[string]interface{}{
		"status":       models.DocumentProcessed,
		"candidate_id": candidateID,
		"updated_at":   time.Now(),
	})
}

func (d *documentRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return d.update(ctx, id, map[string]interface{}{
		"status":        models.DocumentFailed,
		"error_message": errorMsg,
		"updated_at":    time.Now(),
	})
}

func (d *documentRepository) update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := d.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update document: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
