package repository

import (
	"context"
	"errors"
	"fmt"

	"docsync/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound reports a lookup that matched no row.
var ErrNotFound = errors.New("not found")

// DocumentRepositoryImpl handles snapshot persistence for documents. The
// collaboration relay reads snapshots to seed joining clients; content writes
// come from explicit client saves, never from relayed operations.
type DocumentRepositoryImpl struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepositoryImpl {
	return &DocumentRepositoryImpl{db: db}
}

// Create inserts a new document. The KSUID is generated in the BeforeCreate
// hook.
func (r *DocumentRepositoryImpl) Create(ctx context.Context, ownerID string, doc *models.DocumentCreate) (*models.Document, error) {
	document := &models.Document{
		Title:   doc.Title,
		Content: doc.Content,
		OwnerID: ownerID,
	}

	if err := r.db.WithContext(ctx).Create(document).Error; err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return document, nil
}

// GetByID retrieves a document snapshot. Soft-deleted documents are excluded.
func (r *DocumentRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document

	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// List returns documents newest first. KSUIDs are time-ordered, so sorting by
// ID is sorting by creation time.
func (r *DocumentRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*models.Document, error) {
	var documents []*models.Document

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&documents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return documents, nil
}

// UpdateTitle renames a document.
func (r *DocumentRepositoryImpl) UpdateTitle(ctx context.Context, id, title string) (*models.Document, error) {
	return r.update(ctx, id, map[string]any{"title": title})
}

// UpdateContent replaces the persisted snapshot content.
func (r *DocumentRepositoryImpl) UpdateContent(ctx context.Context, id, content string) (*models.Document, error) {
	return r.update(ctx, id, map[string]any{"content": content})
}

func (r *DocumentRepositoryImpl) update(ctx context.Context, id string, fields map[string]any) (*models.Document, error) {
	result := r.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

// Delete soft-deletes a document.
func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Document{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}
