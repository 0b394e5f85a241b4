package api

import (
	"context"

	"docsync/internal/models"
)

// Consumer-driven interfaces: the handlers declare exactly what they need
// from the layers below, so implementations can change (or be mocked) without
// touching this package.

// DocumentRepository is the snapshot store as seen by the HTTP handlers.
type DocumentRepository interface {
	Create(ctx context.Context, ownerID string, doc *models.DocumentCreate) (*models.Document, error)
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, limit, offset int) ([]*models.Document, error)
	UpdateTitle(ctx context.Context, id, title string) (*models.Document, error)
	UpdateContent(ctx context.Context, id, content string) (*models.Document, error)
	Delete(ctx context.Context, id string) error
}

// UserRepository resolves login names to stable user identifiers.
type UserRepository interface {
	FindOrCreate(ctx context.Context, username string) (*models.User, error)
}

// TokenIssuer mints the opaque signed token handed out at login.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}
