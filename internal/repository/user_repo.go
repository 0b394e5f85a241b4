package repository

import (
	"context"
	"errors"
	"fmt"

	"docsync/internal/models"

	"gorm.io/gorm"
)

// UserRepositoryImpl resolves usernames to stable user identifiers. The
// collaboration core only attributes operations and presence; it does not
// manage credentials.
type UserRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: db}
}

// FindOrCreate returns the user with the given username, creating it on
// first login so the identifier stays stable across sessions.
func (r *UserRepositoryImpl) FindOrCreate(ctx context.Context, username string) (*models.User, error) {
	var user models.User

	err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user = models.User{Username: username}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by KSUID.
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User

	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}
