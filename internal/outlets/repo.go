package outlets

import (
	"context"
	"errors"

	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads pickup outlets.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID returns the outlet or nil when it does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Outlet, error) {
	var outlet models.Outlet
	err := r.db.WithContext(ctx).First(&outlet, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &outlet, nil
}
