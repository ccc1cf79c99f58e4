package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/resale-backend/pkg/db"
	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository owns the variant stock counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	DecrementFloor(ctx context.Context, productID, variantID uuid.UUID, qty int) (bool, error)
	Increment(ctx context.Context, productID, variantID uuid.UUID, qty int) (bool, error)
	EnsureDefaultVariant(ctx context.Context, product *models.Product) (*models.ProductVariant, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindProduct returns the product with its variants or nil when it does not exist.
func (r *repository) FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementFloor subtracts qty in one statement, clamping the counter at zero.
func (r *repository) DecrementFloor(ctx context.Context, productID, variantID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE product_variants
		 SET stock = CASE WHEN stock >= ? THEN stock - ? ELSE 0 END, updated_at = ?
		 WHERE id = ? AND product_id = ?`,
		qty, qty, time.Now().UTC(), variantID, productID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Increment adds qty without an upper bound.
func (r *repository) Increment(ctx context.Context, productID, variantID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE product_variants SET stock = stock + ?, updated_at = ? WHERE id = ? AND product_id = ?`,
		qty, time.Now().UTC(), variantID, productID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// EnsureDefaultVariant returns the product's default bucket, creating an empty one on first use.
func (r *repository) EnsureDefaultVariant(ctx context.Context, product *models.Product) (*models.ProductVariant, error) {
	existing, err := r.findDefault(ctx, product.ID)
	if err != nil || existing != nil {
		return existing, err
	}

	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		Name:      "Default",
		Price:     product.Price,
		Stock:     0,
		IsDefault: true,
	}
	if err := r.db.WithContext(ctx).Create(variant).Error; err != nil {
		if db.IsUniqueViolation(err, "ux_product_variants_default") {
			return r.findDefault(ctx, product.ID)
		}
		return nil, err
	}
	return variant, nil
}

func (r *repository) findDefault(ctx context.Context, productID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_default = ?", productID, true).
		First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}
