package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant is a sellable configuration of a product with its own price and stock.
type ProductVariant struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock     int             `gorm:"column:stock;not null;default:0;check:chk_product_variants_stock,stock >= 0"`
	// IsDefault marks the bucket that absorbs restocks for lines whose variant no longer exists.
	IsDefault bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
