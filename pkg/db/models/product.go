package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog listing owned by a seller. Stock lives on its variants.
type Product struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SellerID  uuid.UUID        `gorm:"column:seller_id;type:uuid;not null;index"`
	Name      string           `gorm:"column:name;not null"`
	Price     decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive  bool             `gorm:"column:is_active;not null;default:true"`
	Variants  []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
