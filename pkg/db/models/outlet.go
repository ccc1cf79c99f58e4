package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/resale-backend/pkg/types"
)

// Outlet is a physical location where pickup orders are collected.
type Outlet struct {
	ID           uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	Name         string        `gorm:"column:name;not null"`
	Address      types.Address `gorm:"column:address;type:jsonb;serializer:json;not null"`
	Phone        *string       `gorm:"column:phone"`
	OpeningHours *string       `gorm:"column:opening_hours"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
