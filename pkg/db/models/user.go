package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/resale-backend/pkg/enums"
)

// User is the registered account referenced by orders and carts.
type User struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email     string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name      string     `gorm:"column:name;not null"`
	Phone     *string    `gorm:"column:phone"`
	Role      enums.Role `gorm:"column:role;type:text;not null;default:'customer'"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
