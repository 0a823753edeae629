package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents the canonical identity entity. Identity itself is
// managed upstream; this row carries the marketplace-side state.
type User struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Email         string          `gorm:"type:text;not null;uniqueIndex"`
	FirstName     string          `gorm:"column:first_name;not null"`
	LastName      string          `gorm:"column:last_name;not null"`
	Phone         *string         `gorm:"column:phone"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	SystemRole    *string         `gorm:"column:system_role"`
	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:numeric(12,2);not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
