package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seller is a merchant operating one or more stores on the platform.
type Seller struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string          `gorm:"column:name;not null"`
	CommissionRate decimal.Decimal `gorm:"column:commission_rate;type:numeric(5,4);not null;default:0"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	Stores         []Store         `gorm:"foreignKey:SellerID"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Store is a physical location couriers pick up from.
type Store struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID            uuid.UUID  `gorm:"column:seller_id;type:uuid;not null"`
	ZoneID              *uuid.UUID `gorm:"column:zone_id;type:uuid"`
	Name                string     `gorm:"column:name;not null"`
	Latitude            float64    `gorm:"column:latitude;not null"`
	Longitude           float64    `gorm:"column:longitude;not null"`
	BasePrepTimeMinutes int        `gorm:"column:base_prep_time_minutes;not null;default:0"`
	IsActive            bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
