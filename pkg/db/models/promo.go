package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// Promo is a discount campaign, either a coupon code the buyer enters
// or an instant promotion applied automatically.
type Promo struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code         string                  `gorm:"column:code;not null;uniqueIndex"`
	Kind         enums.PromoKind         `gorm:"column:kind;type:promo_kind;not null;default:'coupon'"`
	DiscountType enums.PromoDiscountType `gorm:"column:discount_type;type:promo_discount_type;not null"`

	Value            decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	MaxDiscountValue *decimal.Decimal `gorm:"column:max_discount_value;type:numeric(12,2)"`
	MinOrderTotal    decimal.Decimal  `gorm:"column:min_order_total;type:numeric(12,2);not null;default:0"`

	MaxTotalUsage *int `gorm:"column:max_total_usage"`
	UsageCount    int  `gorm:"column:usage_count;not null;default:0"`
	PerUserLimit  *int `gorm:"column:per_user_limit"`

	StartsAt time.Time `gorm:"column:starts_at;not null"`
	EndsAt   time.Time `gorm:"column:ends_at;not null"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// PromoRedemption records one successful use of a promo on an order.
type PromoRedemption struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PromoID   uuid.UUID       `gorm:"column:promo_id;type:uuid;not null;index"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
