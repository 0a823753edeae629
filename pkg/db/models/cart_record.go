package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	"github.com/nearbasket/nearbasket-backend/pkg/types"
)

// CartRecord is a buyer's working cart. One active cart per buyer.
type CartRecord struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	Status          enums.CartStatus     `gorm:"column:status;type:cart_status;not null;default:'active'"`
	ZoneID          *uuid.UUID           `gorm:"column:zone_id;type:uuid"`
	DeliveryAddress *types.Address       `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	DeliveryLat     *float64             `gorm:"column:delivery_lat"`
	DeliveryLng     *float64             `gorm:"column:delivery_lng"`
	RushRequested   bool                 `gorm:"column:rush_requested;not null;default:false"`
	PaymentMethod   *enums.PaymentMethod `gorm:"column:payment_method;type:payment_method"`
	PromoCode       *string              `gorm:"column:promo_code"`
	ConvertedAt     *time.Time           `gorm:"column:converted_at"`
	Items           []CartItem           `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
