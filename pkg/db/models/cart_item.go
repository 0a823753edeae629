package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	"github.com/nearbasket/nearbasket-backend/pkg/types"
)

// CartItem persists a variant-level snapshot tied to a CartRecord.
// Price and stock are re-checked against the catalog on reconcile.
type CartItem struct {
	ID                    uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID                uuid.UUID              `gorm:"column:cart_id;type:uuid;not null"`
	StoreProductVariantID uuid.UUID              `gorm:"column:store_product_variant_id;type:uuid;not null"`
	StoreID               uuid.UUID              `gorm:"column:store_id;type:uuid;not null"`
	ProductID             uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	Quantity              int                    `gorm:"column:quantity;not null"`
	UnitPrice             decimal.Decimal        `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineSubtotal          decimal.Decimal        `gorm:"column:line_subtotal;type:numeric(12,2);not null"`
	Warnings              types.CartItemWarnings `gorm:"column:warnings;type:jsonb;serializer:json"`
	Status                enums.CartItemStatus   `gorm:"column:status;type:cart_item_status;not null;default:'ok'"`
	CreatedAt             time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
