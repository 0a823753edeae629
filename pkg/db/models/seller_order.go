package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// SellerOrder is one seller's slice of a buyer order, spanning every
// store the seller fulfills from. Its status is always derived from
// the statuses of its items.
type SellerOrder struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID               `gorm:"column:order_id;type:uuid;not null"`
	SellerID         uuid.UUID               `gorm:"column:seller_id;type:uuid;not null"`
	Status           enums.SellerOrderStatus `gorm:"column:status;type:seller_order_status;not null;default:'awaiting_store_response'"`
	Subtotal         decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	CommissionAmount decimal.Decimal         `gorm:"column:commission_amount;type:numeric(12,2);not null;default:0"`
	Items            []OrderItem             `gorm:"foreignKey:SellerOrderID"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
