package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// OrderItemReturn tracks a delivered item travelling back to its
// seller, including the courier pickup leg and the wallet refund.
type OrderItemReturn struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderItemID uuid.UUID `gorm:"column:order_item_id;type:uuid;not null"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	SellerID    uuid.UUID `gorm:"column:seller_id;type:uuid;not null"`
	StoreID     uuid.UUID `gorm:"column:store_id;type:uuid;not null"`

	Reason       string             `gorm:"column:reason;not null"`
	Status       enums.ReturnStatus `gorm:"column:status;type:return_status;not null;default:'requested'"`
	PickupStatus enums.PickupStatus `gorm:"column:pickup_status;type:pickup_status;not null;default:'pending'"`
	CourierID    *uuid.UUID         `gorm:"column:courier_id;type:uuid"`

	RefundAmount decimal.Decimal    `gorm:"column:refund_amount;type:numeric(12,2);not null;default:0"`
	RefundStatus enums.RefundStatus `gorm:"column:refund_status;type:refund_status;not null;default:'pending'"`

	ApprovedAt  *time.Time `gorm:"column:approved_at"`
	PickedUpAt  *time.Time `gorm:"column:picked_up_at"`
	ReceivedAt  *time.Time `gorm:"column:received_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
