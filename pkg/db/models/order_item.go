package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// OrderItem is a single fulfillable line on an order. Product name,
// price and policy fields are snapshots taken at checkout.
type OrderItem struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID               uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	SellerOrderID         uuid.UUID `gorm:"column:seller_order_id;type:uuid;not null"`
	SellerID              uuid.UUID `gorm:"column:seller_id;type:uuid;not null"`
	StoreID               uuid.UUID `gorm:"column:store_id;type:uuid;not null"`
	ProductID             uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	StoreProductVariantID uuid.UUID `gorm:"column:store_product_variant_id;type:uuid;not null"`

	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`

	// PromoShare is this line's slice of the order-level promo
	// discount, used when refunding or recalculating totals.
	PromoShare      decimal.Decimal `gorm:"column:promo_share;type:numeric(12,2);not null;default:0"`
	AdminCommission decimal.Decimal `gorm:"column:admin_commission;type:numeric(12,2);not null;default:0"`

	Status enums.OrderItemStatus `gorm:"column:status;type:order_item_status;not null;default:'pending'"`

	// Cancellation and return policy snapshots from the product.
	IsCancelable     bool                  `gorm:"column:is_cancelable;not null;default:true"`
	CancelableTill   enums.OrderItemStatus `gorm:"column:cancelable_till;type:order_item_status;not null;default:'preparing'"`
	IsReturnable     bool                  `gorm:"column:is_returnable;not null;default:false"`
	ReturnWindowDays int                   `gorm:"column:return_window_days;not null;default:0"`
	RequiresOTP      bool                  `gorm:"column:requires_otp;not null;default:false"`

	Refunded    bool       `gorm:"column:refunded;not null;default:false"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
