package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// Product is the catalog entry shared across stores. Cancellation and
// return policy live here so every store sells under the same terms.
type Product struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID         uuid.UUID             `gorm:"column:seller_id;type:uuid;not null"`
	Name             string                `gorm:"column:name;not null"`
	Category         string                `gorm:"column:category;not null"`
	IsCancelable     bool                  `gorm:"column:is_cancelable;not null;default:true"`
	CancelableTill   enums.OrderItemStatus `gorm:"column:cancelable_till;type:order_item_status;not null;default:'preparing'"`
	IsReturnable     bool                  `gorm:"column:is_returnable;not null;default:false"`
	ReturnWindowDays int                   `gorm:"column:return_window_days;not null;default:0"`
	RequiresOTP      bool                  `gorm:"column:requires_otp;not null;default:false"`
	IsActive         bool                  `gorm:"column:is_active;not null;default:true"`
	Variants         []ProductVariant      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant is a sellable unit of a product (size, weight, pack).
type ProductVariant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Label     string    `gorm:"column:label;not null"`
	SKU       string    `gorm:"column:sku;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// StoreProductVariant prices and stocks a variant at one store.
type StoreProductVariant struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID          uuid.UUID       `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_store_variant"`
	ProductVariantID uuid.UUID       `gorm:"column:product_variant_id;type:uuid;not null;uniqueIndex:idx_store_variant"`
	Price            decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	StockQty         int             `gorm:"column:stock_qty;not null;default:0"`
	IsActive         bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
