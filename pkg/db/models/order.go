package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	"github.com/nearbasket/nearbasket-backend/pkg/types"
)

// Order is the buyer-level order produced at checkout. Per-seller
// slices hang off it as SellerOrders; pricing fields are snapshots of
// the zone tariffs in force when the order was placed.
type Order struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber int64                `gorm:"column:order_number;not null;uniqueIndex"`
	UserID      uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	ZoneID      uuid.UUID            `gorm:"column:zone_id;type:uuid;not null"`
	Status      enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'placed'"`
	Delivery    enums.DeliveryStatus `gorm:"column:delivery_status;type:delivery_status;not null;default:'pending'"`

	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentRef    *string             `gorm:"column:payment_ref"`

	DeliveryAddress *types.Address `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	DeliveryLat     float64        `gorm:"column:delivery_lat;not null"`
	DeliveryLng     float64        `gorm:"column:delivery_lng;not null"`
	DistanceKM      float64        `gorm:"column:distance_km;not null;default:0"`

	RushDelivery   bool `gorm:"column:rush_delivery;not null;default:false"`
	RushDowngraded bool `gorm:"column:rush_downgraded;not null;default:false"`
	FreeDelivery   bool `gorm:"column:free_delivery;not null;default:false"`

	ItemsTotal       decimal.Decimal     `gorm:"column:items_total;type:numeric(12,2);not null;default:0"`
	HandlingFee      decimal.Decimal     `gorm:"column:handling_fee;type:numeric(12,2);not null;default:0"`
	DeliveryCharge   decimal.Decimal     `gorm:"column:delivery_charge;type:numeric(12,2);not null;default:0"`
	DropoffFee       decimal.Decimal     `gorm:"column:dropoff_fee;type:numeric(12,2);not null;default:0"`
	PromoDiscount    decimal.Decimal     `gorm:"column:promo_discount;type:numeric(12,2);not null;default:0"`
	GiftCardDiscount decimal.Decimal     `gorm:"column:gift_card_discount;type:numeric(12,2);not null;default:0"`
	WalletApplied    decimal.Decimal     `gorm:"column:wallet_applied;type:numeric(12,2);not null;default:0"`
	FinalTotal       decimal.Decimal     `gorm:"column:final_total;type:numeric(12,2);not null;default:0"`
	PayableTotal     decimal.Decimal     `gorm:"column:payable_total;type:numeric(12,2);not null;default:0"`
	Promo            *types.AppliedPromo `gorm:"column:promo;type:jsonb;serializer:json"`

	EstimatedDeliveryMinutes int     `gorm:"column:estimated_delivery_minutes;not null;default:0"`
	DeliveryOTP              *string `gorm:"column:delivery_otp"`
	OTPVerified              bool    `gorm:"column:otp_verified;not null;default:false"`

	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	SellerOrders []SellerOrder       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Items        []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Assignments  []CourierAssignment `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
