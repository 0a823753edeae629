package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	"github.com/nearbasket/nearbasket-backend/pkg/types"
)

// DeliveryZone bounds a serviceable area and carries the tariff sheet
// applied to every order placed inside it.
type DeliveryZone struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string                 `gorm:"column:name;not null"`
	Status       enums.ZoneStatus       `gorm:"column:status;type:zone_status;not null;default:'active'"`
	Latitude     float64                `gorm:"column:latitude;not null"`
	Longitude    float64                `gorm:"column:longitude;not null"`
	RadiusKM     float64                `gorm:"column:radius_km;not null"`
	BoundaryType enums.ZoneBoundaryType `gorm:"column:boundary_type;type:zone_boundary_type;not null;default:'radius'"`
	Boundary     types.Polygon          `gorm:"column:boundary;type:jsonb"`

	// Buyer-facing tariffs.
	RegularDeliveryCharge decimal.Decimal `gorm:"column:regular_delivery_charge;type:numeric(12,2);not null;default:0"`
	RushDeliveryCharge    decimal.Decimal `gorm:"column:rush_delivery_charge;type:numeric(12,2);not null;default:0"`
	DistanceFeePerKM      decimal.Decimal `gorm:"column:distance_fee_per_km;type:numeric(12,2);not null;default:0"`
	RushDistanceFeePerKM  decimal.Decimal `gorm:"column:rush_distance_fee_per_km;type:numeric(12,2);not null;default:0"`
	DropoffFeePerStore    decimal.Decimal `gorm:"column:dropoff_fee_per_store;type:numeric(12,2);not null;default:0"`
	HandlingFee           decimal.Decimal `gorm:"column:handling_fee;type:numeric(12,2);not null;default:0"`
	FreeDeliveryThreshold decimal.Decimal `gorm:"column:free_delivery_threshold;type:numeric(12,2);not null;default:0"`

	// Time estimation inputs.
	MinutesPerKM      float64 `gorm:"column:minutes_per_km;not null;default:0"`
	RushMinutesPerKM  float64 `gorm:"column:rush_minutes_per_km;not null;default:0"`
	PrepBufferMinutes int     `gorm:"column:prep_buffer_minutes;not null;default:0"`

	RushAvailable bool `gorm:"column:rush_available;not null;default:false"`
	CODAllowed    bool `gorm:"column:cod_allowed;not null;default:false"`

	// Courier compensation.
	CourierBaseFee           decimal.Decimal `gorm:"column:courier_base_fee;type:numeric(12,2);not null;default:0"`
	CourierPerStorePickupFee decimal.Decimal `gorm:"column:courier_per_store_pickup_fee;type:numeric(12,2);not null;default:0"`
	CourierDistanceFeePerKM  decimal.Decimal `gorm:"column:courier_distance_fee_per_km;type:numeric(12,2);not null;default:0"`
	CourierPerOrderIncentive decimal.Decimal `gorm:"column:courier_per_order_incentive;type:numeric(12,2);not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
