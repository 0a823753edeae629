package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// CourierAssignment binds a courier to a delivery run or a return
// pickup and carries the earnings computed for the job.
type CourierAssignment struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CourierID uuid.UUID              `gorm:"column:courier_id;type:uuid;not null;index"`
	OrderID   *uuid.UUID             `gorm:"column:order_id;type:uuid;index"`
	ReturnID  *uuid.UUID             `gorm:"column:return_id;type:uuid;index"`
	Type      enums.AssignmentType   `gorm:"column:type;type:assignment_type;not null;default:'delivery'"`
	Status    enums.AssignmentStatus `gorm:"column:status;type:assignment_status;not null;default:'assigned'"`

	DistanceKM  float64         `gorm:"column:distance_km;not null;default:0"`
	BaseFee     decimal.Decimal `gorm:"column:base_fee;type:numeric(12,2);not null;default:0"`
	PickupFees  decimal.Decimal `gorm:"column:pickup_fees;type:numeric(12,2);not null;default:0"`
	DistanceFee decimal.Decimal `gorm:"column:distance_fee;type:numeric(12,2);not null;default:0"`
	Incentive   decimal.Decimal `gorm:"column:incentive;type:numeric(12,2);not null;default:0"`
	Earnings    decimal.Decimal `gorm:"column:earnings;type:numeric(12,2);not null;default:0"`

	AssignedAt  time.Time  `gorm:"column:assigned_at;autoCreateTime"`
	CompletedAt *time.Time `gorm:"column:completed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
