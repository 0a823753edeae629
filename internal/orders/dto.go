package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/internal/routing"
)

// SellerItemAction is the decision a seller takes on one item.
type SellerItemAction string

const (
	SellerItemActionAccept    SellerItemAction = "accept"
	SellerItemActionReject    SellerItemAction = "reject"
	SellerItemActionPreparing SellerItemAction = "preparing"
)

// Actor roles recorded on item state-change events.
const (
	actorRoleBuyer   = "buyer"
	actorRoleSeller  = "seller"
	actorRoleCourier = "courier"
	actorRoleSystem  = "system"
)

// SellerActionInput applies one seller decision to one order item.
type SellerActionInput struct {
	SellerID uuid.UUID
	ItemID   uuid.UUID
	Action   SellerItemAction
}

// EarningsBreakdown prices a courier run from the zone tariff.
type EarningsBreakdown struct {
	BaseFee     decimal.Decimal `json:"base_fee"`
	PickupFees  decimal.Decimal `json:"pickup_fees"`
	DistanceFee decimal.Decimal `json:"distance_fee"`
	Incentive   decimal.Decimal `json:"incentive"`
	Total       decimal.Decimal `json:"total"`
}

// DispatchRoute is the pickup route shown to a courier before they
// accept an order, with the pay for the run.
type DispatchRoute struct {
	OrderID  uuid.UUID          `json:"order_id"`
	Plan     *routing.RoutePlan `json:"plan"`
	Earnings EarningsBreakdown  `json:"earnings"`
}
