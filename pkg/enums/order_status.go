package enums

import "fmt"

// OrderStatus tracks the buyer-facing lifecycle of a whole order.
type OrderStatus string

const (
	OrderStatusPlaced                OrderStatus = "placed"
	OrderStatusAwaitingStoreResponse OrderStatus = "awaiting_store_response"
	OrderStatusPartiallyAccepted     OrderStatus = "partially_accepted"
	OrderStatusReadyForPickup        OrderStatus = "ready_for_pickup"
	OrderStatusRejectedBySeller      OrderStatus = "rejected_by_seller"
	OrderStatusCompleted             OrderStatus = "completed"
	OrderStatusCancelled             OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusAwaitingStoreResponse,
	OrderStatusPartiallyAccepted,
	OrderStatusReadyForPickup,
	OrderStatusRejectedBySeller,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
