package enums

import "fmt"

// OrderItemStatus tracks a single order item through fulfillment.
type OrderItemStatus string

const (
	OrderItemStatusPending               OrderItemStatus = "pending"
	OrderItemStatusAwaitingStoreResponse OrderItemStatus = "awaiting_store_response"
	OrderItemStatusAccepted              OrderItemStatus = "accepted"
	OrderItemStatusPreparing             OrderItemStatus = "preparing"
	OrderItemStatusCollected             OrderItemStatus = "collected"
	OrderItemStatusDelivered             OrderItemStatus = "delivered"
	OrderItemStatusReturned              OrderItemStatus = "returned"
	OrderItemStatusRejected              OrderItemStatus = "rejected"
	OrderItemStatusCancelled             OrderItemStatus = "cancelled"
	OrderItemStatusFailed                OrderItemStatus = "failed"
	OrderItemStatusRefunded              OrderItemStatus = "refunded"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusPending,
	OrderItemStatusAwaitingStoreResponse,
	OrderItemStatusAccepted,
	OrderItemStatusPreparing,
	OrderItemStatusCollected,
	OrderItemStatusDelivered,
	OrderItemStatusReturned,
	OrderItemStatusRejected,
	OrderItemStatusCancelled,
	OrderItemStatusFailed,
	OrderItemStatusRefunded,
}

// orderItemStatusRanks orders the forward fulfillment path. Terminal
// statuses carry rank -1 and never advance.
var orderItemStatusRanks = map[OrderItemStatus]int{
	OrderItemStatusPending:               1,
	OrderItemStatusAwaitingStoreResponse: 2,
	OrderItemStatusAccepted:              3,
	OrderItemStatusPreparing:             4,
	OrderItemStatusCollected:             5,
	OrderItemStatusDelivered:             6,
	OrderItemStatusReturned:              7,
	OrderItemStatusRejected:              -1,
	OrderItemStatusCancelled:             -1,
	OrderItemStatusFailed:                -1,
	OrderItemStatusRefunded:              -1,
}

// String implements fmt.Stringer.
func (s OrderItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderItemStatus.
func (s OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Rank returns the position of the status on the fulfillment path, or
// -1 for terminal statuses.
func (s OrderItemStatus) Rank() int {
	rank, ok := orderItemStatusRanks[s]
	if !ok {
		return -1
	}
	return rank
}

// IsTerminal reports whether the status ends the item lifecycle.
func (s OrderItemStatus) IsTerminal() bool {
	return s.IsValid() && s.Rank() == -1
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Terminal statuses are locked. Rejection is only possible before the
// seller has accepted, and a return only from delivered. Any terminal
// status is reachable from a live one; otherwise the path is strictly
// forward.
func (s OrderItemStatus) CanTransitionTo(next OrderItemStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	if next == OrderItemStatusRejected {
		return s.Rank() < orderItemStatusRanks[OrderItemStatusAccepted]
	}
	if next == OrderItemStatusReturned {
		return s == OrderItemStatusDelivered
	}
	if next.IsTerminal() {
		return true
	}
	return next.Rank() > s.Rank()
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}
