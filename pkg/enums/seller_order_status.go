package enums

import "fmt"

// SellerOrderStatus summarizes one seller's slice of an order. It is
// derived from the statuses of that seller's items.
type SellerOrderStatus string

const (
	SellerOrderStatusAwaitingStoreResponse SellerOrderStatus = "awaiting_store_response"
	SellerOrderStatusPartiallyAccepted     SellerOrderStatus = "partially_accepted"
	SellerOrderStatusReadyForPickup        SellerOrderStatus = "ready_for_pickup"
	SellerOrderStatusRejectedBySeller      SellerOrderStatus = "rejected_by_seller"
	SellerOrderStatusCompleted             SellerOrderStatus = "completed"
)

var validSellerOrderStatuses = []SellerOrderStatus{
	SellerOrderStatusAwaitingStoreResponse,
	SellerOrderStatusPartiallyAccepted,
	SellerOrderStatusReadyForPickup,
	SellerOrderStatusRejectedBySeller,
	SellerOrderStatusCompleted,
}

// String implements fmt.Stringer.
func (s SellerOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SellerOrderStatus.
func (s SellerOrderStatus) IsValid() bool {
	for _, candidate := range validSellerOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSellerOrderStatus converts raw input into a SellerOrderStatus.
func ParseSellerOrderStatus(value string) (SellerOrderStatus, error) {
	for _, candidate := range validSellerOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid seller order status %q", value)
}
