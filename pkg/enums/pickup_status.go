package enums

import "fmt"

// PickupStatus tracks the courier leg of a return, from assignment to
// handover back at the seller's store.
type PickupStatus string

const (
	PickupStatusPending           PickupStatus = "pending"
	PickupStatusAssigned          PickupStatus = "assigned"
	PickupStatusPickedUp          PickupStatus = "picked_up"
	PickupStatusDeliveredToSeller PickupStatus = "delivered_to_seller"
)

var validPickupStatuses = []PickupStatus{
	PickupStatusPending,
	PickupStatusAssigned,
	PickupStatusPickedUp,
	PickupStatusDeliveredToSeller,
}

// String implements fmt.Stringer.
func (p PickupStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PickupStatus.
func (p PickupStatus) IsValid() bool {
	for _, candidate := range validPickupStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePickupStatus converts raw input into a PickupStatus.
func ParsePickupStatus(value string) (PickupStatus, error) {
	for _, candidate := range validPickupStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pickup status %q", value)
}
