package enums

import "fmt"

// ReturnStatus tracks a requested item return from the buyer's side.
type ReturnStatus string

const (
	ReturnStatusRequested        ReturnStatus = "requested"
	ReturnStatusSellerApproved   ReturnStatus = "seller_approved"
	ReturnStatusPickedUp         ReturnStatus = "picked_up"
	ReturnStatusReceivedBySeller ReturnStatus = "received_by_seller"
	ReturnStatusCompleted        ReturnStatus = "completed"
	ReturnStatusCancelled        ReturnStatus = "cancelled"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusSellerApproved,
	ReturnStatusPickedUp,
	ReturnStatusReceivedBySeller,
	ReturnStatusCompleted,
	ReturnStatusCancelled,
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsClosed reports whether the return can no longer change.
func (r ReturnStatus) IsClosed() bool {
	return r == ReturnStatusCompleted || r == ReturnStatusCancelled
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
