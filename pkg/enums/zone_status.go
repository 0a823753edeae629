package enums

import "fmt"

// ZoneStatus tracks whether a delivery zone accepts new orders.
type ZoneStatus string

const (
	ZoneStatusActive   ZoneStatus = "active"
	ZoneStatusInactive ZoneStatus = "inactive"
)

var validZoneStatuses = []ZoneStatus{
	ZoneStatusActive,
	ZoneStatusInactive,
}

// String implements fmt.Stringer.
func (z ZoneStatus) String() string {
	return string(z)
}

// IsValid reports whether the value is a known ZoneStatus.
func (z ZoneStatus) IsValid() bool {
	for _, candidate := range validZoneStatuses {
		if candidate == z {
			return true
		}
	}
	return false
}

// ParseZoneStatus converts raw input into a ZoneStatus.
func ParseZoneStatus(value string) (ZoneStatus, error) {
	for _, candidate := range validZoneStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid zone status %q", value)
}
