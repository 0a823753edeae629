package enums

import "fmt"

// ZoneBoundaryType selects how a delivery zone's area is defined.
type ZoneBoundaryType string

const (
	ZoneBoundaryTypeRadius  ZoneBoundaryType = "radius"
	ZoneBoundaryTypePolygon ZoneBoundaryType = "polygon"
)

var validZoneBoundaryTypes = []ZoneBoundaryType{
	ZoneBoundaryTypeRadius,
	ZoneBoundaryTypePolygon,
}

// String implements fmt.Stringer.
func (z ZoneBoundaryType) String() string {
	return string(z)
}

// IsValid reports whether the value is a known ZoneBoundaryType.
func (z ZoneBoundaryType) IsValid() bool {
	for _, candidate := range validZoneBoundaryTypes {
		if candidate == z {
			return true
		}
	}
	return false
}

// ParseZoneBoundaryType converts raw input into a ZoneBoundaryType.
func ParseZoneBoundaryType(value string) (ZoneBoundaryType, error) {
	for _, candidate := range validZoneBoundaryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid zone boundary type %q", value)
}
