package enums

import "fmt"

// CartItemWarningType enumerates warning reasons stored with cart items
// after reconciliation against the live catalog.
type CartItemWarningType string

const (
	CartItemWarningTypePriceChanged    CartItemWarningType = "price_changed"
	CartItemWarningTypeOutOfStock      CartItemWarningType = "out_of_stock"
	CartItemWarningTypeClampedToStock  CartItemWarningType = "clamped_to_stock"
	CartItemWarningTypeStoreUnserviced CartItemWarningType = "store_unserviced"
	CartItemWarningTypeRemoved         CartItemWarningType = "removed"
	CartItemWarningTypeInvalidPromo    CartItemWarningType = "invalid_promo"
	CartItemWarningTypeReassigned      CartItemWarningType = "reassigned"
)

var validCartItemWarningTypes = []CartItemWarningType{
	CartItemWarningTypePriceChanged,
	CartItemWarningTypeOutOfStock,
	CartItemWarningTypeClampedToStock,
	CartItemWarningTypeStoreUnserviced,
	CartItemWarningTypeRemoved,
	CartItemWarningTypeInvalidPromo,
	CartItemWarningTypeReassigned,
}

// String implements fmt.Stringer.
func (c CartItemWarningType) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CartItemWarningType) IsValid() bool {
	for _, candidate := range validCartItemWarningTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartItemWarningType converts raw input into a CartItemWarningType.
func ParseCartItemWarningType(value string) (CartItemWarningType, error) {
	for _, candidate := range validCartItemWarningTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart item warning type %q", value)
}
