package enums

import "fmt"

// PromoKind distinguishes coupon codes the buyer enters, instant
// promotions applied automatically at checkout, and cashback promotions
// that credit the wallet after delivery instead of reducing the payable.
type PromoKind string

const (
	PromoKindCoupon   PromoKind = "coupon"
	PromoKindInstant  PromoKind = "instant"
	PromoKindCashback PromoKind = "cashback"
)

var validPromoKinds = []PromoKind{
	PromoKindCoupon,
	PromoKindInstant,
	PromoKindCashback,
}

// String implements fmt.Stringer.
func (p PromoKind) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromoKind.
func (p PromoKind) IsValid() bool {
	for _, candidate := range validPromoKinds {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromoKind converts raw input into a PromoKind.
func ParsePromoKind(value string) (PromoKind, error) {
	for _, candidate := range validPromoKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promo kind %q", value)
}

// PromoDiscountType selects how a promo's discount is computed.
type PromoDiscountType string

const (
	PromoDiscountTypePercentage   PromoDiscountType = "percentage"
	PromoDiscountTypeFixed        PromoDiscountType = "fixed"
	PromoDiscountTypeFreeShipping PromoDiscountType = "free_shipping"
)

var validPromoDiscountTypes = []PromoDiscountType{
	PromoDiscountTypePercentage,
	PromoDiscountTypeFixed,
	PromoDiscountTypeFreeShipping,
}

// String implements fmt.Stringer.
func (p PromoDiscountType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromoDiscountType.
func (p PromoDiscountType) IsValid() bool {
	for _, candidate := range validPromoDiscountTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromoDiscountType converts raw input into a PromoDiscountType.
func ParsePromoDiscountType(value string) (PromoDiscountType, error) {
	for _, candidate := range validPromoDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promo discount type %q", value)
}
