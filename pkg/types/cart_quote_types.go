package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// CartItemWarning captures a warning attached to a persisted cart line.
type CartItemWarning struct {
	Type    enums.CartItemWarningType `json:"type"`
	Message string                    `json:"message"`
}

// CartItemWarnings is a slice marshaled as JSONB.
type CartItemWarnings []CartItemWarning

// Value serializes the warnings to JSON.
func (c CartItemWarnings) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan decodes JSONB into the warning slice.
func (c *CartItemWarnings) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded CartItemWarnings
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*c = decoded
	return nil
}

// AppliedPromo captures the promo data persisted on an order. Cashback
// promos keep the full payable at checkout and credit the wallet later,
// so the award bookkeeping lives alongside the discount.
type AppliedPromo struct {
	Code      string          `json:"code"`
	Kind      enums.PromoKind `json:"kind"`
	Discount  decimal.Decimal `json:"discount"`
	Cashback  bool            `json:"cashback,omitempty"`
	Awarded   bool            `json:"awarded,omitempty"`
	AwardedAt *time.Time      `json:"awarded_at,omitempty"`
}

// Value serializes the promo object to JSON.
func (a *AppliedPromo) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan decodes JSONB into the promo struct.
func (a *AppliedPromo) Scan(value interface{}) error {
	if value == nil {
		*a = AppliedPromo{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, a)
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
