package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Intent is a capture attempt registered with the gateway before the
// buyer confirms payment.
type Intent struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// CaptureResult reports the gateway's verdict on a capture.
type CaptureResult struct {
	Reference string `json:"reference"`
	Captured  bool   `json:"captured"`
	Failure   string `json:"failure,omitempty"`
}

// Provider abstracts the external payment gateway. COD and wallet
// settlements never touch it.
type Provider interface {
	CreateIntent(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, currency string) (*Intent, error)
	Verify(ctx context.Context, reference string) (*CaptureResult, error)
	Refund(ctx context.Context, reference string, amount decimal.Decimal) error
}
