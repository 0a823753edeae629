package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FakeProvider is an in-memory Provider used in tests and local runs.
// Every intent it creates captures successfully unless FailCapture is
// set.
type FakeProvider struct {
	mu          sync.Mutex
	FailCapture bool
	FailRefund  bool
	Refunds     map[string]decimal.Decimal
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{Refunds: map[string]decimal.Decimal{}}
}

func (f *FakeProvider) CreateIntent(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, currency string) (*Intent, error) {
	return &Intent{
		Reference: fmt.Sprintf("fake-%s", orderID),
		Amount:    amount,
		Currency:  currency,
	}, nil
}

func (f *FakeProvider) Verify(ctx context.Context, reference string) (*CaptureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCapture {
		return &CaptureResult{Reference: reference, Captured: false, Failure: "declined"}, nil
	}
	return &CaptureResult{Reference: reference, Captured: true}, nil
}

func (f *FakeProvider) Refund(ctx context.Context, reference string, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRefund {
		return fmt.Errorf("refund rejected")
	}
	f.Refunds[reference] = f.Refunds[reference].Add(amount)
	return nil
}
