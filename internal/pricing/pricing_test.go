package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/internal/geo"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
)

func tariffs() geo.TariffSheet {
	return geo.TariffSheet{
		Exists:                true,
		DistanceFeePerKM:      decimal.NewFromInt(8),
		RushDistanceFeePerKM:  decimal.NewFromInt(14),
		DropoffFeePerStore:    decimal.NewFromInt(10),
		HandlingFee:           decimal.NewFromInt(5),
		FreeDeliveryThreshold: decimal.NewFromInt(500),
		RushAvailable:         true,
	}
}

func TestSummarize(t *testing.T) {
	quote, err := Summarize(SummarizeInput{
		ItemsTotal: decimal.NewFromInt(300),
		StoreCount: 2,
		DistanceKM: 4,
		Tariffs:    tariffs(),
	})
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}

	// 300 items + 5 handling + 32 distance + 20 dropoff.
	if !quote.DeliveryCharge.Equal(decimal.NewFromInt(32)) {
		t.Fatalf("delivery charge = %s", quote.DeliveryCharge)
	}
	if !quote.DropoffFee.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("dropoff fee = %s", quote.DropoffFee)
	}
	if !quote.FinalTotal.Equal(decimal.NewFromInt(357)) {
		t.Fatalf("final total = %s", quote.FinalTotal)
	}
	if !quote.PayableTotal.Equal(quote.FinalTotal) {
		t.Fatalf("payable = %s", quote.PayableTotal)
	}
}

func TestSummarize_RushUsesRushTariff(t *testing.T) {
	quote, err := Summarize(SummarizeInput{
		ItemsTotal:    decimal.NewFromInt(300),
		StoreCount:    1,
		DistanceKM:    4,
		RushRequested: true,
		Tariffs:       tariffs(),
	})
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if !quote.RushDelivery || quote.RushDowngraded {
		t.Fatalf("expected rush delivery, got %+v", quote)
	}
	if !quote.DeliveryCharge.Equal(decimal.NewFromInt(56)) {
		t.Fatalf("rush delivery charge = %s", quote.DeliveryCharge)
	}
}

func TestSummarize_FlatChargeAppliesAtZeroDistance(t *testing.T) {
	sheet := tariffs()
	sheet.RegularDeliveryCharge = decimal.NewFromInt(20)
	sheet.RushDeliveryCharge = decimal.NewFromInt(35)

	quote, err := Summarize(SummarizeInput{
		ItemsTotal: decimal.NewFromInt(100),
		StoreCount: 1,
		DistanceKM: 0,
		Tariffs:    sheet,
	})
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if !quote.DeliveryCharge.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("delivery charge = %s, want the flat zone charge", quote.DeliveryCharge)
	}

	rushQuote, err := Summarize(SummarizeInput{
		ItemsTotal:    decimal.NewFromInt(100),
		StoreCount:    1,
		DistanceKM:    2,
		RushRequested: true,
		Tariffs:       sheet,
	})
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	// 35 flat rush + 2 km * 14.
	if !rushQuote.DeliveryCharge.Equal(decimal.NewFromInt(63)) {
		t.Fatalf("rush delivery charge = %s", rushQuote.DeliveryCharge)
	}
}

func TestSummarize_RushDowngrade(t *testing.T) {
	sheet := tariffs()
	sheet.RushAvailable = false

	quote, err := Summarize(SummarizeInput{
		ItemsTotal:    decimal.NewFromInt(300),
		StoreCount:    1,
		DistanceKM:    4,
		RushRequested: true,
		Tariffs:       sheet,
	})
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if quote.RushDelivery || !quote.RushDowngraded {
		t.Fatalf("expected downgrade, got %+v", quote)
	}
	if !quote.DeliveryCharge.Equal(decimal.NewFromInt(32)) {
		t.Fatalf("downgraded charge should use the standard tariff, got %s", quote.DeliveryCharge)
	}
}

func TestSummarize_FreeDelivery(t *testing.T) {
	quote, err := Summarize(SummarizeInput{
		ItemsTotal: decimal.NewFromInt(600),
		StoreCount: 1,
		DistanceKM: 4,
		Tariffs:    tariffs(),
	})
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if !quote.FreeDelivery || !quote.DeliveryCharge.IsZero() {
		t.Fatalf("expected free delivery, got %+v", quote)
	}
	// Dropoff and handling still apply.
	if !quote.FinalTotal.Equal(decimal.NewFromInt(615)) {
		t.Fatalf("final total = %s", quote.FinalTotal)
	}
}

func TestSummarize_RushNeverFree(t *testing.T) {
	quote, err := Summarize(SummarizeInput{
		ItemsTotal:    decimal.NewFromInt(600),
		StoreCount:    1,
		DistanceKM:    4,
		RushRequested: true,
		Tariffs:       tariffs(),
	})
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if quote.FreeDelivery || quote.DeliveryCharge.IsZero() {
		t.Fatalf("rush orders never get free delivery, got %+v", quote)
	}
}

func TestSummarize_PromoAndWallet(t *testing.T) {
	quote, err := Summarize(SummarizeInput{
		ItemsTotal:    decimal.NewFromInt(300),
		StoreCount:    1,
		DistanceKM:    4,
		Tariffs:       tariffs(),
		PromoDiscount: decimal.NewFromInt(50),
		WalletBalance: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	// 300 + 5 + 32 + 10 = 347, minus 50 promo = 297, minus 100 wallet.
	if !quote.FinalTotal.Equal(decimal.NewFromInt(297)) {
		t.Fatalf("final total = %s", quote.FinalTotal)
	}
	if !quote.WalletApplied.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("wallet applied = %s", quote.WalletApplied)
	}
	if !quote.PayableTotal.Equal(decimal.NewFromInt(197)) {
		t.Fatalf("payable = %s", quote.PayableTotal)
	}
}

func TestSummarize_WalletCappedAtPayable(t *testing.T) {
	quote, err := Summarize(SummarizeInput{
		ItemsTotal:    decimal.NewFromInt(50),
		StoreCount:    1,
		DistanceKM:    0,
		Tariffs:       tariffs(),
		WalletBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if !quote.PayableTotal.IsZero() {
		t.Fatalf("payable = %s, want 0", quote.PayableTotal)
	}
	if !quote.WalletApplied.Equal(quote.FinalTotal) {
		t.Fatalf("wallet applied %s should equal final total %s", quote.WalletApplied, quote.FinalTotal)
	}
}

func TestSummarize_NoZone(t *testing.T) {
	_, err := Summarize(SummarizeInput{
		ItemsTotal: decimal.NewFromInt(100),
		StoreCount: 1,
		Tariffs:    geo.TariffSheet{},
	})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
