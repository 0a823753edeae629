package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/internal/geo"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
)

// SummarizeInput carries everything the quote needs. Tariffs come from
// the zone covering the delivery point; PromoDiscount is the already
// validated coupon or instant discount; WalletBalance caps the wallet
// offset.
type SummarizeInput struct {
	ItemsTotal    decimal.Decimal
	StoreCount    int
	DistanceKM    float64
	RushRequested bool

	Tariffs geo.TariffSheet

	PromoDiscount decimal.Decimal
	WalletBalance decimal.Decimal
}

// Quote is the full money breakdown for an order.
type Quote struct {
	ItemsTotal     decimal.Decimal `json:"items_total"`
	HandlingFee    decimal.Decimal `json:"handling_fee"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	DropoffFee     decimal.Decimal `json:"dropoff_fee"`
	PromoDiscount  decimal.Decimal `json:"promo_discount"`
	WalletApplied  decimal.Decimal `json:"wallet_applied"`

	FinalTotal   decimal.Decimal `json:"final_total"`
	PayableTotal decimal.Decimal `json:"payable_total"`

	RushDelivery   bool `json:"rush_delivery"`
	RushDowngraded bool `json:"rush_downgraded"`
	FreeDelivery   bool `json:"free_delivery"`
}

// Summarize computes the order money breakdown. Fees apply in a fixed
// order: rush downgrade, per-store drop-off, the zone's flat delivery
// charge plus the distance fee, the free delivery threshold (never with
// rush), then discount and wallet offset.
func Summarize(input SummarizeInput) (*Quote, error) {
	if !input.Tariffs.Exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not available at this location")
	}
	if input.StoreCount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store count must be positive")
	}
	if input.ItemsTotal.IsNegative() || input.DistanceKM < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing input")
	}

	quote := &Quote{
		ItemsTotal:  input.ItemsTotal,
		HandlingFee: input.Tariffs.HandlingFee,
	}

	rush := input.RushRequested
	if rush && !input.Tariffs.RushAvailable {
		rush = false
		quote.RushDowngraded = true
	}
	quote.RushDelivery = rush

	quote.DropoffFee = input.Tariffs.DropoffFeePerStore.Mul(decimal.NewFromInt(int64(input.StoreCount)))

	flat := input.Tariffs.RegularDeliveryCharge
	perKM := input.Tariffs.DistanceFeePerKM
	if rush {
		flat = input.Tariffs.RushDeliveryCharge
		perKM = input.Tariffs.RushDistanceFeePerKM
	}
	quote.DeliveryCharge = flat.Add(perKM.Mul(decimal.NewFromFloat(input.DistanceKM))).Round(2)

	if !rush && input.Tariffs.FreeDeliveryThreshold.IsPositive() &&
		input.ItemsTotal.GreaterThanOrEqual(input.Tariffs.FreeDeliveryThreshold) {
		quote.DeliveryCharge = decimal.Zero
		quote.FreeDelivery = true
	}

	payable := quote.ItemsTotal.
		Add(quote.HandlingFee).
		Add(quote.DeliveryCharge).
		Add(quote.DropoffFee)

	discount := input.PromoDiscount
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(payable) {
		discount = payable
	}
	quote.PromoDiscount = discount
	payable = payable.Sub(discount)
	quote.FinalTotal = payable

	wallet := input.WalletBalance
	if wallet.IsNegative() {
		wallet = decimal.Zero
	}
	if wallet.GreaterThan(payable) {
		wallet = payable
	}
	quote.WalletApplied = wallet
	quote.PayableTotal = payable.Sub(wallet)

	return quote, nil
}
