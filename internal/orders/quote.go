package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/internal/geo"
	"github.com/nearbasket/nearbasket-backend/internal/pricing"
	"github.com/nearbasket/nearbasket-backend/internal/routing"
	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	"github.com/nearbasket/nearbasket-backend/pkg/types"
)

// CheckoutQuote previews the money breakdown for the active cart
// without reserving stock or touching the wallet.
type CheckoutQuote struct {
	Quote            *pricing.Quote          `json:"quote"`
	ItemsTotal       decimal.Decimal         `json:"items_total"`
	CartWarnings     []types.CartItemWarning `json:"cart_warnings,omitempty"`
	Clean            bool                    `json:"clean"`
	EstimatedMinutes int                     `json:"estimated_minutes,omitempty"`
}

// Quote dry-runs the checkout pricing. A cart without delivery details,
// or any pricing failure, degrades to a summary that still carries the
// items total and the wallet offset so the client can render something.
func (s *service) Quote(ctx context.Context, userID uuid.UUID) (*CheckoutQuote, error) {
	result, err := s.carts.Reconcile(ctx, userID)
	if err != nil {
		return nil, err
	}
	record := result.Cart
	out := &CheckoutQuote{
		ItemsTotal:   result.ItemsTotal,
		CartWarnings: result.CartWarnings,
		Clean:        result.Clean,
	}

	walletBalance := decimal.Zero
	if record.PaymentMethod != nil && *record.PaymentMethod == enums.PaymentMethodWallet {
		walletBalance, err = s.wallet.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	priced, minutes := s.priceCart(ctx, userID, record, result.ItemsTotal, walletBalance)
	if priced == nil {
		priced = fallbackQuote(result.ItemsTotal, walletBalance)
	}
	out.Quote = priced
	out.EstimatedMinutes = minutes
	return out, nil
}

func (s *service) priceCart(ctx context.Context, userID uuid.UUID, record *models.CartRecord, itemsTotal, walletBalance decimal.Decimal) (*pricing.Quote, int) {
	if record.DeliveryLat == nil || record.DeliveryLng == nil || activeItemCount(record) == 0 {
		return nil, 0
	}
	lat, lng := *record.DeliveryLat, *record.DeliveryLng

	tariffs, err := s.zones.TariffsAt(ctx, lat, lng)
	if err != nil || tariffs == nil || !tariffs.Exists {
		return nil, 0
	}
	_, stores, err := s.loadCheckoutLines(ctx, record)
	if err != nil {
		return nil, 0
	}
	plan, err := routing.Plan(lat, lng, stores)
	if err != nil {
		return nil, 0
	}

	discount := decimal.Zero
	if record.PromoCode != nil {
		promo, err := s.promos.Validate(ctx, *record.PromoCode, userID, itemsTotal)
		if err == nil && promo != nil {
			base, err := pricing.Summarize(pricing.SummarizeInput{
				ItemsTotal:    itemsTotal,
				StoreCount:    len(stores),
				DistanceKM:    plan.TotalKM,
				RushRequested: record.RushRequested,
				Tariffs:       *tariffs,
			})
			if err == nil {
				discount = s.promos.Discount(promo, itemsTotal, base.DeliveryCharge)
			}
		}
	}

	quote, err := pricing.Summarize(pricing.SummarizeInput{
		ItemsTotal:    itemsTotal,
		StoreCount:    len(stores),
		DistanceKM:    plan.TotalKM,
		RushRequested: record.RushRequested,
		Tariffs:       *tariffs,
		PromoDiscount: discount,
		WalletBalance: walletBalance,
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "user_id", userID.String()), "cart quote degraded to defaults")
		return nil, 0
	}

	minutes := 0
	estimate, err := s.zones.EstimateDeliveryTime(ctx, geo.EstimateInput{
		Lat:             lat,
		Lng:             lng,
		DistanceKM:      plan.TotalKM,
		BasePrepMinutes: s.cfg.DefaultPrepBufferMinutes,
		Rush:            quote.RushDelivery,
	})
	if err == nil && estimate != nil {
		minutes = estimate.Minutes
	}
	return quote, minutes
}

func fallbackQuote(itemsTotal, walletBalance decimal.Decimal) *pricing.Quote {
	applied := walletBalance
	if applied.GreaterThan(itemsTotal) {
		applied = itemsTotal
	}
	return &pricing.Quote{
		ItemsTotal:    itemsTotal,
		WalletApplied: applied,
		FinalTotal:    itemsTotal,
		PayableTotal:  itemsTotal.Sub(applied),
	}
}

func activeItemCount(record *models.CartRecord) int {
	count := 0
	for i := range record.Items {
		if record.Items[i].Status != enums.CartItemStatusSaved {
			count++
		}
	}
	return count
}
