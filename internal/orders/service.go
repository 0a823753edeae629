package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/internal/cart"
	"github.com/nearbasket/nearbasket-backend/internal/catalog"
	"github.com/nearbasket/nearbasket-backend/internal/geo"
	"github.com/nearbasket/nearbasket-backend/internal/ledger"
	"github.com/nearbasket/nearbasket-backend/internal/pricing"
	"github.com/nearbasket/nearbasket-backend/internal/routing"
	"github.com/nearbasket/nearbasket-backend/internal/settings"
	"github.com/nearbasket/nearbasket-backend/internal/wallet"
	"github.com/nearbasket/nearbasket-backend/pkg/config"
	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
	"github.com/nearbasket/nearbasket-backend/pkg/logger"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox/payloads"
	"github.com/nearbasket/nearbasket-backend/pkg/payment"
	"github.com/nearbasket/nearbasket-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cartSource interface {
	Reconcile(ctx context.Context, userID uuid.UUID) (*cart.ReconcileResult, error)
	Convert(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type zoneService interface {
	Locate(ctx context.Context, lat, lng float64) (*models.DeliveryZone, error)
	GetZone(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error)
	TariffsAt(ctx context.Context, lat, lng float64) (*geo.TariffSheet, error)
	EstimateDeliveryTime(ctx context.Context, input geo.EstimateInput) (*geo.DeliveryEstimate, error)
}

type stockKeeper interface {
	GetListingDetail(ctx context.Context, listingID uuid.UUID) (*catalog.StoreVariantDetail, error)
	ReserveStock(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error
	ReleaseStock(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error
}

type promoEngine interface {
	Validate(ctx context.Context, code string, userID uuid.UUID, orderTotal decimal.Decimal) (*models.Promo, error)
	Discount(promo *models.Promo, cartTotal, deliveryCharge decimal.Decimal) decimal.Decimal
	Redeem(ctx context.Context, tx *gorm.DB, promo *models.Promo, userID, orderID uuid.UUID, amount decimal.Decimal) error
}

type walletLedger interface {
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Credit(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error)
}

type statementPoster interface {
	Post(ctx context.Context, tx *gorm.DB, input ledger.PostStatementInput) (*models.SellerStatement, error)
}

type storeDirectory interface {
	GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	GetSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error)
}

type settingsProvider interface {
	GetString(ctx context.Context, key, fallback string) string
	GetInt(ctx context.Context, key string, fallback int) int
	GetDecimal(ctx context.Context, key string, fallback decimal.Decimal) decimal.Decimal
	GetBool(ctx context.Context, key string, fallback bool) bool
}

// Service drives an order from checkout through delivery.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID) (*models.Order, error)
	Quote(ctx context.Context, userID uuid.UUID) (*CheckoutQuote, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SellerOrder, error)

	SellerAction(ctx context.Context, input SellerActionInput) error
	Collect(ctx context.Context, courierID, sellerOrderID uuid.UUID) error
	Deliver(ctx context.Context, courierID, orderID uuid.UUID, otp string) error
	CancelItem(ctx context.Context, userID, itemID uuid.UUID) error

	MarkPaymentCaptured(ctx context.Context, orderID uuid.UUID, reference string) error
	MarkPaymentFailed(ctx context.Context, orderID uuid.UUID, reason string) error

	CourierRoute(ctx context.Context, orderID uuid.UUID) (*DispatchRoute, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	carts      cartSource
	zones      zoneService
	stock      stockKeeper
	promos     promoEngine
	wallet     walletLedger
	statements statementPoster
	stores     storeDirectory
	settings   settingsProvider
	payments   payment.Provider
	cfg        config.DeliveryConfig
	logg       *logger.Logger
}

// NewService builds the order lifecycle service with its collaborators.
func NewService(
	repo Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	carts cartSource,
	zones zoneService,
	stock stockKeeper,
	promos promoEngine,
	walletSvc walletLedger,
	statements statementPoster,
	stores storeDirectory,
	settingsSvc settingsProvider,
	payments payment.Provider,
	cfg config.DeliveryConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart source required")
	}
	if zones == nil {
		return nil, fmt.Errorf("zone service required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock keeper required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promo engine required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if statements == nil {
		return nil, fmt.Errorf("statement poster required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store directory required")
	}
	if settingsSvc == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		outbox:     outboxSvc,
		carts:      carts,
		zones:      zones,
		stock:      stock,
		promos:     promos,
		wallet:     walletSvc,
		statements: statements,
		stores:     stores,
		settings:   settingsSvc,
		payments:   payments,
		cfg:        cfg,
		logg:       logg,
	}, nil
}

type checkoutLine struct {
	item   models.CartItem
	detail *catalog.StoreVariantDetail
}

// Checkout converts the buyer's active cart into an order inside one
// transaction. Any failure rolls everything back; for online payments
// a refund of the registered intent is attempted best effort.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	result, err := s.carts.Reconcile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !result.Clean {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart changed, review before checkout").
			WithDetails(result.CartWarnings)
	}
	record := result.Cart
	if activeItemCount(record) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if record.DeliveryLat == nil || record.DeliveryLng == nil || record.PaymentMethod == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery details are incomplete")
	}
	method := *record.PaymentMethod
	lat, lng := *record.DeliveryLat, *record.DeliveryLng

	if err := s.checkoutGates(ctx, record, method); err != nil {
		return nil, err
	}

	zone, err := s.zones.Locate(ctx, lat, lng)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not available at this location")
	}
	if method == enums.PaymentMethodCOD && !zone.CODAllowed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash on delivery is not available in this zone")
	}
	tariffs, err := s.zones.TariffsAt(ctx, lat, lng)
	if err != nil {
		return nil, err
	}

	lines, stores, err := s.loadCheckoutLines(ctx, record)
	if err != nil {
		return nil, err
	}
	mode := s.settings.GetString(ctx, settings.KeyCheckoutMode, settings.CheckoutModeMultiStore)
	if mode == settings.CheckoutModeSingleStore && len(stores) > 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout is limited to a single store")
	}

	plan, err := routing.Plan(lat, lng, stores)
	if err != nil {
		return nil, err
	}

	base, err := pricing.Summarize(pricing.SummarizeInput{
		ItemsTotal:    result.ItemsTotal,
		StoreCount:    len(stores),
		DistanceKM:    plan.TotalKM,
		RushRequested: record.RushRequested,
		Tariffs:       *tariffs,
	})
	if err != nil {
		return nil, err
	}

	var promo *models.Promo
	discount := decimal.Zero
	if record.PromoCode != nil {
		promo, err = s.promos.Validate(ctx, *record.PromoCode, userID, result.ItemsTotal)
		if err != nil {
			return nil, err
		}
		discount = s.promos.Discount(promo, result.ItemsTotal, base.DeliveryCharge)
	}
	cashback := promo != nil && promo.Kind == enums.PromoKindCashback
	checkoutDiscount := discount
	if cashback {
		// Cashback credits the wallet after delivery; the payable stays whole.
		checkoutDiscount = decimal.Zero
	}

	walletBalance := decimal.Zero
	if method == enums.PaymentMethodWallet {
		walletBalance, err = s.wallet.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	quote, err := pricing.Summarize(pricing.SummarizeInput{
		ItemsTotal:    result.ItemsTotal,
		StoreCount:    len(stores),
		DistanceKM:    plan.TotalKM,
		RushRequested: record.RushRequested,
		Tariffs:       *tariffs,
		PromoDiscount: checkoutDiscount,
		WalletBalance: walletBalance,
	})
	if err != nil {
		return nil, err
	}
	if method == enums.PaymentMethodWallet && quote.PayableTotal.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient wallet balance").
			WithDetails(map[string]string{"short_by": quote.PayableTotal.String()})
	}
	minAmount := s.settings.GetDecimal(ctx, settings.KeyMinOrderAmount, decimal.Zero)
	if method != enums.PaymentMethodWallet && minAmount.IsPositive() && quote.PayableTotal.LessThan(minAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total below the minimum").
			WithDetails(map[string]string{"minimum": minAmount.String()})
	}

	// The slowest store gates the whole order.
	prepMinutes := 0
	for _, store := range stores {
		if store.BasePrepTimeMinutes > prepMinutes {
			prepMinutes = store.BasePrepTimeMinutes
		}
	}
	if prepMinutes == 0 {
		prepMinutes = s.cfg.DefaultPrepBufferMinutes
	}
	estimate, err := s.zones.EstimateDeliveryTime(ctx, geo.EstimateInput{
		Lat:             lat,
		Lng:             lng,
		DistanceKM:      plan.TotalKM,
		BasePrepMinutes: prepMinutes,
		Rush:            quote.RushDelivery,
	})
	if err != nil {
		return nil, err
	}

	var deliveryOTP *string
	if linesRequireOTP(lines) {
		otp, err := generateOTP(s.cfg.OTPLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating delivery otp")
		}
		deliveryOTP = &otp
	}

	order := s.buildOrder(userID, record, zone.ID, quote, plan.TotalKM, estimate.Minutes, deliveryOTP, method)
	if promo != nil {
		order.Promo = &types.AppliedPromo{Code: promo.Code, Kind: promo.Kind, Discount: discount, Cashback: cashback}
		order.PromoDiscount = checkoutDiscount
	}

	var paymentRef *string
	if method == enums.PaymentMethodOnline {
		currency := s.settings.GetString(ctx, settings.KeyCurrency, "INR")
		intent, err := s.payments.CreateIntent(ctx, order.ID, quote.PayableTotal, currency)
		if err != nil {
			return nil, err
		}
		paymentRef = &intent.Reference
		order.PaymentRef = paymentRef
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		number, err := txRepo.NextOrderNumber(ctx)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		if err := txRepo.CreateOrder(ctx, order); err != nil {
			return err
		}

		if err := s.persistLines(ctx, tx, txRepo, order, lines, stores, checkoutDiscount, result.ItemsTotal); err != nil {
			return err
		}

		if promo != nil {
			if err := s.promos.Redeem(ctx, tx, promo, userID, order.ID, discount); err != nil {
				return err
			}
		}
		if quote.WalletApplied.IsPositive() {
			orderID := order.ID
			if _, err := s.wallet.Debit(ctx, tx, wallet.EntryInput{
				UserID:    userID,
				Amount:    quote.WalletApplied,
				Reference: walletRefOrderPayment,
				SourceID:  &orderID,
			}); err != nil {
				return err
			}
		}
		if err := s.carts.Convert(ctx, tx, record.ID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPlacedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        userID,
				ZoneID:        zone.ID,
				PaymentMethod: method,
				PayableTotal:  quote.PayableTotal,
				StoreCount:    len(stores),
			},
		})
	})
	if err != nil {
		if paymentRef != nil {
			if rerr := s.payments.Refund(ctx, *paymentRef, quote.PayableTotal); rerr != nil {
				s.logg.Error(s.logg.WithField(ctx, "payment_ref", *paymentRef), "refunding abandoned checkout intent", rerr)
			}
		}
		var appErr *pkgerrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "placing order")
	}
	return s.repo.FindByID(ctx, order.ID)
}

func (s *service) checkoutGates(ctx context.Context, record *models.CartRecord, method enums.PaymentMethod) error {
	maxItems := s.settings.GetInt(ctx, settings.KeyMaxCartItems, 50)
	total := 0
	for _, item := range record.Items {
		total += item.Quantity
	}
	if maxItems > 0 && total > maxItems {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart exceeds the maximum item count").
			WithDetails(map[string]int{"max_items": maxItems})
	}

	// Wallet payments are always accepted; the rest can be toggled off.
	switch method {
	case enums.PaymentMethodCOD:
		if !s.settings.GetBool(ctx, settings.KeyPaymentCODEnabled, true) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cash on delivery is currently disabled")
		}
	case enums.PaymentMethodOnline:
		if !s.settings.GetBool(ctx, settings.KeyPaymentOnlineEnabled, true) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "online payment is currently disabled")
		}
	}
	return nil
}

func (s *service) loadCheckoutLines(ctx context.Context, record *models.CartRecord) ([]checkoutLine, []models.Store, error) {
	lines := make([]checkoutLine, 0, len(record.Items))
	var stores []models.Store
	seen := map[uuid.UUID]bool{}
	for _, item := range record.Items {
		if item.Status == enums.CartItemStatusSaved {
			continue
		}
		detail, err := s.stock.GetListingDetail(ctx, item.StoreProductVariantID)
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, checkoutLine{item: item, detail: detail})
		if !seen[detail.Store.ID] {
			seen[detail.Store.ID] = true
			store, err := s.stores.GetStore(ctx, detail.Store.ID)
			if err != nil {
				return nil, nil, err
			}
			stores = append(stores, *store)
		}
	}
	return lines, stores, nil
}

func (s *service) buildOrder(
	userID uuid.UUID,
	record *models.CartRecord,
	zoneID uuid.UUID,
	quote *pricing.Quote,
	distanceKM float64,
	estimatedMinutes int,
	otp *string,
	method enums.PaymentMethod,
) *models.Order {
	paymentStatus := enums.PaymentStatusPending
	if method == enums.PaymentMethodWallet {
		paymentStatus = enums.PaymentStatusCompleted
	}
	return &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		ZoneID:        zoneID,
		Status:        enums.OrderStatusPlaced,
		Delivery:      enums.DeliveryStatusPending,
		PaymentMethod: method,
		PaymentStatus: paymentStatus,

		DeliveryAddress: record.DeliveryAddress,
		DeliveryLat:     *record.DeliveryLat,
		DeliveryLng:     *record.DeliveryLng,
		DistanceKM:      distanceKM,

		RushDelivery:   quote.RushDelivery,
		RushDowngraded: quote.RushDowngraded,
		FreeDelivery:   quote.FreeDelivery,

		ItemsTotal:     quote.ItemsTotal,
		HandlingFee:    quote.HandlingFee,
		DeliveryCharge: quote.DeliveryCharge,
		DropoffFee:     quote.DropoffFee,
		PromoDiscount:  quote.PromoDiscount,
		WalletApplied:  quote.WalletApplied,
		FinalTotal:     quote.FinalTotal,
		PayableTotal:   quote.PayableTotal,

		EstimatedDeliveryMinutes: estimatedMinutes,
		DeliveryOTP:              otp,
	}
}

// linesRequireOTP reports whether any product in the order asks for a
// delivery confirmation code.
func linesRequireOTP(lines []checkoutLine) bool {
	for _, line := range lines {
		if line.detail.Product.RequiresOTP {
			return true
		}
	}
	return false
}

// persistLines writes one SellerOrder per seller and one OrderItem per
// cart line, reserving stock as it goes. The promo discount is split
// across lines in proportion to their subtotal; the last line absorbs
// the rounding remainder.
func (s *service) persistLines(
	ctx context.Context,
	tx *gorm.DB,
	txRepo Repository,
	order *models.Order,
	lines []checkoutLine,
	stores []models.Store,
	discount decimal.Decimal,
	itemsTotal decimal.Decimal,
) error {
	initialStatus := enums.OrderItemStatusPending
	if order.PaymentMethod == enums.PaymentMethodCOD || order.PaymentMethod == enums.PaymentMethodWallet {
		initialStatus = enums.OrderItemStatusAwaitingStoreResponse
	}

	rates := map[uuid.UUID]decimal.Decimal{}
	sellerOrders := make([]models.SellerOrder, 0, len(stores))
	for _, store := range stores {
		if _, ok := rates[store.SellerID]; ok {
			continue
		}
		seller, err := s.stores.GetSeller(ctx, store.SellerID)
		if err != nil {
			return err
		}
		rates[store.SellerID] = seller.CommissionRate
		sellerOrders = append(sellerOrders, models.SellerOrder{
			ID:       uuid.New(),
			OrderID:  order.ID,
			SellerID: store.SellerID,
			Status:   enums.SellerOrderStatusAwaitingStoreResponse,
			Subtotal: decimal.Zero,
		})
	}
	sellerOrderBySeller := map[uuid.UUID]*models.SellerOrder{}
	for i := range sellerOrders {
		sellerOrderBySeller[sellerOrders[i].SellerID] = &sellerOrders[i]
	}

	items := make([]models.OrderItem, 0, len(lines))
	allocated := decimal.Zero
	for i, line := range lines {
		share := decimal.Zero
		if discount.IsPositive() && itemsTotal.IsPositive() {
			if i == len(lines)-1 {
				share = discount.Sub(allocated)
			} else {
				share = discount.Mul(line.item.LineSubtotal).Div(itemsTotal).Round(2)
				allocated = allocated.Add(share)
			}
		}

		sellerOrder := sellerOrderBySeller[line.detail.Store.SellerID]
		rate := rates[line.detail.Store.SellerID]
		sellerOrder.Subtotal = sellerOrder.Subtotal.Add(line.item.LineSubtotal)

		items = append(items, models.OrderItem{
			ID:                    uuid.New(),
			OrderID:               order.ID,
			SellerOrderID:         sellerOrder.ID,
			SellerID:              sellerOrder.SellerID,
			StoreID:               line.detail.Store.ID,
			ProductID:             line.detail.Product.ID,
			StoreProductVariantID: line.detail.Listing.ID,

			ProductName: line.detail.Product.Name,
			Quantity:    line.item.Quantity,
			UnitPrice:   line.item.UnitPrice,
			Subtotal:    line.item.LineSubtotal,

			PromoShare:      share,
			AdminCommission: rate.Mul(line.item.LineSubtotal).Round(2),

			Status: initialStatus,

			IsCancelable:     line.detail.Product.IsCancelable,
			CancelableTill:   line.detail.Product.CancelableTill,
			IsReturnable:     line.detail.Product.IsReturnable,
			ReturnWindowDays: line.detail.Product.ReturnWindowDays,
			RequiresOTP:      line.detail.Product.RequiresOTP,
		})
		if err := s.stock.ReserveStock(ctx, tx, line.detail.Listing.ID, line.item.Quantity); err != nil {
			return err
		}
	}

	for i := range sellerOrders {
		rate := rates[sellerOrders[i].SellerID]
		sellerOrders[i].CommissionAmount = rate.Mul(sellerOrders[i].Subtotal).Round(2)
	}
	if err := txRepo.CreateSellerOrders(ctx, sellerOrders); err != nil {
		return err
	}
	return txRepo.CreateItems(ctx, items)
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return orders, nil
}

func (s *service) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SellerOrder, error) {
	sellerOrders, err := s.repo.ListSellerOrders(ctx, sellerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing seller orders")
	}
	return sellerOrders, nil
}
