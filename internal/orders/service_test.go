package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/internal/cart"
	"github.com/nearbasket/nearbasket-backend/internal/catalog"
	"github.com/nearbasket/nearbasket-backend/internal/geo"
	"github.com/nearbasket/nearbasket-backend/internal/ledger"
	"github.com/nearbasket/nearbasket-backend/internal/wallet"
	"github.com/nearbasket/nearbasket-backend/pkg/config"
	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
	"github.com/nearbasket/nearbasket-backend/pkg/logger"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox"
	"github.com/nearbasket/nearbasket-backend/pkg/payment"
)

type fakeRepository struct {
	number       int64
	orders       []*models.Order
	sellerOrders []*models.SellerOrder
	items        []*models.OrderItem
	assignments  []*models.CourierAssignment
	cash         []models.CashCollection
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) NextOrderNumber(ctx context.Context) (int64, error) {
	f.number++
	return 1000 + f.number, nil
}

func (f *fakeRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	clone := *order
	clone.SellerOrders, clone.Items, clone.Assignments = nil, nil, nil
	f.orders = append(f.orders, &clone)
	return nil
}

func (f *fakeRepository) CreateSellerOrders(ctx context.Context, sellerOrders []models.SellerOrder) error {
	for i := range sellerOrders {
		clone := sellerOrders[i]
		clone.Items = nil
		f.sellerOrders = append(f.sellerOrders, &clone)
	}
	return nil
}

func (f *fakeRepository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	for i := range items {
		clone := items[i]
		f.items = append(f.items, &clone)
	}
	return nil
}

func (f *fakeRepository) findOrder(id uuid.UUID) *models.Order {
	for _, o := range f.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	stored := f.findOrder(id)
	if stored == nil {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *stored
	for _, so := range f.sellerOrders {
		if so.OrderID == id {
			clone.SellerOrders = append(clone.SellerOrders, *so)
		}
	}
	for _, item := range f.items {
		if item.OrderID == id {
			clone.Items = append(clone.Items, *item)
		}
	}
	for _, a := range f.assignments {
		if a.OrderID != nil && *a.OrderID == id {
			clone.Assignments = append(clone.Assignments, *a)
		}
	}
	return &clone, nil
}

func (f *fakeRepository) FindByNumber(ctx context.Context, number int64) (*models.Order, error) {
	for _, o := range f.orders {
		if o.OrderNumber == number {
			return f.FindByID(ctx, o.ID)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListCashbackCandidates(ctx context.Context, deliveredBefore time.Time, limit int) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.Status != enums.OrderStatusCompleted || o.Promo == nil || o.DeliveredAt == nil {
			continue
		}
		if o.DeliveredAt.After(deliveredBefore) {
			continue
		}
		out = append(out, *o)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	for _, item := range f.items {
		if item.ID == itemID {
			clone := *item
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindSellerOrder(ctx context.Context, sellerOrderID uuid.UUID) (*models.SellerOrder, error) {
	for _, so := range f.sellerOrders {
		if so.ID == sellerOrderID {
			clone := *so
			for _, item := range f.items {
				if item.SellerOrderID == sellerOrderID {
					clone.Items = append(clone.Items, *item)
				}
			}
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SellerOrder, error) {
	var out []models.SellerOrder
	for _, so := range f.sellerOrders {
		if so.SellerID == sellerID {
			out = append(out, *so)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, item := range f.items {
		if item.OrderID == orderID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListItemsBySellerOrder(ctx context.Context, sellerOrderID uuid.UUID) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, item := range f.items {
		if item.SellerOrderID == sellerOrderID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeRepository) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, from, to enums.OrderItemStatus) (bool, error) {
	for _, item := range f.items {
		if item.ID != itemID {
			continue
		}
		if item.Status != from || item.Status == enums.OrderItemStatusRejected {
			return false, nil
		}
		item.Status = to
		return true, nil
	}
	return false, nil
}

func (f *fakeRepository) SaveItem(ctx context.Context, item *models.OrderItem) error {
	for i, stored := range f.items {
		if stored.ID == item.ID {
			clone := *item
			f.items[i] = &clone
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) SaveOrder(ctx context.Context, order *models.Order) error {
	stored := f.findOrder(order.ID)
	if stored == nil {
		return gorm.ErrRecordNotFound
	}
	clone := *order
	clone.SellerOrders, clone.Items, clone.Assignments = nil, nil, nil
	*stored = clone
	return nil
}

func (f *fakeRepository) SaveSellerOrder(ctx context.Context, sellerOrder *models.SellerOrder) error {
	for i, stored := range f.sellerOrders {
		if stored.ID == sellerOrder.ID {
			clone := *sellerOrder
			clone.Items = nil
			f.sellerOrders[i] = &clone
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	stored := f.findOrder(id)
	if stored == nil {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *stored
	return &clone, nil
}

func (f *fakeRepository) CreateAssignment(ctx context.Context, assignment *models.CourierAssignment) error {
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	clone := *assignment
	f.assignments = append(f.assignments, &clone)
	return nil
}

func (f *fakeRepository) FindAssignment(ctx context.Context, orderID, courierID uuid.UUID) (*models.CourierAssignment, error) {
	for _, a := range f.assignments {
		if a.OrderID != nil && *a.OrderID == orderID && a.CourierID == courierID {
			clone := *a
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) SaveAssignment(ctx context.Context, assignment *models.CourierAssignment) error {
	for i, stored := range f.assignments {
		if stored.ID == assignment.ID {
			clone := *assignment
			f.assignments[i] = &clone
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateCashCollection(ctx context.Context, collection *models.CashCollection) error {
	f.cash = append(f.cash, *collection)
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) has(eventType enums.OutboxEventType) bool {
	for _, e := range f.events {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}

type fakeCarts struct {
	result    *cart.ReconcileResult
	converted []uuid.UUID
}

func (f *fakeCarts) Reconcile(ctx context.Context, userID uuid.UUID) (*cart.ReconcileResult, error) {
	if f.result == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "active cart not found")
	}
	return f.result, nil
}

func (f *fakeCarts) Convert(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	f.converted = append(f.converted, cartID)
	return nil
}

type fakeZones struct {
	zone         *models.DeliveryZone
	tariffs      geo.TariffSheet
	minutes      int
	lastEstimate geo.EstimateInput
}

func (f *fakeZones) Locate(ctx context.Context, lat, lng float64) (*models.DeliveryZone, error) {
	return f.zone, nil
}

func (f *fakeZones) GetZone(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
	if f.zone == nil || f.zone.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "zone not found")
	}
	return f.zone, nil
}

func (f *fakeZones) TariffsAt(ctx context.Context, lat, lng float64) (*geo.TariffSheet, error) {
	sheet := f.tariffs
	return &sheet, nil
}

func (f *fakeZones) EstimateDeliveryTime(ctx context.Context, input geo.EstimateInput) (*geo.DeliveryEstimate, error) {
	f.lastEstimate = input
	return &geo.DeliveryEstimate{Minutes: f.minutes}, nil
}

type fakeStock struct {
	details map[uuid.UUID]*catalog.StoreVariantDetail
	levels  map[uuid.UUID]int
}

func (f *fakeStock) GetListingDetail(ctx context.Context, listingID uuid.UUID) (*catalog.StoreVariantDetail, error) {
	detail, ok := f.details[listingID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return detail, nil
}

func (f *fakeStock) ReserveStock(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error {
	if f.levels[listingID] < qty {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")
	}
	f.levels[listingID] -= qty
	return nil
}

func (f *fakeStock) ReleaseStock(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error {
	f.levels[listingID] += qty
	return nil
}

type fakePromos struct {
	promo    *models.Promo
	discount decimal.Decimal
	redeemed int
}

func (f *fakePromos) Validate(ctx context.Context, code string, userID uuid.UUID, orderTotal decimal.Decimal) (*models.Promo, error) {
	if f.promo == nil || f.promo.Code != code {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid promo code")
	}
	return f.promo, nil
}

func (f *fakePromos) Discount(promo *models.Promo, cartTotal, deliveryCharge decimal.Decimal) decimal.Decimal {
	return f.discount
}

func (f *fakePromos) Redeem(ctx context.Context, tx *gorm.DB, promo *models.Promo, userID, orderID uuid.UUID, amount decimal.Decimal) error {
	f.redeemed++
	return nil
}

type walletEntry struct {
	entryType enums.StatementEntryType
	input     wallet.EntryInput
}

type fakeWallet struct {
	balances map[uuid.UUID]decimal.Decimal
	entries  []walletEntry
}

func (f *fakeWallet) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return f.balances[userID], nil
}

func (f *fakeWallet) Credit(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error) {
	f.balances[input.UserID] = f.balances[input.UserID].Add(input.Amount)
	f.entries = append(f.entries, walletEntry{enums.StatementEntryTypeCredit, input})
	return &models.WalletTransaction{}, nil
}

func (f *fakeWallet) Debit(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error) {
	balance := f.balances[input.UserID]
	if balance.LessThan(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient wallet balance")
	}
	f.balances[input.UserID] = balance.Sub(input.Amount)
	f.entries = append(f.entries, walletEntry{enums.StatementEntryTypeDebit, input})
	return &models.WalletTransaction{}, nil
}

type fakeStatements struct {
	posts []ledger.PostStatementInput
	seen  map[string]bool
}

func (f *fakeStatements) Post(ctx context.Context, tx *gorm.DB, input ledger.PostStatementInput) (*models.SellerStatement, error) {
	key := fmt.Sprintf("%s|%s|%s|%s", input.SellerID, input.SourceID, input.EntryType, input.Reason)
	if f.seen[key] {
		return nil, nil
	}
	f.seen[key] = true
	f.posts = append(f.posts, input)
	return &models.SellerStatement{}, nil
}

type fakeStores struct {
	stores  map[uuid.UUID]models.Store
	sellers map[uuid.UUID]models.Seller
}

func (f *fakeStores) GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	store, ok := f.stores[storeID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return &store, nil
}

func (f *fakeStores) GetSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	seller, ok := f.sellers[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	return &seller, nil
}

type fakeSettings struct {
	values map[string]string
}

func (f *fakeSettings) GetString(ctx context.Context, key, fallback string) string {
	if v, ok := f.values[key]; ok {
		return v
	}
	return fallback
}

func (f *fakeSettings) GetInt(ctx context.Context, key string, fallback int) int {
	if v, ok := f.values[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func (f *fakeSettings) GetDecimal(ctx context.Context, key string, fallback decimal.Decimal) decimal.Decimal {
	if v, ok := f.values[key]; ok {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return fallback
}

func (f *fakeSettings) GetBool(ctx context.Context, key string, fallback bool) bool {
	if v, ok := f.values[key]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

type ordersEnv struct {
	svc        Service
	repo       *fakeRepository
	carts      *fakeCarts
	zones      *fakeZones
	stock      *fakeStock
	stores     *fakeStores
	walletSvc  *fakeWallet
	statements *fakeStatements
	promosSvc  *fakePromos
	out        *fakeOutbox
	settings   *fakeSettings
	payments   *payment.FakeProvider

	userID    uuid.UUID
	cartID    uuid.UUID
	sellerA   uuid.UUID
	sellerB   uuid.UUID
	listingA  uuid.UUID
	listingB  uuid.UUID
	courierID uuid.UUID
}

// newOrdersEnv seeds a two-store cart: 2x30 from seller A and 1x40
// from seller B, customer and stores at the same point so distance
// fees drop out of the arithmetic. Commission rate is 10%; seller A's
// product requires a delivery code.
func newOrdersEnv(t *testing.T, method enums.PaymentMethod) *ordersEnv {
	t.Helper()

	env := &ordersEnv{
		repo:       &fakeRepository{},
		carts:      &fakeCarts{},
		stock:      &fakeStock{details: map[uuid.UUID]*catalog.StoreVariantDetail{}, levels: map[uuid.UUID]int{}},
		stores:     &fakeStores{stores: map[uuid.UUID]models.Store{}, sellers: map[uuid.UUID]models.Seller{}},
		walletSvc:  &fakeWallet{balances: map[uuid.UUID]decimal.Decimal{}},
		statements: &fakeStatements{seen: map[string]bool{}},
		promosSvc:  &fakePromos{},
		out:        &fakeOutbox{},
		settings:   &fakeSettings{values: map[string]string{}},
		payments:   payment.NewFakeProvider(),
		userID:     uuid.New(),
		cartID:     uuid.New(),
		courierID:  uuid.New(),
	}

	zoneID := uuid.New()
	env.zones = &fakeZones{
		zone: &models.DeliveryZone{
			ID:                       zoneID,
			Status:                   enums.ZoneStatusActive,
			CODAllowed:               true,
			CourierBaseFee:           decimal.NewFromInt(20),
			CourierPerStorePickupFee: decimal.NewFromInt(5),
			CourierPerOrderIncentive: decimal.NewFromInt(10),
		},
		tariffs: geo.TariffSheet{
			Exists:             true,
			ZoneID:             &zoneID,
			HandlingFee:        decimal.NewFromInt(10),
			DropoffFeePerStore: decimal.NewFromInt(5),
		},
		minutes: 42,
	}

	env.sellerA, env.sellerB = uuid.New(), uuid.New()
	rate := decimal.NewFromFloat(0.10)
	env.stores.sellers[env.sellerA] = models.Seller{ID: env.sellerA, CommissionRate: rate}
	env.stores.sellers[env.sellerB] = models.Seller{ID: env.sellerB, CommissionRate: rate}

	storeA := models.Store{ID: uuid.New(), SellerID: env.sellerA, IsActive: true}
	storeB := models.Store{ID: uuid.New(), SellerID: env.sellerB, IsActive: true}
	env.stores.stores[storeA.ID] = storeA
	env.stores.stores[storeB.ID] = storeB

	detailA := &catalog.StoreVariantDetail{
		Listing: models.StoreProductVariant{ID: uuid.New(), Price: decimal.NewFromInt(30), IsActive: true},
		Product: models.Product{ID: uuid.New(), Name: "basmati rice 1kg", IsActive: true, IsCancelable: true, CancelableTill: enums.OrderItemStatusPreparing, RequiresOTP: true},
		Store:   storeA,
	}
	detailB := &catalog.StoreVariantDetail{
		Listing: models.StoreProductVariant{ID: uuid.New(), Price: decimal.NewFromInt(40), IsActive: true},
		Product: models.Product{ID: uuid.New(), Name: "cold brew bottle", IsActive: true, IsCancelable: true, CancelableTill: enums.OrderItemStatusPreparing},
		Store:   storeB,
	}
	env.listingA, env.listingB = detailA.Listing.ID, detailB.Listing.ID
	env.stock.details[env.listingA] = detailA
	env.stock.details[env.listingB] = detailB
	env.stock.levels[env.listingA] = 10
	env.stock.levels[env.listingB] = 10

	lat, lng := 12.90, 77.60
	env.carts.result = &cart.ReconcileResult{
		Cart: &models.CartRecord{
			ID:            env.cartID,
			UserID:        env.userID,
			Status:        enums.CartStatusActive,
			DeliveryLat:   &lat,
			DeliveryLng:   &lng,
			PaymentMethod: &method,
			Items: []models.CartItem{
				{
					ID:                    uuid.New(),
					CartID:                env.cartID,
					StoreProductVariantID: env.listingA,
					StoreID:               storeA.ID,
					Quantity:              2,
					UnitPrice:             decimal.NewFromInt(30),
					LineSubtotal:          decimal.NewFromInt(60),
					Status:                enums.CartItemStatusOK,
				},
				{
					ID:                    uuid.New(),
					CartID:                env.cartID,
					StoreProductVariantID: env.listingB,
					StoreID:               storeB.ID,
					Quantity:              1,
					UnitPrice:             decimal.NewFromInt(40),
					LineSubtotal:          decimal.NewFromInt(40),
					Status:                enums.CartItemStatusOK,
				},
			},
		},
		ItemsTotal: decimal.NewFromInt(100),
		Clean:      true,
	}

	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	svc, err := NewService(
		env.repo, fakeTx{}, env.out, env.carts, env.zones, env.stock, env.promosSvc,
		env.walletSvc, env.statements, env.stores, env.settings, env.payments,
		config.DeliveryConfig{DefaultPrepBufferMinutes: 10, OTPLength: 4},
		logg,
	)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	env.svc = svc

	// The stores routed past: delivery point on top of both stores.
	for id, store := range env.stores.stores {
		store.Latitude, store.Longitude = lat, lng
		env.stores.stores[id] = store
	}
	return env
}

func assertAppCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected app error, got %v", err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code(), err)
	}
}

func TestService_Checkout_COD(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	ctx := context.Background()

	order, err := env.svc.Checkout(ctx, env.userID)
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}

	if order.OrderNumber != 1001 {
		t.Fatalf("order number = %d", order.OrderNumber)
	}
	if order.Status != enums.OrderStatusPlaced || order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("unexpected order state: %s / %s", order.Status, order.PaymentStatus)
	}
	if !order.ItemsTotal.Equal(decimal.NewFromInt(100)) ||
		!order.DropoffFee.Equal(decimal.NewFromInt(10)) ||
		!order.FinalTotal.Equal(decimal.NewFromInt(120)) ||
		!order.PayableTotal.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("unexpected totals: %+v", order)
	}
	if order.EstimatedDeliveryMinutes != 42 {
		t.Fatalf("estimate = %d", order.EstimatedDeliveryMinutes)
	}
	if order.DeliveryOTP == nil || len(*order.DeliveryOTP) != 4 {
		t.Fatalf("otp not generated: %v", order.DeliveryOTP)
	}

	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	for _, item := range order.Items {
		if item.Status != enums.OrderItemStatusAwaitingStoreResponse {
			t.Fatalf("cod item should await the store, got %s", item.Status)
		}
	}
	if len(order.SellerOrders) != 2 {
		t.Fatalf("expected 2 seller orders, got %d", len(order.SellerOrders))
	}
	for _, so := range order.SellerOrders {
		switch so.SellerID {
		case env.sellerA:
			if !so.Subtotal.Equal(decimal.NewFromInt(60)) || !so.CommissionAmount.Equal(decimal.NewFromInt(6)) {
				t.Fatalf("seller A totals: %s / %s", so.Subtotal, so.CommissionAmount)
			}
		case env.sellerB:
			if !so.Subtotal.Equal(decimal.NewFromInt(40)) || !so.CommissionAmount.Equal(decimal.NewFromInt(4)) {
				t.Fatalf("seller B totals: %s / %s", so.Subtotal, so.CommissionAmount)
			}
		default:
			t.Fatalf("unexpected seller order %+v", so)
		}
	}

	if env.stock.levels[env.listingA] != 8 || env.stock.levels[env.listingB] != 9 {
		t.Fatalf("stock not reserved: %+v", env.stock.levels)
	}
	if len(env.carts.converted) != 1 || env.carts.converted[0] != env.cartID {
		t.Fatalf("cart not converted: %+v", env.carts.converted)
	}
	if !env.out.has(enums.EventOrderPlaced) {
		t.Fatal("order_placed not emitted")
	}
}

func TestService_Checkout_DirtyCart(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	env.carts.result.Clean = false

	_, err := env.svc.Checkout(context.Background(), env.userID)
	assertAppCode(t, err, pkgerrors.CodeStateConflict)
	if len(env.repo.orders) != 0 {
		t.Fatal("no order should be created")
	}
}

func TestService_Checkout_SingleStoreMode(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	env.settings.values["checkout_mode"] = "single_store"

	_, err := env.svc.Checkout(context.Background(), env.userID)
	assertAppCode(t, err, pkgerrors.CodeValidation)
}

func TestService_Checkout_Wallet(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodWallet)
	env.walletSvc.balances[env.userID] = decimal.NewFromInt(500)

	order, err := env.svc.Checkout(context.Background(), env.userID)
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatalf("wallet order should be paid, got %s", order.PaymentStatus)
	}
	if !order.WalletApplied.Equal(decimal.NewFromInt(120)) || !order.PayableTotal.IsZero() {
		t.Fatalf("wallet math: applied %s payable %s", order.WalletApplied, order.PayableTotal)
	}
	if !env.walletSvc.balances[env.userID].Equal(decimal.NewFromInt(380)) {
		t.Fatalf("balance = %s", env.walletSvc.balances[env.userID])
	}
	if len(env.walletSvc.entries) != 1 || env.walletSvc.entries[0].input.Reference != walletRefOrderPayment {
		t.Fatalf("debit not recorded: %+v", env.walletSvc.entries)
	}
}

func TestService_Checkout_WalletInsufficient(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodWallet)
	env.walletSvc.balances[env.userID] = decimal.NewFromInt(50)

	_, err := env.svc.Checkout(context.Background(), env.userID)
	assertAppCode(t, err, pkgerrors.CodeStateConflict)
	if len(env.repo.orders) != 0 {
		t.Fatal("no order should be created")
	}
}

func TestService_Checkout_CouponPromo(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	code := "SAVE10"
	env.carts.result.Cart.PromoCode = &code
	env.promosSvc.promo = &models.Promo{ID: uuid.New(), Code: code, Kind: enums.PromoKindCoupon}
	env.promosSvc.discount = decimal.NewFromInt(10)

	order := placedOrder(t, env)
	if !order.PromoDiscount.Equal(decimal.NewFromInt(10)) || !order.PayableTotal.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("coupon math: discount %s payable %s", order.PromoDiscount, order.PayableTotal)
	}
	if order.Promo == nil || order.Promo.Cashback {
		t.Fatalf("promo snapshot: %+v", order.Promo)
	}
	if env.promosSvc.redeemed != 1 {
		t.Fatalf("redeemed = %d", env.promosSvc.redeemed)
	}
}

func TestService_Checkout_CashbackPromo(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	code := "CB10"
	env.carts.result.Cart.PromoCode = &code
	env.promosSvc.promo = &models.Promo{ID: uuid.New(), Code: code, Kind: enums.PromoKindCashback}
	env.promosSvc.discount = decimal.NewFromInt(10)

	order := placedOrder(t, env)
	// The buyer pays in full; the 10 is owed to the wallet after delivery.
	if !order.PayableTotal.Equal(decimal.NewFromInt(120)) || !order.PromoDiscount.IsZero() {
		t.Fatalf("cashback math: discount %s payable %s", order.PromoDiscount, order.PayableTotal)
	}
	if order.Promo == nil || !order.Promo.Cashback || order.Promo.Awarded {
		t.Fatalf("promo snapshot: %+v", order.Promo)
	}
	if !order.Promo.Discount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("pending cashback = %s", order.Promo.Discount)
	}
	if env.promosSvc.redeemed != 1 {
		t.Fatalf("redeemed = %d", env.promosSvc.redeemed)
	}
}

func TestService_Checkout_PrepTimeFollowsSlowestStore(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	for id, store := range env.stores.stores {
		if store.SellerID == env.sellerA {
			store.BasePrepTimeMinutes = 25
		} else {
			store.BasePrepTimeMinutes = 15
		}
		env.stores.stores[id] = store
	}

	placedOrder(t, env)
	if env.zones.lastEstimate.BasePrepMinutes != 25 {
		t.Fatalf("prep minutes = %d", env.zones.lastEstimate.BasePrepMinutes)
	}
}

func TestService_Checkout_PrepTimeFallsBackToConfig(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)

	placedOrder(t, env)
	if env.zones.lastEstimate.BasePrepMinutes != 10 {
		t.Fatalf("prep minutes = %d", env.zones.lastEstimate.BasePrepMinutes)
	}
}

func TestService_Checkout_SellerOrderSpansStores(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	// Move seller B's store under seller A: two stores, one seller.
	detailB := env.stock.details[env.listingB]
	detailB.Store.SellerID = env.sellerA
	store := env.stores.stores[detailB.Store.ID]
	store.SellerID = env.sellerA
	env.stores.stores[store.ID] = store

	order := placedOrder(t, env)
	if len(order.SellerOrders) != 1 {
		t.Fatalf("expected one seller order, got %d", len(order.SellerOrders))
	}
	so := order.SellerOrders[0]
	if so.SellerID != env.sellerA || !so.Subtotal.Equal(decimal.NewFromInt(100)) || !so.CommissionAmount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("seller order: %+v", so)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	for _, item := range order.Items {
		if item.SellerOrderID != so.ID {
			t.Fatalf("item not attached to the seller order: %+v", item)
		}
	}
}

func placedOrder(t *testing.T, env *ordersEnv) *models.Order {
	t.Helper()
	order, err := env.svc.Checkout(context.Background(), env.userID)
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	return order
}

func itemForSeller(t *testing.T, order *models.Order, sellerID uuid.UUID) models.OrderItem {
	t.Helper()
	for _, item := range order.Items {
		if item.SellerID == sellerID {
			return item
		}
	}
	t.Fatalf("no item for seller %s", sellerID)
	return models.OrderItem{}
}

func TestService_SellerAction_Gates(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	order := placedOrder(t, env)
	ctx := context.Background()
	item := itemForSeller(t, order, env.sellerA)

	// Wrong seller cannot act.
	err := env.svc.SellerAction(ctx, SellerActionInput{SellerID: env.sellerB, ItemID: item.ID, Action: SellerItemActionAccept})
	assertAppCode(t, err, pkgerrors.CodeForbidden)

	// Preparing requires acceptance first.
	err = env.svc.SellerAction(ctx, SellerActionInput{SellerID: env.sellerA, ItemID: item.ID, Action: SellerItemActionPreparing})
	assertAppCode(t, err, pkgerrors.CodeStateConflict)

	if err := env.svc.SellerAction(ctx, SellerActionInput{SellerID: env.sellerA, ItemID: item.ID, Action: SellerItemActionAccept}); err != nil {
		t.Fatalf("accept error: %v", err)
	}
	if err := env.svc.SellerAction(ctx, SellerActionInput{SellerID: env.sellerA, ItemID: item.ID, Action: SellerItemActionPreparing}); err != nil {
		t.Fatalf("preparing error: %v", err)
	}

	// Rejection is closed once the item was accepted.
	err = env.svc.SellerAction(ctx, SellerActionInput{SellerID: env.sellerA, ItemID: item.ID, Action: SellerItemActionReject})
	assertAppCode(t, err, pkgerrors.CodeStateConflict)

	reloaded, err := env.svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	if reloaded.Status != enums.OrderStatusPartiallyAccepted {
		t.Fatalf("order should be partially accepted, got %s", reloaded.Status)
	}
}

func TestService_SellerReject_RecalculatesOrder(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	order := placedOrder(t, env)
	ctx := context.Background()
	item := itemForSeller(t, order, env.sellerB)

	if err := env.svc.SellerAction(ctx, SellerActionInput{SellerID: env.sellerB, ItemID: item.ID, Action: SellerItemActionReject}); err != nil {
		t.Fatalf("reject error: %v", err)
	}

	if env.stock.levels[env.listingB] != 10 {
		t.Fatalf("stock not released: %d", env.stock.levels[env.listingB])
	}
	reloaded, err := env.svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	// 60 + 10 handling + 10 drop-off.
	if !reloaded.ItemsTotal.Equal(decimal.NewFromInt(60)) || !reloaded.FinalTotal.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("totals after reject: items %s final %s", reloaded.ItemsTotal, reloaded.FinalTotal)
	}
	for _, so := range reloaded.SellerOrders {
		if so.SellerID == env.sellerB && so.Status != enums.SellerOrderStatusRejectedBySeller {
			t.Fatalf("seller B slice should be rejected, got %s", so.Status)
		}
	}
	// COD order: nothing was captured, so nothing is refunded.
	if len(env.walletSvc.entries) != 0 {
		t.Fatalf("unexpected wallet entries: %+v", env.walletSvc.entries)
	}
}

func prepareSellerItems(t *testing.T, env *ordersEnv, order *models.Order, sellerID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	item := itemForSeller(t, order, sellerID)
	for _, action := range []SellerItemAction{SellerItemActionAccept, SellerItemActionPreparing} {
		if err := env.svc.SellerAction(ctx, SellerActionInput{SellerID: sellerID, ItemID: item.ID, Action: action}); err != nil {
			t.Fatalf("%s error: %v", action, err)
		}
	}
}

func TestService_CollectAndDeliver(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	order := placedOrder(t, env)
	ctx := context.Background()

	prepareSellerItems(t, env, order, env.sellerA)
	prepareSellerItems(t, env, order, env.sellerB)

	reloaded, _ := env.svc.GetOrder(ctx, order.ID)
	for _, so := range reloaded.SellerOrders {
		if err := env.svc.Collect(ctx, env.courierID, so.ID); err != nil {
			t.Fatalf("Collect error: %v", err)
		}
	}

	if len(env.repo.assignments) != 1 {
		t.Fatalf("expected one assignment, got %d", len(env.repo.assignments))
	}
	assignment := env.repo.assignments[0]
	// 20 base + 2x5 pickups + 10 incentive, no distance.
	if !assignment.Earnings.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("earnings = %s", assignment.Earnings)
	}
	if assignment.Status != enums.AssignmentStatusActive {
		t.Fatalf("assignment status = %s", assignment.Status)
	}

	// Wrong OTP first.
	err := env.svc.Deliver(ctx, env.courierID, order.ID, "0000x")
	assertAppCode(t, err, pkgerrors.CodeValidation)

	reloaded, _ = env.svc.GetOrder(ctx, order.ID)
	if err := env.svc.Deliver(ctx, env.courierID, order.ID, *reloaded.DeliveryOTP); err != nil {
		t.Fatalf("Deliver error: %v", err)
	}

	final, _ := env.svc.GetOrder(ctx, order.ID)
	if final.Status != enums.OrderStatusCompleted || final.Delivery != enums.DeliveryStatusDelivered {
		t.Fatalf("final state: %s / %s", final.Status, final.Delivery)
	}
	if final.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatalf("cod payment should complete on delivery, got %s", final.PaymentStatus)
	}
	if len(env.repo.cash) != 1 || !env.repo.cash[0].Amount.Equal(final.PayableTotal) {
		t.Fatalf("cash collection: %+v", env.repo.cash)
	}

	// One commission credit per item: 60-6 and 40-4.
	if len(env.statements.posts) != 2 {
		t.Fatalf("expected 2 credits, got %d", len(env.statements.posts))
	}
	total := decimal.Zero
	for _, post := range env.statements.posts {
		if post.EntryType != enums.StatementEntryTypeCredit || post.Reason != enums.StatementReasonOrderItemDelivery {
			t.Fatalf("unexpected statement: %+v", post)
		}
		total = total.Add(post.Amount)
	}
	if !total.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("credited total = %s", total)
	}

	if env.repo.assignments[0].Status != enums.AssignmentStatusCompleted {
		t.Fatalf("assignment should complete, got %s", env.repo.assignments[0].Status)
	}
	if !env.out.has(enums.EventOrderDelivered) || !env.out.has(enums.EventCashCollected) {
		t.Fatal("delivery events missing")
	}

	// Delivery is final.
	err = env.svc.Deliver(ctx, env.courierID, order.ID, *reloaded.DeliveryOTP)
	assertAppCode(t, err, pkgerrors.CodeStateConflict)
}

func TestService_Deliver_NoCodeWhenNotRequired(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	env.stock.details[env.listingA].Product.RequiresOTP = false
	ctx := context.Background()

	order := placedOrder(t, env)
	if order.DeliveryOTP != nil {
		t.Fatalf("no delivery code expected, got %q", *order.DeliveryOTP)
	}

	prepareSellerItems(t, env, order, env.sellerA)
	prepareSellerItems(t, env, order, env.sellerB)
	reloaded, _ := env.svc.GetOrder(ctx, order.ID)
	for _, so := range reloaded.SellerOrders {
		if err := env.svc.Collect(ctx, env.courierID, so.ID); err != nil {
			t.Fatalf("Collect error: %v", err)
		}
	}

	if err := env.svc.Deliver(ctx, env.courierID, order.ID, ""); err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	final, _ := env.svc.GetOrder(ctx, order.ID)
	if final.Status != enums.OrderStatusCompleted || final.Delivery != enums.DeliveryStatusDelivered {
		t.Fatalf("final state: %s / %s", final.Status, final.Delivery)
	}
}

func TestService_CancelItem(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodWallet)
	env.walletSvc.balances[env.userID] = decimal.NewFromInt(500)
	order := placedOrder(t, env)
	ctx := context.Background()
	item := itemForSeller(t, order, env.sellerB)

	// Another user cannot cancel.
	err := env.svc.CancelItem(ctx, uuid.New(), item.ID)
	assertAppCode(t, err, pkgerrors.CodeForbidden)

	if err := env.svc.CancelItem(ctx, env.userID, item.ID); err != nil {
		t.Fatalf("CancelItem error: %v", err)
	}

	if env.stock.levels[env.listingB] != 10 {
		t.Fatalf("stock not released: %d", env.stock.levels[env.listingB])
	}
	// 380 after checkout, +40 refund for the cancelled line.
	if !env.walletSvc.balances[env.userID].Equal(decimal.NewFromInt(420)) {
		t.Fatalf("balance after refund = %s", env.walletSvc.balances[env.userID])
	}
	reloaded, _ := env.svc.GetOrder(ctx, order.ID)
	if !reloaded.ItemsTotal.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("items total = %s", reloaded.ItemsTotal)
	}
	if !env.out.has(enums.EventOrderItemCancelled) || !env.out.has(enums.EventRefundIssued) {
		t.Fatal("cancel events missing")
	}
}

func TestService_CancelItem_WindowClosed(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	order := placedOrder(t, env)
	ctx := context.Background()
	item := itemForSeller(t, order, env.sellerA)

	prepareSellerItems(t, env, order, env.sellerA)
	reloaded, _ := env.svc.GetOrder(ctx, order.ID)
	for _, so := range reloaded.SellerOrders {
		if so.SellerID == env.sellerA {
			if err := env.svc.Collect(ctx, env.courierID, so.ID); err != nil {
				t.Fatalf("Collect error: %v", err)
			}
		}
	}

	// Cancelable till preparing; the item is now collected.
	err := env.svc.CancelItem(ctx, env.userID, item.ID)
	assertAppCode(t, err, pkgerrors.CodeStateConflict)
}

func TestService_OnlinePaymentLifecycle(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodOnline)
	order := placedOrder(t, env)
	ctx := context.Background()

	if order.PaymentRef == nil {
		t.Fatal("online checkout should register an intent")
	}
	for _, item := range order.Items {
		if item.Status != enums.OrderItemStatusPending {
			t.Fatalf("online item should start pending, got %s", item.Status)
		}
	}

	// Sellers cannot act before capture.
	item := itemForSeller(t, order, env.sellerA)
	err := env.svc.SellerAction(ctx, SellerActionInput{SellerID: env.sellerA, ItemID: item.ID, Action: SellerItemActionAccept})
	assertAppCode(t, err, pkgerrors.CodeStateConflict)

	if err := env.svc.MarkPaymentCaptured(ctx, order.ID, *order.PaymentRef); err != nil {
		t.Fatalf("MarkPaymentCaptured error: %v", err)
	}
	reloaded, _ := env.svc.GetOrder(ctx, order.ID)
	if reloaded.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatalf("payment status = %s", reloaded.PaymentStatus)
	}
	for _, item := range reloaded.Items {
		if item.Status != enums.OrderItemStatusAwaitingStoreResponse {
			t.Fatalf("captured item should await the store, got %s", item.Status)
		}
	}
	if !env.out.has(enums.EventPaymentCaptured) {
		t.Fatal("payment_captured not emitted")
	}

	// Second capture is a no-op.
	if err := env.svc.MarkPaymentCaptured(ctx, order.ID, *order.PaymentRef); err != nil {
		t.Fatalf("repeat capture error: %v", err)
	}
}

func TestService_MarkPaymentFailed(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodOnline)
	order := placedOrder(t, env)
	ctx := context.Background()

	if err := env.svc.MarkPaymentFailed(ctx, order.ID, "declined"); err != nil {
		t.Fatalf("MarkPaymentFailed error: %v", err)
	}
	reloaded, _ := env.svc.GetOrder(ctx, order.ID)
	if reloaded.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("payment status = %s", reloaded.PaymentStatus)
	}
	for _, item := range reloaded.Items {
		if item.Status != enums.OrderItemStatusFailed {
			t.Fatalf("item should fail with the payment, got %s", item.Status)
		}
	}
	if env.stock.levels[env.listingA] != 10 || env.stock.levels[env.listingB] != 10 {
		t.Fatalf("stock not released: %+v", env.stock.levels)
	}
	if reloaded.Status != enums.OrderStatusCancelled {
		t.Fatalf("order should cancel when every item failed, got %s", reloaded.Status)
	}
}

func TestService_CourierRoute(t *testing.T) {
	env := newOrdersEnv(t, enums.PaymentMethodCOD)
	order := placedOrder(t, env)

	route, err := env.svc.CourierRoute(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("CourierRoute error: %v", err)
	}
	if len(route.Plan.Stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(route.Plan.Stops))
	}
	if !route.Earnings.Total.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("earnings total = %s", route.Earnings.Total)
	}
}
