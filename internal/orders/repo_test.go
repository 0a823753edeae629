package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:ordersrepo%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL,
  user_id TEXT NOT NULL,
  zone_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'placed',
  delivery_status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  payment_ref TEXT,
  delivery_address TEXT,
  delivery_lat REAL NOT NULL,
  delivery_lng REAL NOT NULL,
  distance_km REAL NOT NULL DEFAULT 0,
  rush_delivery INTEGER NOT NULL DEFAULT 0,
  rush_downgraded INTEGER NOT NULL DEFAULT 0,
  free_delivery INTEGER NOT NULL DEFAULT 0,
  items_total NUMERIC NOT NULL DEFAULT 0,
  handling_fee NUMERIC NOT NULL DEFAULT 0,
  delivery_charge NUMERIC NOT NULL DEFAULT 0,
  dropoff_fee NUMERIC NOT NULL DEFAULT 0,
  promo_discount NUMERIC NOT NULL DEFAULT 0,
  gift_card_discount NUMERIC NOT NULL DEFAULT 0,
  wallet_applied NUMERIC NOT NULL DEFAULT 0,
  final_total NUMERIC NOT NULL DEFAULT 0,
  payable_total NUMERIC NOT NULL DEFAULT 0,
  promo TEXT,
  estimated_delivery_minutes INTEGER NOT NULL DEFAULT 0,
  delivery_otp TEXT,
  otp_verified INTEGER NOT NULL DEFAULT 0,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
		`CREATE TABLE seller_orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'awaiting_store_response',
  subtotal NUMERIC NOT NULL DEFAULT 0,
  commission_amount NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
		`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  seller_order_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  store_product_variant_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  subtotal NUMERIC NOT NULL,
  promo_share NUMERIC NOT NULL DEFAULT 0,
  admin_commission NUMERIC NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  is_cancelable INTEGER NOT NULL DEFAULT 1,
  cancelable_till TEXT NOT NULL DEFAULT 'preparing',
  is_returnable INTEGER NOT NULL DEFAULT 0,
  return_window_days INTEGER NOT NULL DEFAULT 0,
  requires_otp INTEGER NOT NULL DEFAULT 0,
  refunded INTEGER NOT NULL DEFAULT 0,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
		`CREATE TABLE courier_assignments (
  id TEXT PRIMARY KEY,
  courier_id TEXT NOT NULL,
  order_id TEXT,
  return_id TEXT,
  type TEXT NOT NULL DEFAULT 'delivery',
  status TEXT NOT NULL DEFAULT 'assigned',
  distance_km REAL NOT NULL DEFAULT 0,
  base_fee NUMERIC NOT NULL DEFAULT 0,
  pickup_fees NUMERIC NOT NULL DEFAULT 0,
  distance_fee NUMERIC NOT NULL DEFAULT 0,
  incentive NUMERIC NOT NULL DEFAULT 0,
  earnings NUMERIC NOT NULL DEFAULT 0,
  assigned_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
		`CREATE TABLE cash_collections (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  courier_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  collected_at DATETIME NOT NULL,
  created_at DATETIME
)`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedOrder(t *testing.T, repo Repository, number int64) *models.Order {
	t.Helper()
	ctx := context.Background()

	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		UserID:        uuid.New(),
		ZoneID:        uuid.New(),
		Status:        enums.OrderStatusPlaced,
		Delivery:      enums.DeliveryStatusPending,
		PaymentMethod: enums.PaymentMethodCOD,
		PaymentStatus: enums.PaymentStatusPending,
		DeliveryLat:   12.90,
		DeliveryLng:   77.60,
		ItemsTotal:    decimal.NewFromInt(100),
		FinalTotal:    decimal.NewFromInt(120),
		PayableTotal:  decimal.NewFromInt(120),
	}
	require.NoError(t, repo.CreateOrder(ctx, order))

	storeID := uuid.New()
	sellerOrder := models.SellerOrder{
		ID:       uuid.New(),
		OrderID:  order.ID,
		SellerID: uuid.New(),
		Status:   enums.SellerOrderStatusAwaitingStoreResponse,
		Subtotal: decimal.NewFromInt(100),
	}
	require.NoError(t, repo.CreateSellerOrders(ctx, []models.SellerOrder{sellerOrder}))

	items := []models.OrderItem{
		{
			ID:                    uuid.New(),
			OrderID:               order.ID,
			SellerOrderID:         sellerOrder.ID,
			SellerID:              sellerOrder.SellerID,
			StoreID:               storeID,
			ProductID:             uuid.New(),
			StoreProductVariantID: uuid.New(),
			ProductName:           "turmeric powder 200g",
			Quantity:              2,
			UnitPrice:             decimal.NewFromInt(30),
			Subtotal:              decimal.NewFromInt(60),
			Status:                enums.OrderItemStatusAwaitingStoreResponse,
			IsCancelable:          true,
			CancelableTill:        enums.OrderItemStatusPreparing,
		},
		{
			ID:                    uuid.New(),
			OrderID:               order.ID,
			SellerOrderID:         sellerOrder.ID,
			SellerID:              sellerOrder.SellerID,
			StoreID:               storeID,
			ProductID:             uuid.New(),
			StoreProductVariantID: uuid.New(),
			ProductName:           "jaggery block 500g",
			Quantity:              1,
			UnitPrice:             decimal.NewFromInt(40),
			Subtotal:              decimal.NewFromInt(40),
			Status:                enums.OrderItemStatusAwaitingStoreResponse,
			IsCancelable:          true,
			CancelableTill:        enums.OrderItemStatusPreparing,
		},
	}
	require.NoError(t, repo.CreateItems(ctx, items))
	return order
}

func TestRepositoryNextOrderNumber(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	next, err := repo.NextOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), next)

	seedOrder(t, repo, 2500)

	next, err = repo.NextOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2501), next)
}

func TestRepositoryFindByIDPreloads(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, 1001)
	courierID := uuid.New()
	orderID := order.ID
	require.NoError(t, repo.CreateAssignment(ctx, &models.CourierAssignment{
		ID:        uuid.New(),
		CourierID: courierID,
		OrderID:   &orderID,
		Type:      enums.AssignmentTypeDelivery,
		Status:    enums.AssignmentStatusActive,
		Earnings:  decimal.NewFromInt(40),
	}))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, found.OrderNumber)
	assert.Len(t, found.SellerOrders, 1)
	assert.Len(t, found.Items, 2)
	assert.Len(t, found.Assignments, 1)

	byNumber, err := repo.FindByNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)

	listed, err := repo.ListByUser(ctx, order.UserID, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Len(t, listed[0].Items, 2)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateItemStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, 1001)
	items, err := repo.ListItemsByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	itemID := items[0].ID

	ok, err := repo.UpdateItemStatus(ctx, itemID, enums.OrderItemStatusAwaitingStoreResponse, enums.OrderItemStatusAccepted)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second writer racing on the old status loses.
	ok, err = repo.UpdateItemStatus(ctx, itemID, enums.OrderItemStatusAwaitingStoreResponse, enums.OrderItemStatusRejected)
	require.NoError(t, err)
	assert.False(t, ok)

	item, err := repo.FindItem(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderItemStatusAccepted, item.Status)

	// Delivered rows pick up their timestamp in the same write.
	for _, to := range []enums.OrderItemStatus{
		enums.OrderItemStatusPreparing,
		enums.OrderItemStatusCollected,
		enums.OrderItemStatusDelivered,
	} {
		from := item.Status
		ok, err = repo.UpdateItemStatus(ctx, itemID, from, to)
		require.NoError(t, err)
		require.True(t, ok)
		item, err = repo.FindItem(ctx, itemID)
		require.NoError(t, err)
	}
	assert.NotNil(t, item.DeliveredAt)

	// Rejected rows are frozen even when the old status matches.
	rejectedID := items[1].ID
	ok, err = repo.UpdateItemStatus(ctx, rejectedID, enums.OrderItemStatusAwaitingStoreResponse, enums.OrderItemStatusRejected)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.UpdateItemStatus(ctx, rejectedID, enums.OrderItemStatusRejected, enums.OrderItemStatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryAssignments(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, 1001)
	courierID := uuid.New()
	orderID := order.ID

	_, err := repo.FindAssignment(ctx, order.ID, courierID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assignment := &models.CourierAssignment{
		ID:         uuid.New(),
		CourierID:  courierID,
		OrderID:    &orderID,
		Type:       enums.AssignmentTypeDelivery,
		Status:     enums.AssignmentStatusActive,
		BaseFee:    decimal.NewFromInt(20),
		PickupFees: decimal.NewFromInt(10),
		Incentive:  decimal.NewFromInt(10),
		Earnings:   decimal.NewFromInt(40),
	}
	require.NoError(t, repo.CreateAssignment(ctx, assignment))

	found, err := repo.FindAssignment(ctx, order.ID, courierID)
	require.NoError(t, err)
	assert.True(t, found.Earnings.Equal(decimal.NewFromInt(40)))

	now := time.Now()
	found.Status = enums.AssignmentStatusCompleted
	found.CompletedAt = &now
	require.NoError(t, repo.SaveAssignment(ctx, found))

	saved, err := repo.FindAssignment(ctx, order.ID, courierID)
	require.NoError(t, err)
	assert.Equal(t, enums.AssignmentStatusCompleted, saved.Status)
	assert.NotNil(t, saved.CompletedAt)
}

func TestRepositoryCashCollection(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, 1001)
	collection := &models.CashCollection{
		ID:          uuid.New(),
		OrderID:     order.ID,
		CourierID:   uuid.New(),
		Amount:      decimal.NewFromInt(120),
		CollectedAt: time.Now(),
	}
	require.NoError(t, repo.CreateCashCollection(ctx, collection))

	var count int64
	require.NoError(t, db.Model(&models.CashCollection{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
