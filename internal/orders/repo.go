package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// Repository defines persistence operations for the order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	NextOrderNumber(ctx context.Context) (int64, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateSellerOrders(ctx context.Context, sellerOrders []models.SellerOrder) error
	CreateItems(ctx context.Context, items []models.OrderItem) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListCashbackCandidates(ctx context.Context, deliveredBefore time.Time, limit int) ([]models.Order, error)
	FindByNumber(ctx context.Context, number int64) (*models.Order, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	FindSellerOrder(ctx context.Context, sellerOrderID uuid.UUID) (*models.SellerOrder, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SellerOrder, error)
	ListItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	ListItemsBySellerOrder(ctx context.Context, sellerOrderID uuid.UUID) ([]models.OrderItem, error)

	UpdateItemStatus(ctx context.Context, itemID uuid.UUID, from, to enums.OrderItemStatus) (bool, error)
	SaveItem(ctx context.Context, item *models.OrderItem) error
	SaveOrder(ctx context.Context, order *models.Order) error
	SaveSellerOrder(ctx context.Context, sellerOrder *models.SellerOrder) error
	LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)

	CreateAssignment(ctx context.Context, assignment *models.CourierAssignment) error
	FindAssignment(ctx context.Context, orderID, courierID uuid.UUID) (*models.CourierAssignment, error)
	SaveAssignment(ctx context.Context, assignment *models.CourierAssignment) error
	CreateCashCollection(ctx context.Context, collection *models.CashCollection) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

const firstOrderNumber = 1000

func (r *repository) NextOrderNumber(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).
		Raw("SELECT COALESCE(MAX(order_number), ?) + 1 FROM orders", firstOrderNumber).
		Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("SellerOrders", "Items", "Assignments").Create(order).Error
}

func (r *repository) CreateSellerOrders(ctx context.Context, sellerOrders []models.SellerOrder) error {
	if len(sellerOrders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Items").Create(&sellerOrders).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("SellerOrders").
		Preload("Items").
		Preload("Assignments").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListCashbackCandidates returns completed orders that carry a promo
// snapshot and were delivered before the cutoff. Whether the promo is
// a cashback one still owed to the wallet is decided by the caller.
func (r *repository) ListCashbackCandidates(ctx context.Context, deliveredBefore time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND promo IS NOT NULL AND delivered_at IS NOT NULL AND delivered_at <= ?",
			enums.OrderStatusCompleted, deliveredBefore).
		Order("delivered_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindByNumber(ctx context.Context, number int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("SellerOrders").
		Preload("Items").
		First(&order, "order_number = ?", number).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindSellerOrder(ctx context.Context, sellerOrderID uuid.UUID) (*models.SellerOrder, error) {
	var sellerOrder models.SellerOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&sellerOrder, "id = ?", sellerOrderID).Error
	if err != nil {
		return nil, err
	}
	return &sellerOrder, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	var orders []models.Order
	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SellerOrder, error) {
	var sellerOrders []models.SellerOrder
	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&sellerOrders).Error; err != nil {
		return nil, err
	}
	return sellerOrders, nil
}

func (r *repository) ListItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListItemsBySellerOrder(ctx context.Context, sellerOrderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).Where("seller_order_id = ?", sellerOrderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateItemStatus moves an item from one status to another with the
// old status in the WHERE clause, so concurrent writers cannot both
// win. Rejected rows are frozen at the database level.
func (r *repository) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, from, to enums.OrderItemStatus) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now()}
	switch to {
	case enums.OrderItemStatusDelivered:
		updates["delivered_at"] = time.Now()
	case enums.OrderItemStatusCancelled:
		updates["cancelled_at"] = time.Now()
	}
	result := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND status = ? AND status <> ?", itemID, from, enums.OrderItemStatusRejected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) SaveItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) SaveOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("SellerOrders", "Items", "Assignments").Save(order).Error
}

func (r *repository) SaveSellerOrder(ctx context.Context, sellerOrder *models.SellerOrder) error {
	return r.db.WithContext(ctx).Omit("Items").Save(sellerOrder).Error
}

func (r *repository) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.CourierAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) FindAssignment(ctx context.Context, orderID, courierID uuid.UUID) (*models.CourierAssignment, error) {
	var assignment models.CourierAssignment
	err := r.db.WithContext(ctx).
		First(&assignment, "order_id = ? AND courier_id = ?", orderID, courierID).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) SaveAssignment(ctx context.Context, assignment *models.CourierAssignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *repository) CreateCashCollection(ctx context.Context, collection *models.CashCollection) error {
	return r.db.WithContext(ctx).Create(collection).Error
}
