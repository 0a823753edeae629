package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// Repository defines persistence operations for item returns.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, ret *models.OrderItemReturn) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrderItemReturn, error)
	FindOpenByItem(ctx context.Context, orderItemID uuid.UUID) (*models.OrderItemReturn, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.OrderItemReturn, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.OrderItemReturn, error)
	ListParked(ctx context.Context) ([]models.OrderItemReturn, error)
	Save(ctx context.Context, ret *models.OrderItemReturn) error

	CreateAssignment(ctx context.Context, assignment *models.CourierAssignment) error
	FindAssignment(ctx context.Context, returnID, courierID uuid.UUID) (*models.CourierAssignment, error)
	SaveAssignment(ctx context.Context, assignment *models.CourierAssignment) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a returns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ret *models.OrderItemReturn) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderItemReturn, error) {
	var ret models.OrderItemReturn
	if err := r.db.WithContext(ctx).First(&ret, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) FindOpenByItem(ctx context.Context, orderItemID uuid.UUID) (*models.OrderItemReturn, error) {
	var ret models.OrderItemReturn
	err := r.db.WithContext(ctx).
		Where("order_item_id = ? AND status <> ?", orderItemID, enums.ReturnStatusCancelled).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.OrderItemReturn, error) {
	var rets []models.OrderItemReturn
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rets).Error; err != nil {
		return nil, err
	}
	return rets, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.OrderItemReturn, error) {
	var rets []models.OrderItemReturn
	q := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rets).Error; err != nil {
		return nil, err
	}
	return rets, nil
}

func (r *repository) ListParked(ctx context.Context) ([]models.OrderItemReturn, error) {
	var rets []models.OrderItemReturn
	err := r.db.WithContext(ctx).
		Where("status = ? AND refund_status = ?", enums.ReturnStatusReceivedBySeller, enums.RefundStatusFailed).
		Order("created_at ASC").
		Find(&rets).Error
	if err != nil {
		return nil, err
	}
	return rets, nil
}

func (r *repository) Save(ctx context.Context, ret *models.OrderItemReturn) error {
	return r.db.WithContext(ctx).Save(ret).Error
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.CourierAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) FindAssignment(ctx context.Context, returnID, courierID uuid.UUID) (*models.CourierAssignment, error) {
	var assignment models.CourierAssignment
	err := r.db.WithContext(ctx).
		First(&assignment, "return_id = ? AND courier_id = ?", returnID, courierID).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) SaveAssignment(ctx context.Context, assignment *models.CourierAssignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}
