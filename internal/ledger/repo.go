package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// Repository manages persistence for seller statements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, statement *models.SellerStatement) error
	HasEntry(ctx context.Context, sellerID, sourceID uuid.UUID, entryType enums.StatementEntryType, reason enums.StatementReason) (bool, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SellerStatement, error)
	ListPendingBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.SellerStatement, error)
	MarkSettled(ctx context.Context, ids []uuid.UUID, settledAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a statement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, statement *models.SellerStatement) error {
	return r.db.WithContext(ctx).Create(statement).Error
}

func (r *repository) HasEntry(ctx context.Context, sellerID, sourceID uuid.UUID, entryType enums.StatementEntryType, reason enums.StatementReason) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SellerStatement{}).
		Where("seller_id = ? AND source_id = ? AND entry_type = ? AND reason = ?", sellerID, sourceID, entryType, reason).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SellerStatement, error) {
	query := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var statements []models.SellerStatement
	if err := query.Find(&statements).Error; err != nil {
		return nil, err
	}
	return statements, nil
}

func (r *repository) ListPendingBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.SellerStatement, error) {
	var statements []models.SellerStatement
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND settlement = ?", sellerID, enums.SettlementStatusPending).
		Order("created_at ASC").
		Find(&statements).Error
	if err != nil {
		return nil, err
	}
	return statements, nil
}

func (r *repository) MarkSettled(ctx context.Context, ids []uuid.UUID, settledAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.SellerStatement{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"settlement": enums.SettlementStatusSettled,
			"settled_at": settledAt,
		}).Error
}
