package promos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
)

// Repository manages persistence for promos and their redemptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, promo *models.Promo) error
	Update(ctx context.Context, promo *models.Promo) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Promo, error)
	FindByCode(ctx context.Context, code string) (*models.Promo, error)
	ListActiveInstant(ctx context.Context) ([]models.Promo, error)
	List(ctx context.Context) ([]models.Promo, error)
	CountRedemptionsByUser(ctx context.Context, promoID, userID uuid.UUID) (int64, error)
	CreateRedemption(ctx context.Context, redemption *models.PromoRedemption) error
	IncrementUsage(ctx context.Context, promoID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, promo *models.Promo) error {
	return r.db.WithContext(ctx).Create(promo).Error
}

func (r *repository) Update(ctx context.Context, promo *models.Promo) error {
	return r.db.WithContext(ctx).Save(promo).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Promo{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Promo, error) {
	var promo models.Promo
	if err := r.db.WithContext(ctx).First(&promo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Promo, error) {
	var promo models.Promo
	if err := r.db.WithContext(ctx).First(&promo, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) ListActiveInstant(ctx context.Context) ([]models.Promo, error) {
	var promos []models.Promo
	err := r.db.WithContext(ctx).
		Where("kind = ? AND starts_at <= ? AND ends_at >= ?", enums.PromoKindInstant, time.Now(), time.Now()).
		Order("created_at ASC").
		Find(&promos).Error
	if err != nil {
		return nil, err
	}
	return promos, nil
}

func (r *repository) List(ctx context.Context) ([]models.Promo, error) {
	var promos []models.Promo
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&promos).Error; err != nil {
		return nil, err
	}
	return promos, nil
}

func (r *repository) CountRedemptionsByUser(ctx context.Context, promoID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PromoRedemption{}).
		Where("promo_id = ? AND user_id = ?", promoID, userID).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateRedemption(ctx context.Context, redemption *models.PromoRedemption) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *repository) IncrementUsage(ctx context.Context, promoID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Promo{}).
		Where("id = ?", promoID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}
