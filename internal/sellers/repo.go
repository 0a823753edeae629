package sellers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
)

// Repository manages persistence for sellers and their stores.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateSeller(ctx context.Context, seller *models.Seller) error
	UpdateSeller(ctx context.Context, seller *models.Seller) error
	FindSellerByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	ListSellers(ctx context.Context) ([]models.Seller, error)

	CreateStore(ctx context.Context, store *models.Store) error
	UpdateStore(ctx context.Context, store *models.Store) error
	FindStoreByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	ListStoresBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Store, error)
	ListStoresByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Store, error)
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

func (r *repository) CreateSeller(ctx context.Context, seller *models.Seller) error {
	return r.db.WithContext(ctx).Create(seller).Error
}

func (r *repository) UpdateSeller(ctx context.Context, seller *models.Seller) error {
	return r.db.WithContext(ctx).Save(seller).Error
}

func (r *repository) FindSellerByID(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	err := r.db.WithContext(ctx).
		Preload("Stores").
		First(&seller, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repository) ListSellers(ctx context.Context) ([]models.Seller, error) {
	var sellers []models.Seller
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&sellers).Error; err != nil {
		return nil, err
	}
	return sellers, nil
}

func (r *repository) CreateStore(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *repository) UpdateStore(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).Save(store).Error
}

func (r *repository) FindStoreByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) ListStoresBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Store, error) {
	var stores []models.Store
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("name ASC").
		Find(&stores).Error
	if err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *repository) ListStoresByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Store, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var stores []models.Store
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}
