package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
)

// StoreVariantDetail joins a store listing with its variant, product
// and store rows. Cart and checkout read through this view.
type StoreVariantDetail struct {
	Listing models.StoreProductVariant
	Variant models.ProductVariant
	Product models.Product
	Store   models.Store
}

// Repository manages persistence for products, variants and per-store listings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProductsBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)

	CreateVariant(ctx context.Context, variant *models.ProductVariant) error
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)

	UpsertListing(ctx context.Context, listing *models.StoreProductVariant) error
	FindListingByID(ctx context.Context, id uuid.UUID) (*models.StoreProductVariant, error)
	FindStoreVariantDetail(ctx context.Context, listingID uuid.UUID) (*StoreVariantDetail, error)
	ListListingsByStore(ctx context.Context, storeID uuid.UUID) ([]models.StoreProductVariant, error)
	FindSiblingListing(ctx context.Context, sellerID, productVariantID uuid.UUID, minQty int, excludeStoreID uuid.UUID) (*models.StoreProductVariant, error)

	LockListing(ctx context.Context, listingID uuid.UUID) (*models.StoreProductVariant, error)
	AdjustStock(ctx context.Context, listingID uuid.UUID, delta int) error
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

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) UpdateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListProductsBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).Create(variant).Error
}

func (r *repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) UpsertListing(ctx context.Context, listing *models.StoreProductVariant) error {
	return r.db.WithContext(ctx).Save(listing).Error
}

func (r *repository) FindListingByID(ctx context.Context, id uuid.UUID) (*models.StoreProductVariant, error) {
	var listing models.StoreProductVariant
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindStoreVariantDetail(ctx context.Context, listingID uuid.UUID) (*StoreVariantDetail, error) {
	listing, err := r.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	variant, err := r.FindVariantByID(ctx, listing.ProductVariantID)
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", variant.ProductID).Error; err != nil {
		return nil, err
	}
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", listing.StoreID).Error; err != nil {
		return nil, err
	}

	return &StoreVariantDetail{
		Listing: *listing,
		Variant: *variant,
		Product: product,
		Store:   store,
	}, nil
}

func (r *repository) ListListingsByStore(ctx context.Context, storeID uuid.UUID) ([]models.StoreProductVariant, error) {
	var listings []models.StoreProductVariant
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// FindSiblingListing looks for the same variant sold by another active
// store of the same seller with enough stock to cover the quantity.
func (r *repository) FindSiblingListing(ctx context.Context, sellerID, productVariantID uuid.UUID, minQty int, excludeStoreID uuid.UUID) (*models.StoreProductVariant, error) {
	var listing models.StoreProductVariant
	err := r.db.WithContext(ctx).
		Joins("JOIN stores ON stores.id = store_product_variants.store_id").
		Where("store_product_variants.product_variant_id = ?", productVariantID).
		Where("store_product_variants.store_id <> ?", excludeStoreID).
		Where("store_product_variants.is_active AND store_product_variants.stock_qty >= ?", minQty).
		Where("stores.seller_id = ? AND stores.is_active", sellerID).
		Order("store_product_variants.stock_qty DESC").
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// LockListing loads the listing under FOR UPDATE so stock movements
// serialize per listing.
func (r *repository) LockListing(ctx context.Context, listingID uuid.UUID) (*models.StoreProductVariant, error) {
	var listing models.StoreProductVariant
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&listing, "id = ?", listingID).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) AdjustStock(ctx context.Context, listingID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.StoreProductVariant{}).
		Where("id = ?", listingID).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", delta)).Error
}
