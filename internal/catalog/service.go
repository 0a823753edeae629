package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
)

// Service exposes seller catalog management and the stock operations
// checkout relies on.
type Service interface {
	CreateProduct(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, input UpdateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)

	SetListing(ctx context.Context, sellerID uuid.UUID, input SetListingInput) (*models.StoreProductVariant, error)
	GetListingDetail(ctx context.Context, listingID uuid.UUID) (*StoreVariantDetail, error)
	ListStoreListings(ctx context.Context, storeID uuid.UUID) ([]models.StoreProductVariant, error)
	AlternativeListing(ctx context.Context, sellerID, productVariantID uuid.UUID, minQty int, excludeStoreID uuid.UUID) (*StoreVariantDetail, error)

	ReserveStock(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error
	ReleaseStock(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error
}

type storeLoader interface {
	GetStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type service struct {
	repo   Repository
	stores storeLoader
}

func NewService(repo Repository, stores storeLoader) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository required")
	}
	if stores == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "store loader required")
	}
	return &service{repo: repo, stores: stores}, nil
}

// CreateProductInput carries a new catalog entry with its variants.
type CreateProductInput struct {
	Name             string
	Category         string
	IsCancelable     bool
	CancelableTill   enums.OrderItemStatus
	IsReturnable     bool
	ReturnWindowDays int
	Variants         []VariantInput
}

// VariantInput is one sellable unit on a product.
type VariantInput struct {
	Label string
	SKU   string
}

// UpdateProductInput carries mutable product fields.
type UpdateProductInput struct {
	Name             string
	Category         string
	IsCancelable     bool
	CancelableTill   enums.OrderItemStatus
	IsReturnable     bool
	ReturnWindowDays int
	IsActive         bool
}

// SetListingInput prices and stocks a variant at a store.
type SetListingInput struct {
	StoreID          uuid.UUID
	ProductVariantID uuid.UUID
	Price            decimal.Decimal
	StockQty         int
	IsActive         bool
}

func (s *service) CreateProduct(ctx context.Context, sellerID uuid.UUID, input CreateProductInput) (*models.Product, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if len(input.Variants) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product needs at least one variant")
	}
	if input.IsCancelable && !input.CancelableTill.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cancelable till status")
	}
	if input.IsReturnable && input.ReturnWindowDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "returnable products need a return window")
	}
	seen := map[string]struct{}{}
	for _, variant := range input.Variants {
		sku := strings.TrimSpace(variant.SKU)
		if sku == "" || strings.TrimSpace(variant.Label) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant label and sku are required")
		}
		if _, dup := seen[sku]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate variant sku")
		}
		seen[sku] = struct{}{}
	}

	product := &models.Product{
		SellerID:         sellerID,
		Name:             strings.TrimSpace(input.Name),
		Category:         strings.TrimSpace(input.Category),
		IsCancelable:     input.IsCancelable,
		CancelableTill:   input.CancelableTill,
		IsReturnable:     input.IsReturnable,
		ReturnWindowDays: input.ReturnWindowDays,
		IsActive:         true,
	}
	for _, variant := range input.Variants {
		product.Variants = append(product.Variants, models.ProductVariant{
			Label: strings.TrimSpace(variant.Label),
			SKU:   strings.TrimSpace(variant.SKU),
		})
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating product")
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, sellerID, productID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.IsReturnable && input.ReturnWindowDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "returnable products need a return window")
	}

	product.Name = strings.TrimSpace(input.Name)
	product.Category = strings.TrimSpace(input.Category)
	product.IsCancelable = input.IsCancelable
	product.CancelableTill = input.CancelableTill
	product.IsReturnable = input.IsReturnable
	product.ReturnWindowDays = input.ReturnWindowDays
	product.IsActive = input.IsActive
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating product")
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	products, err := s.repo.ListProductsBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing products")
	}
	return products, nil
}

// SetListing creates or updates the price and stock of a variant at
// one of the seller's stores.
func (s *service) SetListing(ctx context.Context, sellerID uuid.UUID, input SetListingInput) (*models.StoreProductVariant, error) {
	if input.StoreID == uuid.Nil || input.ProductVariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and variant id are required")
	}
	if input.Price.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.StockQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	store, err := s.stores.GetStore(ctx, input.StoreID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "store not found")
	}
	if store.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store belongs to another seller")
	}

	variant, err := s.repo.FindVariantByID(ctx, input.ProductVariantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "variant not found")
	}
	product, err := s.repo.FindProductByID(ctx, variant.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	if product.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "variant belongs to another seller")
	}

	listing := &models.StoreProductVariant{
		StoreID:          input.StoreID,
		ProductVariantID: input.ProductVariantID,
		Price:            input.Price,
		StockQty:         input.StockQty,
		IsActive:         input.IsActive,
	}
	if err := s.repo.UpsertListing(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving listing")
	}
	return listing, nil
}

func (s *service) GetListingDetail(ctx context.Context, listingID uuid.UUID) (*StoreVariantDetail, error) {
	detail, err := s.repo.FindStoreVariantDetail(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading listing")
	}
	return detail, nil
}

func (s *service) ListStoreListings(ctx context.Context, storeID uuid.UUID) ([]models.StoreProductVariant, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	listings, err := s.repo.ListListingsByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing store catalog")
	}
	return listings, nil
}

// AlternativeListing finds the same variant at a sibling store of the
// seller. Returns nil without an error when no store qualifies.
func (s *service) AlternativeListing(ctx context.Context, sellerID, productVariantID uuid.UUID, minQty int, excludeStoreID uuid.UUID) (*StoreVariantDetail, error) {
	listing, err := s.repo.FindSiblingListing(ctx, sellerID, productVariantID, minQty, excludeStoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "searching sibling stores")
	}
	return s.GetListingDetail(ctx, listing.ID)
}

// ReserveStock decrements stock inside the checkout transaction,
// failing when fewer units remain than requested.
func (s *service) ReserveStock(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	repo := s.repo.WithTx(tx)
	listing, err := repo.LockListing(ctx, listingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "listing not found")
	}
	if listing.StockQty < qty {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")
	}
	if err := repo.AdjustStock(ctx, listingID, -qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserving stock")
	}
	return nil
}

// ReleaseStock returns units to a listing after a cancellation or rejection.
func (s *service) ReleaseStock(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := s.repo.WithTx(tx).AdjustStock(ctx, listingID, qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "releasing stock")
	}
	return nil
}

func (s *service) ownedProduct(ctx context.Context, sellerID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another seller")
	}
	return product, nil
}
