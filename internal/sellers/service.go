package sellers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/internal/geo"
	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
)

// Service manages sellers and their pickup stores.
type Service interface {
	CreateSeller(ctx context.Context, input SellerInput) (*models.Seller, error)
	UpdateSeller(ctx context.Context, id uuid.UUID, input SellerInput) (*models.Seller, error)
	GetSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	ListSellers(ctx context.Context) ([]models.Seller, error)

	CreateStore(ctx context.Context, sellerID uuid.UUID, input StoreInput) (*models.Store, error)
	UpdateStore(ctx context.Context, sellerID, storeID uuid.UUID, input StoreInput) (*models.Store, error)
	GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	ListStores(ctx context.Context, sellerID uuid.UUID) ([]models.Store, error)
}

type zoneLocator interface {
	Locate(ctx context.Context, lat, lng float64) (*models.DeliveryZone, error)
}

type service struct {
	repo  Repository
	zones zoneLocator
}

func NewService(repo Repository, zones zoneLocator) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "seller repository required")
	}
	if zones == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "zone locator required")
	}
	return &service{repo: repo, zones: zones}, nil
}

// SellerInput carries the fields accepted for a seller.
type SellerInput struct {
	Name           string
	CommissionRate decimal.Decimal
	IsActive       bool
}

// StoreInput carries the fields accepted for a store.
type StoreInput struct {
	Name                string
	Latitude            float64
	Longitude           float64
	BasePrepTimeMinutes int
	IsActive            bool
}

func (s *service) CreateSeller(ctx context.Context, input SellerInput) (*models.Seller, error) {
	if err := validateSellerInput(input); err != nil {
		return nil, err
	}
	seller := &models.Seller{
		Name:           strings.TrimSpace(input.Name),
		CommissionRate: input.CommissionRate,
		IsActive:       input.IsActive,
	}
	if err := s.repo.CreateSeller(ctx, seller); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating seller")
	}
	return seller, nil
}

func (s *service) UpdateSeller(ctx context.Context, id uuid.UUID, input SellerInput) (*models.Seller, error) {
	if err := validateSellerInput(input); err != nil {
		return nil, err
	}
	seller, err := s.repo.FindSellerByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "seller not found")
	}
	seller.Name = strings.TrimSpace(input.Name)
	seller.CommissionRate = input.CommissionRate
	seller.IsActive = input.IsActive
	if err := s.repo.UpdateSeller(ctx, seller); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating seller")
	}
	return seller, nil
}

func (s *service) GetSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	seller, err := s.repo.FindSellerByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading seller")
	}
	return seller, nil
}

func (s *service) ListSellers(ctx context.Context) ([]models.Seller, error) {
	sellers, err := s.repo.ListSellers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing sellers")
	}
	return sellers, nil
}

// CreateStore pins the store to the delivery zone covering its
// location when one exists. Stores outside every zone stay unpinned
// and cannot serve orders until a zone covers them.
func (s *service) CreateStore(ctx context.Context, sellerID uuid.UUID, input StoreInput) (*models.Store, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if err := validateStoreInput(input); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindSellerByID(ctx, sellerID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "seller not found")
	}

	store := &models.Store{
		SellerID:            sellerID,
		Name:                strings.TrimSpace(input.Name),
		Latitude:            input.Latitude,
		Longitude:           input.Longitude,
		BasePrepTimeMinutes: input.BasePrepTimeMinutes,
		IsActive:            input.IsActive,
	}
	if err := s.assignZone(ctx, store); err != nil {
		return nil, err
	}
	if err := s.repo.CreateStore(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating store")
	}
	return store, nil
}

func (s *service) UpdateStore(ctx context.Context, sellerID, storeID uuid.UUID, input StoreInput) (*models.Store, error) {
	if err := validateStoreInput(input); err != nil {
		return nil, err
	}
	store, err := s.repo.FindStoreByID(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "store not found")
	}
	if store.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store belongs to another seller")
	}

	moved := store.Latitude != input.Latitude || store.Longitude != input.Longitude
	store.Name = strings.TrimSpace(input.Name)
	store.Latitude = input.Latitude
	store.Longitude = input.Longitude
	store.BasePrepTimeMinutes = input.BasePrepTimeMinutes
	store.IsActive = input.IsActive
	if moved {
		if err := s.assignZone(ctx, store); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateStore(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating store")
	}
	return store, nil
}

func (s *service) GetStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	store, err := s.repo.FindStoreByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading store")
	}
	return store, nil
}

func (s *service) ListStores(ctx context.Context, sellerID uuid.UUID) ([]models.Store, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	stores, err := s.repo.ListStoresBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing stores")
	}
	return stores, nil
}

func (s *service) assignZone(ctx context.Context, store *models.Store) error {
	zone, err := s.zones.Locate(ctx, store.Latitude, store.Longitude)
	if err != nil {
		return err
	}
	if zone == nil {
		store.ZoneID = nil
		return nil
	}
	store.ZoneID = &zone.ID
	return nil
}

func validateSellerInput(input SellerInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller name is required")
	}
	if input.CommissionRate.IsNegative() || input.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 1")
	}
	return nil
}

func validateStoreInput(input StoreInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}
	if !geo.ValidCoordinates(input.Latitude, input.Longitude) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid store coordinates")
	}
	if input.BasePrepTimeMinutes < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "prep time cannot be negative")
	}
	return nil
}
