package sellers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
)

type fakeRepository struct {
	sellers map[uuid.UUID]*models.Seller
	stores  map[uuid.UUID]*models.Store
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		sellers: map[uuid.UUID]*models.Seller{},
		stores:  map[uuid.UUID]*models.Store{},
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) CreateSeller(ctx context.Context, seller *models.Seller) error {
	seller.ID = uuid.New()
	f.sellers[seller.ID] = seller
	return nil
}

func (f *fakeRepository) UpdateSeller(ctx context.Context, seller *models.Seller) error {
	f.sellers[seller.ID] = seller
	return nil
}

func (f *fakeRepository) FindSellerByID(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	s, ok := f.sellers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeRepository) ListSellers(ctx context.Context) ([]models.Seller, error) {
	var out []models.Seller
	for _, s := range f.sellers {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeRepository) CreateStore(ctx context.Context, store *models.Store) error {
	store.ID = uuid.New()
	f.stores[store.ID] = store
	return nil
}

func (f *fakeRepository) UpdateStore(ctx context.Context, store *models.Store) error {
	f.stores[store.ID] = store
	return nil
}

func (f *fakeRepository) FindStoreByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	s, ok := f.stores[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeRepository) ListStoresBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Store, error) {
	var out []models.Store
	for _, s := range f.stores {
		if s.SellerID == sellerID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListStoresByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Store, error) {
	var out []models.Store
	for _, id := range ids {
		if s, ok := f.stores[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeLocator struct {
	zone *models.DeliveryZone
}

func (f *fakeLocator) Locate(ctx context.Context, lat, lng float64) (*models.DeliveryZone, error) {
	return f.zone, nil
}

func TestService_CreateSeller(t *testing.T) {
	svc, err := NewService(newFakeRepository(), &fakeLocator{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	seller, err := svc.CreateSeller(context.Background(), SellerInput{
		Name:           "Fresh Farms",
		CommissionRate: decimal.RequireFromString("0.12"),
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("CreateSeller error: %v", err)
	}
	if seller.ID == uuid.Nil {
		t.Fatal("seller not persisted")
	}

	_, err = svc.CreateSeller(context.Background(), SellerInput{Name: "Bad", CommissionRate: decimal.NewFromInt(2)})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_CreateStore_AssignsZone(t *testing.T) {
	repo := newFakeRepository()
	zone := &models.DeliveryZone{ID: uuid.New()}
	svc, _ := NewService(repo, &fakeLocator{zone: zone})
	ctx := context.Background()

	seller, err := svc.CreateSeller(ctx, SellerInput{Name: "Fresh Farms", IsActive: true})
	if err != nil {
		t.Fatalf("CreateSeller error: %v", err)
	}

	store, err := svc.CreateStore(ctx, seller.ID, StoreInput{
		Name:      "Downtown",
		Latitude:  12.97,
		Longitude: 77.59,
		IsActive:  true,
	})
	if err != nil {
		t.Fatalf("CreateStore error: %v", err)
	}
	if store.ZoneID == nil || *store.ZoneID != zone.ID {
		t.Fatalf("expected store pinned to zone, got %v", store.ZoneID)
	}
}

func TestService_CreateStore_NoZone(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := NewService(repo, &fakeLocator{})
	ctx := context.Background()

	seller, _ := svc.CreateSeller(ctx, SellerInput{Name: "Fresh Farms", IsActive: true})
	store, err := svc.CreateStore(ctx, seller.ID, StoreInput{
		Name: "Outskirts", Latitude: 40, Longitude: 40, IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateStore error: %v", err)
	}
	if store.ZoneID != nil {
		t.Fatal("store outside every zone should stay unpinned")
	}
}

func TestService_UpdateStore_ReassignsZoneOnMove(t *testing.T) {
	repo := newFakeRepository()
	locator := &fakeLocator{zone: &models.DeliveryZone{ID: uuid.New()}}
	svc, _ := NewService(repo, locator)
	ctx := context.Background()

	seller, _ := svc.CreateSeller(ctx, SellerInput{Name: "Fresh Farms", IsActive: true})
	store, _ := svc.CreateStore(ctx, seller.ID, StoreInput{Name: "A", Latitude: 1, Longitude: 1, IsActive: true})

	newZone := &models.DeliveryZone{ID: uuid.New()}
	locator.zone = newZone

	updated, err := svc.UpdateStore(ctx, seller.ID, store.ID, StoreInput{
		Name: "A", Latitude: 2, Longitude: 2, IsActive: true,
	})
	if err != nil {
		t.Fatalf("UpdateStore error: %v", err)
	}
	if updated.ZoneID == nil || *updated.ZoneID != newZone.ID {
		t.Fatalf("expected reassigned zone, got %v", updated.ZoneID)
	}

	// Another seller cannot touch the store.
	_, err = svc.UpdateStore(ctx, uuid.New(), store.ID, StoreInput{Name: "A", Latitude: 2, Longitude: 2})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
