package geo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
	"github.com/nearbasket/nearbasket-backend/pkg/types"
)

type fakeRepository struct {
	createFn     func(ctx context.Context, zone *models.DeliveryZone) error
	updateFn     func(ctx context.Context, zone *models.DeliveryZone) error
	findByIDFn   func(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error)
	listActiveFn func(ctx context.Context) ([]models.DeliveryZone, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, zone *models.DeliveryZone) error {
	if f.createFn != nil {
		return f.createFn(ctx, zone)
	}
	return nil
}

func (f *fakeRepository) Update(ctx context.Context, zone *models.DeliveryZone) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, zone)
	}
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListActive(ctx context.Context) ([]models.DeliveryZone, error) {
	if f.listActiveFn != nil {
		return f.listActiveFn(ctx)
	}
	return nil, nil
}

func (f *fakeRepository) List(ctx context.Context) ([]models.DeliveryZone, error) {
	return f.ListActive(ctx)
}

func radiusZone(name string, lat, lng, radiusKM float64) models.DeliveryZone {
	return models.DeliveryZone{
		ID:           uuid.New(),
		Name:         name,
		Status:       enums.ZoneStatusActive,
		Latitude:     lat,
		Longitude:    lng,
		RadiusKM:     radiusKM,
		BoundaryType: enums.ZoneBoundaryTypeRadius,
	}
}

func TestService_Locate(t *testing.T) {
	downtown := radiusZone("downtown", 0, 0, 10)
	suburbs := radiusZone("suburbs", 1, 1, 10)
	repo := &fakeRepository{
		listActiveFn: func(ctx context.Context) ([]models.DeliveryZone, error) {
			return []models.DeliveryZone{downtown, suburbs}, nil
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	zone, err := svc.Locate(context.Background(), 0.05, 0)
	if err != nil {
		t.Fatalf("Locate error: %v", err)
	}
	if zone == nil || zone.ID != downtown.ID {
		t.Fatalf("expected downtown zone, got %+v", zone)
	}

	zone, err = svc.Locate(context.Background(), 45, 45)
	if err != nil {
		t.Fatalf("Locate error: %v", err)
	}
	if zone != nil {
		t.Fatalf("expected no zone for unserviced point, got %s", zone.Name)
	}
}

func TestService_Locate_InvalidCoordinates(t *testing.T) {
	svc, _ := NewService(&fakeRepository{})

	_, err := svc.Locate(context.Background(), 91, 0)
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_TariffsAt(t *testing.T) {
	zone := radiusZone("downtown", 0, 0, 10)
	zone.HandlingFee = decimal.NewFromInt(15)
	zone.DropoffFeePerStore = decimal.NewFromInt(5)
	zone.CODAllowed = true
	repo := &fakeRepository{
		listActiveFn: func(ctx context.Context) ([]models.DeliveryZone, error) {
			return []models.DeliveryZone{zone}, nil
		},
	}
	svc, _ := NewService(repo)

	sheet, err := svc.TariffsAt(context.Background(), 0.01, 0.01)
	if err != nil {
		t.Fatalf("TariffsAt error: %v", err)
	}
	if !sheet.Exists || sheet.ZoneID == nil || *sheet.ZoneID != zone.ID {
		t.Fatalf("expected sheet for downtown, got %+v", sheet)
	}
	if !sheet.HandlingFee.Equal(decimal.NewFromInt(15)) || !sheet.CODAllowed {
		t.Fatalf("tariffs not carried over: %+v", sheet)
	}

	sheet, err = svc.TariffsAt(context.Background(), 45, 45)
	if err != nil {
		t.Fatalf("TariffsAt error: %v", err)
	}
	if sheet.Exists || sheet.ZoneID != nil {
		t.Fatalf("expected empty sheet for unserviced point, got %+v", sheet)
	}
	if !sheet.HandlingFee.IsZero() {
		t.Fatalf("empty sheet should zero all tariffs, got %+v", sheet)
	}
}

func TestService_NearestZone(t *testing.T) {
	near := radiusZone("near", 0.1, 0, 5)
	far := radiusZone("far", 3, 0, 5)
	repo := &fakeRepository{
		listActiveFn: func(ctx context.Context) ([]models.DeliveryZone, error) {
			return []models.DeliveryZone{far, near}, nil
		},
	}
	svc, _ := NewService(repo)

	zone, err := svc.NearestZone(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("NearestZone error: %v", err)
	}
	if zone == nil || zone.Name != "near" {
		t.Fatalf("expected nearest zone, got %+v", zone)
	}
}

func TestService_ZonesWithin(t *testing.T) {
	near := radiusZone("near", 0.1, 0, 5)
	mid := radiusZone("mid", 0.5, 0, 5)
	far := radiusZone("far", 3, 0, 5)
	repo := &fakeRepository{
		listActiveFn: func(ctx context.Context) ([]models.DeliveryZone, error) {
			return []models.DeliveryZone{far, mid, near}, nil
		},
	}
	svc, _ := NewService(repo)

	matches, err := svc.ZonesWithin(context.Background(), 0, 0, 100)
	if err != nil {
		t.Fatalf("ZonesWithin error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 zones within 100km, got %d", len(matches))
	}
	if matches[0].Zone.Name != "near" || matches[1].Zone.Name != "mid" {
		t.Fatalf("expected zones sorted by distance, got %s then %s", matches[0].Zone.Name, matches[1].Zone.Name)
	}
	if matches[0].DistanceKM <= 0 || matches[0].DistanceKM >= matches[1].DistanceKM {
		t.Fatalf("distances not annotated: %+v", matches)
	}
}

func TestService_EstimateDeliveryTime(t *testing.T) {
	zone := radiusZone("downtown", 0, 0, 50)
	zone.MinutesPerKM = 3
	zone.RushMinutesPerKM = 2
	zone.RushAvailable = true
	zone.PrepBufferMinutes = 10
	repo := &fakeRepository{
		listActiveFn: func(ctx context.Context) ([]models.DeliveryZone, error) {
			return []models.DeliveryZone{zone}, nil
		},
	}
	svc, _ := NewService(repo)

	got, err := svc.EstimateDeliveryTime(context.Background(), EstimateInput{
		Lat: 0.01, Lng: 0.01, DistanceKM: 4.5, BasePrepMinutes: 20,
	})
	if err != nil {
		t.Fatalf("EstimateDeliveryTime error: %v", err)
	}
	// 20 + 4.5*3 + 10 = 43.5, rounded up.
	if got.Minutes != 44 {
		t.Fatalf("expected 44 minutes, got %d", got.Minutes)
	}

	got, err = svc.EstimateDeliveryTime(context.Background(), EstimateInput{
		Lat: 0.01, Lng: 0.01, DistanceKM: 4.5, BasePrepMinutes: 20, Rush: true,
	})
	if err != nil {
		t.Fatalf("EstimateDeliveryTime error: %v", err)
	}
	// Rush tariff: 20 + 4.5*2 + 10 = 39.
	if got.Minutes != 39 {
		t.Fatalf("expected 39 minutes with rush, got %d", got.Minutes)
	}
}

func TestService_EstimateDeliveryTime_RushNotAvailable(t *testing.T) {
	zone := radiusZone("downtown", 0, 0, 50)
	zone.MinutesPerKM = 3
	zone.RushMinutesPerKM = 2
	zone.RushAvailable = false
	zone.PrepBufferMinutes = 10
	repo := &fakeRepository{
		listActiveFn: func(ctx context.Context) ([]models.DeliveryZone, error) {
			return []models.DeliveryZone{zone}, nil
		},
	}
	svc, _ := NewService(repo)

	got, err := svc.EstimateDeliveryTime(context.Background(), EstimateInput{
		Lat: 0.01, Lng: 0.01, DistanceKM: 4.5, BasePrepMinutes: 20, Rush: true,
	})
	if err != nil {
		t.Fatalf("EstimateDeliveryTime error: %v", err)
	}
	if got.Minutes != 44 {
		t.Fatalf("rush request should fall back to the standard tariff, got %d", got.Minutes)
	}
}

func TestService_EstimateDeliveryTime_NoZone(t *testing.T) {
	svc, _ := NewService(&fakeRepository{})

	_, err := svc.EstimateDeliveryTime(context.Background(), EstimateInput{
		Lat: 10, Lng: 10, DistanceKM: 2, BasePrepMinutes: 15,
	})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_CanStoreDeliver(t *testing.T) {
	zone := radiusZone("downtown", 0, 0, 10)
	repo := &fakeRepository{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
			if id == zone.ID {
				return &zone, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
		listActiveFn: func(ctx context.Context) ([]models.DeliveryZone, error) {
			return []models.DeliveryZone{zone}, nil
		},
	}
	svc, _ := NewService(repo)

	pinned := models.Store{ZoneID: &zone.ID, Latitude: 0.01, Longitude: 0.01}
	ok, err := svc.CanStoreDeliver(context.Background(), pinned, 0.05, 0)
	if err != nil {
		t.Fatalf("CanStoreDeliver error: %v", err)
	}
	if !ok {
		t.Fatal("store pinned to the covering zone should deliver")
	}

	ok, err = svc.CanStoreDeliver(context.Background(), pinned, 5, 5)
	if err != nil {
		t.Fatalf("CanStoreDeliver error: %v", err)
	}
	if ok {
		t.Fatal("point outside the store zone should not be deliverable")
	}

	// Store without an explicit zone resolves through its own location.
	floating := models.Store{Latitude: 0.01, Longitude: 0.01}
	ok, err = svc.CanStoreDeliver(context.Background(), floating, 0.05, 0)
	if err != nil {
		t.Fatalf("CanStoreDeliver error: %v", err)
	}
	if !ok {
		t.Fatal("store inside a zone should deliver within that zone")
	}
}

func TestService_CanStoreDeliver_InactiveZone(t *testing.T) {
	zone := radiusZone("downtown", 0, 0, 10)
	zone.Status = enums.ZoneStatusInactive
	repo := &fakeRepository{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
			return &zone, nil
		},
	}
	svc, _ := NewService(repo)

	store := models.Store{ZoneID: &zone.ID, Latitude: 0.01, Longitude: 0.01}
	ok, err := svc.CanStoreDeliver(context.Background(), store, 0.05, 0)
	if err != nil {
		t.Fatalf("CanStoreDeliver error: %v", err)
	}
	if ok {
		t.Fatal("inactive zone should not serve deliveries")
	}
}

func TestService_CreateZone_Validation(t *testing.T) {
	svc, _ := NewService(&fakeRepository{})

	tests := []struct {
		name  string
		input ZoneInput
	}{
		{name: "missing name", input: ZoneInput{Status: enums.ZoneStatusActive, RadiusKM: 5, BoundaryType: enums.ZoneBoundaryTypeRadius}},
		{name: "bad center", input: ZoneInput{Name: "z", Status: enums.ZoneStatusActive, Latitude: 95, RadiusKM: 5, BoundaryType: enums.ZoneBoundaryTypeRadius}},
		{name: "zero radius", input: ZoneInput{Name: "z", Status: enums.ZoneStatusActive, BoundaryType: enums.ZoneBoundaryTypeRadius}},
		{name: "short polygon", input: ZoneInput{Name: "z", Status: enums.ZoneStatusActive, RadiusKM: 5, BoundaryType: enums.ZoneBoundaryTypePolygon, Boundary: types.Polygon{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}}}},
		{name: "bad vertex", input: ZoneInput{Name: "z", Status: enums.ZoneStatusActive, RadiusKM: 5, BoundaryType: enums.ZoneBoundaryTypePolygon, Boundary: types.Polygon{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 99, Lng: 0}}}},
		{name: "bad boundary type", input: ZoneInput{Name: "z", Status: enums.ZoneStatusActive, RadiusKM: 5, BoundaryType: enums.ZoneBoundaryType("hexagon")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateZone(context.Background(), tc.input)
			var appErr *pkgerrors.Error
			if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_CreateZone(t *testing.T) {
	var created *models.DeliveryZone
	repo := &fakeRepository{
		createFn: func(ctx context.Context, zone *models.DeliveryZone) error {
			created = zone
			return nil
		},
	}
	svc, _ := NewService(repo)

	zone, err := svc.CreateZone(context.Background(), ZoneInput{
		Name:         "downtown",
		Status:       enums.ZoneStatusActive,
		Latitude:     12.97,
		Longitude:    77.59,
		RadiusKM:     8,
		BoundaryType: enums.ZoneBoundaryTypeRadius,
		HandlingFee:  decimal.NewFromInt(15),
	})
	if err != nil {
		t.Fatalf("CreateZone error: %v", err)
	}
	if created == nil || created.Name != "downtown" {
		t.Fatalf("zone not persisted: %+v", created)
	}
	if !zone.HandlingFee.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("tariffs not carried onto the zone: %+v", zone)
	}
}

func TestService_UpdateZone_PreservesIdentity(t *testing.T) {
	existing := radiusZone("downtown", 0, 0, 10)
	var updated *models.DeliveryZone
	repo := &fakeRepository{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
			return &existing, nil
		},
		updateFn: func(ctx context.Context, zone *models.DeliveryZone) error {
			updated = zone
			return nil
		},
	}
	svc, _ := NewService(repo)

	got, err := svc.UpdateZone(context.Background(), existing.ID, ZoneInput{
		Name:         "downtown-v2",
		Status:       enums.ZoneStatusActive,
		RadiusKM:     12,
		BoundaryType: enums.ZoneBoundaryTypeRadius,
	})
	if err != nil {
		t.Fatalf("UpdateZone error: %v", err)
	}
	if got.ID != existing.ID {
		t.Fatalf("update must keep the zone id, got %s", got.ID)
	}
	if updated == nil || updated.Name != "downtown-v2" || updated.RadiusKM != 12 {
		t.Fatalf("update not persisted: %+v", updated)
	}
}

func TestService_CheckOverlap(t *testing.T) {
	a := radiusZone("a", 0, 0, 10)
	b := radiusZone("b", 0.1, 0, 10)
	c := radiusZone("c", 2, 0, 10)
	repo := &fakeRepository{
		listActiveFn: func(ctx context.Context) ([]models.DeliveryZone, error) {
			return []models.DeliveryZone{a, b, c}, nil
		},
	}
	svc, _ := NewService(repo)

	report, err := svc.CheckOverlap(context.Background(), a, nil)
	if err != nil {
		t.Fatalf("CheckOverlap error: %v", err)
	}
	if !report.HasOverlap || report.Count != 1 {
		t.Fatalf("expected a single overlap, got %+v", report)
	}
	if report.Overlaps[0].Zone.ID != b.ID {
		t.Fatalf("expected overlap with b, got %s", report.Overlaps[0].Zone.Name)
	}
	if report.Overlaps[0].OverlapPercent <= 0 {
		t.Fatalf("expected positive overlap percent, got %f", report.Overlaps[0].OverlapPercent)
	}

	report, err = svc.CheckOverlap(context.Background(), a, &b.ID)
	if err != nil {
		t.Fatalf("CheckOverlap error: %v", err)
	}
	if report.HasOverlap {
		t.Fatalf("excluded zone should not be reported: %+v", report)
	}
}
