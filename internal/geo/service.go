package geo

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
	"github.com/nearbasket/nearbasket-backend/pkg/types"
)

// Service resolves delivery zones and the tariffs they impose.
type Service interface {
	Locate(ctx context.Context, lat, lng float64) (*models.DeliveryZone, error)
	GetZone(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error)
	TariffsAt(ctx context.Context, lat, lng float64) (*TariffSheet, error)
	NearestZone(ctx context.Context, lat, lng float64) (*models.DeliveryZone, error)
	ZonesWithin(ctx context.Context, lat, lng, maxDistanceKM float64) ([]ZoneDistance, error)
	EstimateDeliveryTime(ctx context.Context, input EstimateInput) (*DeliveryEstimate, error)
	CanStoreDeliver(ctx context.Context, store models.Store, lat, lng float64) (bool, error)
	CreateZone(ctx context.Context, input ZoneInput) (*models.DeliveryZone, error)
	UpdateZone(ctx context.Context, id uuid.UUID, input ZoneInput) (*models.DeliveryZone, error)
	CheckOverlap(ctx context.Context, zone models.DeliveryZone, excludeID *uuid.UUID) (*OverlapReport, error)
}

type service struct {
	repo Repository
}

// NewService wires a geo service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "zone repository required")
	}
	return &service{repo: repo}, nil
}

// TariffSheet is the denormalized tariff view at a point. When no zone
// covers the point, Exists is false and every tariff is zero.
type TariffSheet struct {
	Exists   bool       `json:"exists"`
	ZoneID   *uuid.UUID `json:"zone_id,omitempty"`
	ZoneName string     `json:"zone_name,omitempty"`

	RegularDeliveryCharge decimal.Decimal `json:"regular_delivery_charge"`
	RushDeliveryCharge    decimal.Decimal `json:"rush_delivery_charge"`
	DistanceFeePerKM      decimal.Decimal `json:"distance_fee_per_km"`
	RushDistanceFeePerKM  decimal.Decimal `json:"rush_distance_fee_per_km"`
	DropoffFeePerStore    decimal.Decimal `json:"dropoff_fee_per_store"`
	HandlingFee           decimal.Decimal `json:"handling_fee"`
	FreeDeliveryThreshold decimal.Decimal `json:"free_delivery_threshold"`

	MinutesPerKM      float64 `json:"minutes_per_km"`
	RushMinutesPerKM  float64 `json:"rush_minutes_per_km"`
	PrepBufferMinutes int     `json:"prep_buffer_minutes"`

	RushAvailable bool `json:"rush_available"`
	CODAllowed    bool `json:"cod_allowed"`
}

// ZoneDistance pairs a zone with its center distance from a point.
type ZoneDistance struct {
	Zone       models.DeliveryZone `json:"zone"`
	DistanceKM float64             `json:"distance_km"`
}

// EstimateInput feeds the delivery time estimate.
type EstimateInput struct {
	Lat             float64
	Lng             float64
	DistanceKM      float64
	BasePrepMinutes int
	Rush            bool
}

// DeliveryEstimate breaks down an estimated delivery duration.
type DeliveryEstimate struct {
	Minutes         int       `json:"minutes"`
	BasePrepMinutes int       `json:"base_prep_minutes"`
	DistanceKM      float64   `json:"distance_km"`
	MinutesPerKM    float64   `json:"minutes_per_km"`
	BufferMinutes   int       `json:"buffer_minutes"`
	ZoneID          uuid.UUID `json:"zone_id"`
}

// ZoneInput carries the fields accepted when creating or updating a zone.
type ZoneInput struct {
	Name         string
	Status       enums.ZoneStatus
	Latitude     float64
	Longitude    float64
	RadiusKM     float64
	BoundaryType enums.ZoneBoundaryType
	Boundary     types.Polygon

	RegularDeliveryCharge decimal.Decimal
	RushDeliveryCharge    decimal.Decimal
	DistanceFeePerKM      decimal.Decimal
	RushDistanceFeePerKM  decimal.Decimal
	DropoffFeePerStore    decimal.Decimal
	HandlingFee           decimal.Decimal
	FreeDeliveryThreshold decimal.Decimal

	MinutesPerKM      float64
	RushMinutesPerKM  float64
	PrepBufferMinutes int

	RushAvailable bool
	CODAllowed    bool

	CourierBaseFee           decimal.Decimal
	CourierPerStorePickupFee decimal.Decimal
	CourierDistanceFeePerKM  decimal.Decimal
	CourierPerOrderIncentive decimal.Decimal
}

// ZoneOverlap describes one zone intersecting a candidate area.
type ZoneOverlap struct {
	Zone           models.DeliveryZone `json:"zone"`
	DistanceKM     float64             `json:"distance_km"`
	OverlapPercent float64             `json:"overlap_percent"`
}

// OverlapReport summarizes intersections with existing active zones.
type OverlapReport struct {
	HasOverlap bool          `json:"has_overlap"`
	Overlaps   []ZoneOverlap `json:"overlaps"`
	Count      int           `json:"count"`
}

// Locate returns the first active zone covering the point, or nil when
// the point is unserviced. Zones are scanned in creation order so the
// oldest zone wins if areas ever overlap.
func (s *service) Locate(ctx context.Context, lat, lng float64) (*models.DeliveryZone, error) {
	if !ValidCoordinates(lat, lng) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}
	zones, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing zones")
	}
	for i := range zones {
		if ZoneContains(zones[i], lat, lng) {
			return &zones[i], nil
		}
	}
	return nil, nil
}

func (s *service) GetZone(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
	zone, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "zone not found")
	}
	return zone, nil
}

func (s *service) TariffsAt(ctx context.Context, lat, lng float64) (*TariffSheet, error) {
	zone, err := s.Locate(ctx, lat, lng)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return &TariffSheet{Exists: false}, nil
	}
	return &TariffSheet{
		Exists:                true,
		ZoneID:                &zone.ID,
		ZoneName:              zone.Name,
		RegularDeliveryCharge: zone.RegularDeliveryCharge,
		RushDeliveryCharge:    zone.RushDeliveryCharge,
		DistanceFeePerKM:      zone.DistanceFeePerKM,
		RushDistanceFeePerKM:  zone.RushDistanceFeePerKM,
		DropoffFeePerStore:    zone.DropoffFeePerStore,
		HandlingFee:           zone.HandlingFee,
		FreeDeliveryThreshold: zone.FreeDeliveryThreshold,
		MinutesPerKM:          zone.MinutesPerKM,
		RushMinutesPerKM:      zone.RushMinutesPerKM,
		PrepBufferMinutes:     zone.PrepBufferMinutes,
		RushAvailable:         zone.RushAvailable,
		CODAllowed:            zone.CODAllowed,
	}, nil
}

func (s *service) NearestZone(ctx context.Context, lat, lng float64) (*models.DeliveryZone, error) {
	if !ValidCoordinates(lat, lng) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}
	zones, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing zones")
	}

	var nearest *models.DeliveryZone
	shortest := math.MaxFloat64
	for i := range zones {
		distance := Haversine(zones[i].Latitude, zones[i].Longitude, lat, lng)
		if distance < shortest {
			shortest = distance
			nearest = &zones[i]
		}
	}
	return nearest, nil
}

func (s *service) ZonesWithin(ctx context.Context, lat, lng, maxDistanceKM float64) ([]ZoneDistance, error) {
	if !ValidCoordinates(lat, lng) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}
	zones, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing zones")
	}

	matches := make([]ZoneDistance, 0, len(zones))
	for i := range zones {
		distance := Haversine(zones[i].Latitude, zones[i].Longitude, lat, lng)
		if distance <= maxDistanceKM {
			matches = append(matches, ZoneDistance{Zone: zones[i], DistanceKM: distance})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].DistanceKM < matches[j].DistanceKM })
	return matches, nil
}

// EstimateDeliveryTime applies the tariff at the destination:
// prep + distance * minutes-per-km + buffer, rounded up.
func (s *service) EstimateDeliveryTime(ctx context.Context, input EstimateInput) (*DeliveryEstimate, error) {
	if !ValidCoordinates(input.Lat, input.Lng) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}
	if input.DistanceKM < 0 || input.BasePrepMinutes < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid estimate input")
	}
	zone, err := s.Locate(ctx, input.Lat, input.Lng)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not available at this location")
	}

	perKM := zone.MinutesPerKM
	if input.Rush && zone.RushAvailable {
		perKM = zone.RushMinutesPerKM
	}

	total := float64(input.BasePrepMinutes) + input.DistanceKM*perKM + float64(zone.PrepBufferMinutes)
	return &DeliveryEstimate{
		Minutes:         int(math.Ceil(total)),
		BasePrepMinutes: input.BasePrepMinutes,
		DistanceKM:      input.DistanceKM,
		MinutesPerKM:    perKM,
		BufferMinutes:   zone.PrepBufferMinutes,
		ZoneID:          zone.ID,
	}, nil
}

// CanStoreDeliver reports whether the store's zone covers the delivery
// point. A store with no explicit zone falls back to the zone covering
// its own location.
func (s *service) CanStoreDeliver(ctx context.Context, store models.Store, lat, lng float64) (bool, error) {
	if !ValidCoordinates(lat, lng) {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}

	var zone *models.DeliveryZone
	var err error
	if store.ZoneID != nil {
		zone, err = s.repo.FindByID(ctx, *store.ZoneID)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading store zone")
		}
		if zone.Status != enums.ZoneStatusActive {
			return false, nil
		}
	} else {
		zone, err = s.Locate(ctx, store.Latitude, store.Longitude)
		if err != nil {
			return false, err
		}
	}
	if zone == nil {
		return false, nil
	}
	return ZoneContains(*zone, lat, lng), nil
}

func (s *service) CreateZone(ctx context.Context, input ZoneInput) (*models.DeliveryZone, error) {
	if err := validateZoneInput(input); err != nil {
		return nil, err
	}
	zone := zoneFromInput(input)
	if err := s.repo.Create(ctx, zone); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating zone")
	}
	return zone, nil
}

func (s *service) UpdateZone(ctx context.Context, id uuid.UUID, input ZoneInput) (*models.DeliveryZone, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "zone id is required")
	}
	if err := validateZoneInput(input); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "zone not found")
	}

	updated := zoneFromInput(input)
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating zone")
	}
	return updated, nil
}

// CheckOverlap reports active zones whose area intersects the
// candidate. Overlap percent is relative to the combined radii, so it
// is indicative for polygon zones rather than exact.
func (s *service) CheckOverlap(ctx context.Context, zone models.DeliveryZone, excludeID *uuid.UUID) (*OverlapReport, error) {
	zones, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing zones")
	}

	report := &OverlapReport{Overlaps: []ZoneOverlap{}}
	for i := range zones {
		if zones[i].ID == zone.ID {
			continue
		}
		if excludeID != nil && zones[i].ID == *excludeID {
			continue
		}
		if !zonesOverlap(zone, zones[i]) {
			continue
		}

		distance := Haversine(zone.Latitude, zone.Longitude, zones[i].Latitude, zones[i].Longitude)
		combined := zone.RadiusKM + zones[i].RadiusKM
		percent := 0.0
		if combined > 0 {
			percent = math.Round((combined-distance)/combined*10000) / 100
		}
		report.Overlaps = append(report.Overlaps, ZoneOverlap{
			Zone:           zones[i],
			DistanceKM:     math.Round(distance*100) / 100,
			OverlapPercent: percent,
		})
	}
	report.HasOverlap = len(report.Overlaps) > 0
	report.Count = len(report.Overlaps)
	return report, nil
}

func validateZoneInput(input ZoneInput) error {
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "zone name is required")
	}
	if !ValidCoordinates(input.Latitude, input.Longitude) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid zone center")
	}
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid zone status")
	}
	switch input.BoundaryType {
	case enums.ZoneBoundaryTypeRadius:
		if input.RadiusKM <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "zone radius must be positive")
		}
	case enums.ZoneBoundaryTypePolygon:
		if len(input.Boundary) < 3 {
			return pkgerrors.New(pkgerrors.CodeValidation, "zone polygon needs at least three vertices")
		}
		for _, vertex := range input.Boundary {
			if !ValidCoordinates(vertex.Lat, vertex.Lng) {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid polygon vertex")
			}
		}
		// Radius still backs the polygon as a fallback area.
		if input.RadiusKM <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "zone radius must be positive")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid zone boundary type")
	}
	return nil
}

func zoneFromInput(input ZoneInput) *models.DeliveryZone {
	return &models.DeliveryZone{
		Name:                     input.Name,
		Status:                   input.Status,
		Latitude:                 input.Latitude,
		Longitude:                input.Longitude,
		RadiusKM:                 input.RadiusKM,
		BoundaryType:             input.BoundaryType,
		Boundary:                 input.Boundary,
		RegularDeliveryCharge:    input.RegularDeliveryCharge,
		RushDeliveryCharge:       input.RushDeliveryCharge,
		DistanceFeePerKM:         input.DistanceFeePerKM,
		RushDistanceFeePerKM:     input.RushDistanceFeePerKM,
		DropoffFeePerStore:       input.DropoffFeePerStore,
		HandlingFee:              input.HandlingFee,
		FreeDeliveryThreshold:    input.FreeDeliveryThreshold,
		MinutesPerKM:             input.MinutesPerKM,
		RushMinutesPerKM:         input.RushMinutesPerKM,
		PrepBufferMinutes:        input.PrepBufferMinutes,
		RushAvailable:            input.RushAvailable,
		CODAllowed:               input.CODAllowed,
		CourierBaseFee:           input.CourierBaseFee,
		CourierPerStorePickupFee: input.CourierPerStorePickupFee,
		CourierDistanceFeePerKM:  input.CourierDistanceFeePerKM,
		CourierPerOrderIncentive: input.CourierPerOrderIncentive,
	}
}
