package routing

import (
	"math"

	"github.com/nearbasket/nearbasket-backend/internal/geo"
	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
)

// RouteStop is one pickup on a courier route. LegKM is the distance
// travelled to reach this stop from the previous point on the route.
type RouteStop struct {
	Store models.Store `json:"store"`
	LegKM float64      `json:"leg_km"`
}

// RoutePlan is an ordered pickup route ending at the customer.
// TotalKM includes the final leg from the last store to the customer;
// a single-store route is the round trip.
type RoutePlan struct {
	Stops   []RouteStop `json:"stops"`
	TotalKM float64     `json:"total_km"`
}

// Plan orders the pickups by nearest neighbor: the route starts at the
// store closest to the customer and always proceeds to the closest
// remaining store.
func Plan(customerLat, customerLng float64, stores []models.Store) (*RoutePlan, error) {
	if !geo.ValidCoordinates(customerLat, customerLng) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer coordinates")
	}
	if len(stores) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no stores to route")
	}

	if len(stores) == 1 {
		leg := geo.Haversine(customerLat, customerLng, stores[0].Latitude, stores[0].Longitude)
		return &RoutePlan{
			Stops:   []RouteStop{{Store: stores[0], LegKM: round2(leg)}},
			TotalKM: round2(leg * 2),
		}, nil
	}

	remaining := make([]models.Store, len(stores))
	copy(remaining, stores)

	stops := make([]RouteStop, 0, len(remaining))
	total := 0.0
	curLat, curLng := customerLat, customerLng
	for len(remaining) > 0 {
		best := 0
		bestDist := math.MaxFloat64
		for i := range remaining {
			d := geo.Haversine(curLat, curLng, remaining[i].Latitude, remaining[i].Longitude)
			if d < bestDist {
				bestDist = d
				best = i
			}
		}
		next := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)

		stops = append(stops, RouteStop{Store: next, LegKM: round2(bestDist)})
		total += bestDist
		curLat, curLng = next.Latitude, next.Longitude
	}

	// Final delivery leg back to the customer.
	total += geo.Haversine(curLat, curLng, customerLat, customerLng)

	return &RoutePlan{Stops: stops, TotalKM: round2(total)}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
