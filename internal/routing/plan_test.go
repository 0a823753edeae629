package routing

import (
	"errors"
	"math"
	"testing"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	pkgerrors "github.com/nearbasket/nearbasket-backend/pkg/errors"
)

func store(name string, lat, lng float64) models.Store {
	return models.Store{Name: name, Latitude: lat, Longitude: lng}
}

func TestPlan_SingleStoreRoundTrip(t *testing.T) {
	plan, err := Plan(0, 0, []models.Store{store("a", 0.1, 0)})
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if len(plan.Stops) != 1 {
		t.Fatalf("expected one stop, got %d", len(plan.Stops))
	}
	if math.Abs(plan.TotalKM-2*plan.Stops[0].LegKM) > 0.011 {
		t.Fatalf("single store should be a round trip: leg %f total %f", plan.Stops[0].LegKM, plan.TotalKM)
	}
}

func TestPlan_NearestNeighborOrder(t *testing.T) {
	// Customer at the origin. near < mid < far by distance, but mid is
	// between near and far so nearest-neighbor keeps the chain order.
	stores := []models.Store{
		store("far", 0.9, 0),
		store("near", 0.1, 0),
		store("mid", 0.5, 0),
	}

	plan, err := Plan(0, 0, stores)
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}

	var names []string
	for _, stop := range plan.Stops {
		names = append(names, stop.Store.Name)
	}
	want := []string{"near", "mid", "far"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected stop order %v, got %v", want, names)
		}
	}

	// Route: 0 -> 0.1 -> 0.5 -> 0.9 -> back to 0, i.e. 1.8 degrees of
	// latitude, ~200km.
	if math.Abs(plan.TotalKM-1.8*111.19) > 1 {
		t.Fatalf("unexpected total distance %f", plan.TotalKM)
	}
}

func TestPlan_LegDistances(t *testing.T) {
	stores := []models.Store{
		store("b", 0.2, 0),
		store("a", 0.1, 0),
	}

	plan, err := Plan(0, 0, stores)
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if plan.Stops[0].Store.Name != "a" || plan.Stops[1].Store.Name != "b" {
		t.Fatalf("unexpected order: %s then %s", plan.Stops[0].Store.Name, plan.Stops[1].Store.Name)
	}
	// Both legs cover 0.1 degrees of latitude.
	if math.Abs(plan.Stops[0].LegKM-plan.Stops[1].LegKM) > 0.05 {
		t.Fatalf("expected equal legs, got %f and %f", plan.Stops[0].LegKM, plan.Stops[1].LegKM)
	}
}

func TestPlan_Validation(t *testing.T) {
	_, err := Plan(95, 0, []models.Store{store("a", 0, 0)})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad coordinates, got %v", err)
	}

	_, err = Plan(0, 0, nil)
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty store list, got %v", err)
	}
}
