package geo

import (
	"math"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	"github.com/nearbasket/nearbasket-backend/pkg/types"
)

const earthRadiusKM = 6371.0

// Haversine returns the great-circle distance between two coordinates
// in kilometers.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	latDiff := toRadians(lat2 - lat1)
	lngDiff := toRadians(lng2 - lng1)

	a := math.Sin(latDiff/2)*math.Sin(latDiff/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(lngDiff/2)*math.Sin(lngDiff/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// ValidCoordinates reports whether the pair is a plausible position.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// ZoneContains reports whether the zone's area covers the point. A
// polygon zone with a malformed ring falls back to its radius circle.
func ZoneContains(zone models.DeliveryZone, lat, lng float64) bool {
	if zone.BoundaryType == enums.ZoneBoundaryTypePolygon && len(zone.Boundary) >= 3 {
		return pointInPolygon(zone.Boundary, lat, lng)
	}
	return pointInRadius(zone, lat, lng)
}

func pointInRadius(zone models.DeliveryZone, lat, lng float64) bool {
	return Haversine(zone.Latitude, zone.Longitude, lat, lng) <= zone.RadiusKM
}

// pointInPolygon runs the ray casting algorithm over the ring.
func pointInPolygon(ring types.Polygon, lat, lng float64) bool {
	intersections := 0
	count := len(ring)

	for i := 0; i < count; i++ {
		j := (i + 1) % count

		xi, yi := ring[i].Lat, ring[i].Lng
		xj, yj := ring[j].Lat, ring[j].Lng

		if (yi > lng) != (yj > lng) &&
			lat < (xj-xi)*(lng-yi)/(yj-yi)+xi {
			intersections++
		}
	}

	return intersections%2 == 1
}

// zonesOverlap reports whether two zone areas intersect. Two polygon
// zones are compared vertex-by-vertex; otherwise the radius circles
// are compared against the distance between centers.
func zonesOverlap(a, b models.DeliveryZone) bool {
	aPoly := a.BoundaryType == enums.ZoneBoundaryTypePolygon && len(a.Boundary) >= 3
	bPoly := b.BoundaryType == enums.ZoneBoundaryTypePolygon && len(b.Boundary) >= 3

	if aPoly && bPoly {
		for _, vertex := range a.Boundary {
			if pointInPolygon(b.Boundary, vertex.Lat, vertex.Lng) {
				return true
			}
		}
		for _, vertex := range b.Boundary {
			if pointInPolygon(a.Boundary, vertex.Lat, vertex.Lng) {
				return true
			}
		}
		return false
	}

	distance := Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	return distance < a.RadiusKM+b.RadiusKM
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
