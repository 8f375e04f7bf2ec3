package geo

import (
	"fmt"
	"math"
)

const (
	earthRadiusKm = 6371.0

	walkingSpeedKmh = 5.0
	drivingSpeedKmh = 30.0
)

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"latitude" validate:"latitude"`
	Lon float64 `json:"longitude" validate:"longitude"`
}

// Valid reports whether both components are inside their degree ranges.
func (c Coordinates) Valid() bool {
	return ValidateCoordinates(c.Lat, c.Lon)
}

// DistanceTo returns the great-circle distance to other in kilometers.
func (c Coordinates) DistanceTo(other Coordinates) float64 {
	return Distance(c.Lat, c.Lon, other.Lat, other.Lon)
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// MapsURL links to the point on Google Maps.
func (c Coordinates) MapsURL() string {
	return "https://www.google.com/maps/search/?api=1&query=" + c.String()
}

// Distance calculates the distance between two coordinates using Haversine formula.
// The result is in kilometers. Inputs outside the degree ranges give an unspecified result.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	dLatRad := (lat2 - lat1) * math.Pi / 180.0
	dLonRad := (lon2 - lon1) * math.Pi / 180.0

	// a = sin²(Δlat/2) + cos(lat1) * cos(lat2) * sin²(Δlon/2)
	a := math.Sin(dLatRad/2)*math.Sin(dLatRad/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLonRad/2)*math.Sin(dLonRad/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// ValidateCoordinates checks latitude and longitude ranges
func ValidateCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// FormatDistance formats distance in meters below one kilometer and in kilometers above
func FormatDistance(distanceKm float64) string {
	if distanceKm < 1.0 {
		return fmt.Sprintf("%dm", int(distanceKm*1000))
	}
	return fmt.Sprintf("%.1fkm", distanceKm)
}

// WalkingMinutes estimates walking time at an average 5 km/h.
func WalkingMinutes(distanceKm float64) int {
	return int(distanceKm / walkingSpeedKmh * 60)
}

// DrivingMinutes estimates city driving time at an average 30 km/h.
func DrivingMinutes(distanceKm float64) int {
	return int(distanceKm / drivingSpeedKmh * 60)
}
