package spatial

import (
	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
)

// PointDistance calculates the great-circle distance between two unit vectors in meters
func PointDistance(a, b s2.Point) float64 {
	return a.Distance(b).Radians() * EarthRadiusMeters
}

// Constants
const (
	EarthRadiusMeters = cells.EarthRadiusMeters // Earth's mean radius in meters
)
