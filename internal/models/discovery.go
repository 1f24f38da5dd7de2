package models

import "math"

// levelRatio is the area in square meters of discovery level 1
const levelRatio = 1e6 / 250

// DiscoveryLevel returns floor(sqrt(area / 4000))
func DiscoveryLevel(area float64) int {
	if area <= 0 {
		return 0
	}
	return int(math.Sqrt(area / levelRatio))
}

// LevelRequirement returns the area needed to reach level
func LevelRequirement(level int) float64 {
	return float64(level) * float64(level) * levelRatio
}

// DiscoveryLevelProgress returns how far area is between its level and the next
func DiscoveryLevelProgress(area float64) float64 {
	level := DiscoveryLevel(area)
	lower, upper := LevelRequirement(level), LevelRequirement(level+1)
	return (area - lower) / (upper - lower)
}
