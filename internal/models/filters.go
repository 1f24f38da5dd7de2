package models

import "github.com/jengzang/fog-backend-go/internal/coverage"

// Statistic scopes
const (
	ScopeAll          = "all"
	ScopeCountries    = "countries"
	ScopeSubdivisions = "subdivisions"
)

// StatisticFilter represents filter parameters for querying region statistics
type StatisticFilter struct {
	Scope      string `form:"scope"`      // all, countries, subdivisions
	Country    string `form:"country"`    // Subdivisions of this country only
	Discovered bool   `form:"discovered"` // Only regions with discovered area
	Visible    bool   `form:"visible"`    // Only visible regions
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
}

// ViewportFilter represents the map area and resolution requested
type ViewportFilter struct {
	coverage.BoundingBox
	Level int `form:"level"` // Grid level of the returned cells
}

// TaskFilter represents filter parameters for listing tasks
type TaskFilter struct {
	Kind   string `form:"kind"`
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}
