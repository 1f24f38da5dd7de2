package models

import (
	"math"
	"time"

	"github.com/jengzang/fog-backend-go/internal/region"
)

// RegionStatistic is the discovered area of one region
type RegionStatistic struct {
	Code            region.Code `json:"code" db:"region_code"`
	CountryCode     string      `json:"country_code" db:"country_code"`
	SubdivisionCode string      `json:"subdivision_code,omitempty" db:"subdivision_code"`

	Area float64 `json:"area" db:"area"` // Square meters, 0 when unknown

	// Square centimeters, integers keep incremental sums and a full refresh identical
	DiscoveredCentimeters int64 `json:"-" db:"discovered_area"`

	Visible   bool      `json:"visible" db:"visible"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewRegionStatistic creates an empty, visible statistic for code
func NewRegionStatistic(code region.Code, area float64) *RegionStatistic {
	return &RegionStatistic{
		Code:            code,
		CountryCode:     code.Country,
		SubdivisionCode: code.Subdivision,
		Area:            area,
		Visible:         true,
	}
}

// DiscoveredArea returns the discovered area in square meters
func (s *RegionStatistic) DiscoveredArea() float64 {
	return float64(s.DiscoveredCentimeters) / 1e4
}

// DiscoveredProportion returns the discovered share of the region in [0, 1]
func (s *RegionStatistic) DiscoveredProportion() float64 {
	if s.Area <= 0 {
		return 0
	}
	return math.Min(s.DiscoveredArea()/s.Area, 1)
}

// RegionStatisticView is the API representation of a RegionStatistic
type RegionStatisticView struct {
	*RegionStatistic
	DiscoveredArea       float64 `json:"discovered_area"`
	DiscoveredProportion float64 `json:"discovered_proportion"`
	DiscoveryLevel       int     `json:"discovery_level"`
	LevelProgress        float64 `json:"level_progress"`
}

// View returns the API representation
func (s *RegionStatistic) View() RegionStatisticView {
	area := s.DiscoveredArea()
	return RegionStatisticView{
		RegionStatistic:      s,
		DiscoveredArea:       area,
		DiscoveredProportion: s.DiscoveredProportion(),
		DiscoveryLevel:       DiscoveryLevel(area),
		LevelProgress:        DiscoveryLevelProgress(area),
	}
}
