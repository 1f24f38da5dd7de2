package models

import "time"

// ChangeHistory records one committed batch of discoveries
type ChangeHistory struct {
	ID     int64  `json:"id" db:"id"`
	Source string `json:"source" db:"source"`

	InstanceCount         int   `json:"instance_count" db:"instance_count"`
	CellCount             int   `json:"cell_count" db:"cell_count"`
	DiscoveredCentimeters int64 `json:"-" db:"discovered_area"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DiscoveredArea returns the area added by the batch in square meters
func (h *ChangeHistory) DiscoveredArea() float64 {
	return float64(h.DiscoveredCentimeters) / 1e4
}
