package models

import (
	"time"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
)

// PartialCellCollection is the discovered data under one instance-level cell
type PartialCellCollection struct {
	InstanceID uint16 `json:"instance_id" db:"instance_id"`

	// CoarseCells always equals DetailedCells expanded to the coarse level
	CoarseCells   cells.Collection `json:"-" db:"coarse_cells"`
	DetailedCells cells.Collection `json:"-" db:"detailed_cells"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewPartialCellCollection creates an empty record for the instance cell
func NewPartialCellCollection(instanceID uint16) *PartialCellCollection {
	return &PartialCellCollection{InstanceID: instanceID}
}

// InstanceCell returns the instance-level cell the record covers
func (p *PartialCellCollection) InstanceCell() s2.CellID {
	return cells.InstanceCell(p.InstanceID)
}

// Merge adds c and returns the cells that were not discovered before
func (p *PartialCellCollection) Merge(c cells.Collection) cells.Collection {
	delta := c.Difference(p.DetailedCells)
	if delta.IsEmpty() {
		return nil
	}
	p.Assign(p.DetailedCells.Union(delta))
	return delta
}

// Assign replaces the detailed data and recomputes the coarse data
func (p *PartialCellCollection) Assign(detailed cells.Collection) {
	p.DetailedCells = detailed
	p.CoarseCells = detailed.Expand(cells.CoarseLevel)
}
