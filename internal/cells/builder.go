package cells

import (
	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/golang/geo/s2"
)

// Builder accumulates single cells before they are turned into a
// Collection. Tracks and tile imports add millions of points, most of them
// repeated, so ids are buffered in a bitmap instead of growing a collection
// with Union on every point.
type Builder struct {
	ids *roaring64.Bitmap
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{ids: roaring64.New()}
}

// Add buffers one cell
func (b *Builder) Add(id s2.CellID) {
	b.ids.Add(uint64(id))
}

// AddCollection buffers every cell of c
func (b *Builder) AddCollection(c Collection) {
	for _, id := range c {
		b.ids.Add(uint64(id))
	}
}

// Merge buffers every cell buffered by other
func (b *Builder) Merge(other *Builder) {
	b.ids.Or(other.ids)
}

// Len returns the number of distinct buffered cells
func (b *Builder) Len() int {
	return int(b.ids.GetCardinality())
}

// Collection returns the buffered cells as a normalized collection
func (b *Builder) Collection() Collection {
	raw := b.ids.ToArray()
	ids := make([]s2.CellID, len(raw))
	for i, v := range raw {
		ids[i] = s2.CellID(v)
	}
	// ToArray is ascending, only covered cells need dropping
	return normalizeSorted(ids)
}
