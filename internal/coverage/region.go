package coverage

import (
	"fmt"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/twpayne/go-geom"
)

// Relation classifies a cell against a region
type Relation int

const (
	Disjoint Relation = iota
	Intersect
	Contain
)

func (r Relation) String() string {
	switch r {
	case Disjoint:
		return "disjoint"
	case Intersect:
		return "intersect"
	case Contain:
		return "contain"
	}
	return fmt.Sprintf("Relation(%d)", int(r))
}

// Region is anything that can classify cells
type Region interface {
	Relation(cell s2.Cell) Relation
}

// BoundingBox is a latitude/longitude rectangle in degrees. A box with West
// greater than East crosses the antimeridian.
type BoundingBox struct {
	South float64 `json:"south" form:"minLat"`
	West  float64 `json:"west" form:"minLng"`
	North float64 `json:"north" form:"maxLat"`
	East  float64 `json:"east" form:"maxLng"`
}

// Validate checks the box is inside the valid coordinate range
func (b BoundingBox) Validate() error {
	if b.South < -90 || b.North > 90 || b.South > b.North {
		return fmt.Errorf("invalid latitude range [%g, %g]", b.South, b.North)
	}
	if b.West < -180 || b.West > 180 || b.East < -180 || b.East > 180 {
		return fmt.Errorf("invalid longitude range [%g, %g]", b.West, b.East)
	}
	return nil
}

// Rect returns the box as an s2 rectangle
func (b BoundingBox) Rect() s2.Rect {
	return s2.Rect{
		Lat: r1.Interval{Lo: radians(b.South), Hi: radians(b.North)},
		Lng: s1.IntervalFromEndpoints(radians(b.West), radians(b.East)),
	}
}

func radians(degrees float64) float64 {
	return (s1.Angle(degrees) * s1.Degree).Radians()
}

// Relation counts the cell corners inside the box
func (b BoundingBox) Relation(cell s2.Cell) Relation {
	rect := b.Rect()
	inside := 0
	for k := 0; k < 4; k++ {
		if rect.ContainsLatLng(s2.LatLngFromPoint(cell.Vertex(k))) {
			inside++
		}
	}
	switch inside {
	case 4:
		return Contain
	case 0:
		if rect.Intersects(cell.RectBound()) {
			return Intersect
		}
		return Disjoint
	default:
		return Intersect
	}
}

// LoopRegion wraps an s2 loop
type LoopRegion struct {
	Loop *s2.Loop
}

// Relation uses the exact loop predicates
func (l LoopRegion) Relation(cell s2.Cell) Relation {
	if l.Loop.ContainsCell(cell) {
		return Contain
	}
	if l.Loop.IntersectsCell(cell) {
		return Intersect
	}
	return Disjoint
}

// PolygonRegion converts the outer ring of a polygon into a loop region.
// Holes are ignored.
func PolygonRegion(p *geom.Polygon) (LoopRegion, error) {
	if p.NumLinearRings() == 0 {
		return LoopRegion{}, fmt.Errorf("polygon has no rings")
	}
	r := p.LinearRing(0)
	if r.NumCoords() < 4 {
		return LoopRegion{}, fmt.Errorf("can't convert ring with less than 4 points")
	}
	// Loops must be counter-clockwise. Assume the polygon is smaller than a
	// hemisphere and flip it otherwise.
	reverse := isClockwise(r)
	l := loopFromRing(r, reverse)
	if l.CapBound().Radius().Degrees() > 90 {
		l = loopFromRing(r, !reverse)
	}
	return LoopRegion{Loop: l}, nil
}

// Planar shoelace, an approximation that is good enough to pick the orientation
func isClockwise(r *geom.LinearRing) bool {
	var a float64
	n := r.NumCoords()
	for i := 0; i < n; i++ {
		p1 := r.Coord(i)
		p2 := r.Coord((i + 1) % n)
		a += (p2.X() - p1.X()) * (p1.Y() + p2.Y())
	}
	return a > 0
}

func loopFromRing(r *geom.LinearRing, reverse bool) *s2.Loop {
	// The closing coordinate repeats the first one
	n := r.NumCoords() - 1
	points := make([]s2.Point, n)
	for i := 0; i < n; i++ {
		c := r.Coord(i)
		if reverse {
			c = r.Coord(n - 1 - i)
		}
		points[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(c.Y(), c.X()))
	}
	return s2.LoopFromPoints(points)
}

// CellsRegion classifies cells against a collection
type CellsRegion struct {
	Cells cells.Collection
}

// Relation reports containment by the collection
func (r CellsRegion) Relation(cell s2.Cell) Relation {
	id := cell.ID()
	if r.Cells.ContainsCell(id) {
		return Contain
	}
	if r.Cells.IntersectsCell(id) {
		return Intersect
	}
	return Disjoint
}
