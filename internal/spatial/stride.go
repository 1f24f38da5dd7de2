package spatial

import (
	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
)

// DefaultStrideThreshold is the longest gap in meters bridged between two
// consecutive points of a track
const DefaultStrideThreshold = 100.0

// strideInterval is the sampling distance between interpolated points
const strideInterval = 1.0 // meter

// Stride converts a sequence of track points into cells. Consecutive points
// closer than Threshold are joined by sampling the great circle between
// them; farther points start a new run.
type Stride struct {
	Level     int
	Threshold float64

	cells    *cells.Builder
	previous *s2.Point
}

// NewStride creates a stride accumulating cells at level
func NewStride(level int, threshold float64) *Stride {
	if threshold <= 0 {
		threshold = DefaultStrideThreshold
	}
	return &Stride{
		Level:     level,
		Threshold: threshold,
		cells:     cells.NewBuilder(),
	}
}

// Add appends a point given in degrees
func (s *Stride) Add(lat, lng float64) {
	s.AddPoint(s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lng)))
}

// AddPoint appends a point
func (s *Stride) AddPoint(current s2.Point) {
	if s.previous == nil {
		s.cells.Add(s2.CellFromPoint(current).ID().Parent(s.Level))
	} else {
		distance := PointDistance(current, *s.previous)
		if distance > s.Threshold || distance == 0 {
			s.cells.Add(s2.CellFromPoint(current).ID().Parent(s.Level))
		} else {
			// Walk from current back towards previous, previous itself was added already
			increment := strideInterval / distance
			for t := 0.0; t < 1; t += increment {
				p := s2.Interpolate(t, current, *s.previous)
				s.cells.Add(s2.CellFromPoint(p).ID().Parent(s.Level))
			}
		}
	}
	s.previous = &current
}

// Break ends the current run, the next point is not joined to the last one
func (s *Stride) Break() {
	s.previous = nil
}

// Len returns the number of distinct cells so far
func (s *Stride) Len() int {
	return s.cells.Len()
}

// Collection returns the accumulated cells
func (s *Stride) Collection() cells.Collection {
	return s.cells.Collection()
}
