package spatial

import (
	"testing"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/stretchr/testify/assert"
)

func TestPointDistance(t *testing.T) {
	// One degree of latitude
	d := PointDistance(s2.PointFromLatLng(s2.LatLngFromDegrees(0, 0)), s2.PointFromLatLng(s2.LatLngFromDegrees(1, 0)))
	assert.InDelta(t, 111195, d, 1)
}

func TestStrideJoinsCloseTrackPoints(t *testing.T) {
	s := NewStride(cells.DetailedLevel, 100)
	s.Add(22.3000, 114.1700)
	s.Add(22.3005, 114.1700) // ~55 m north

	got := s.Collection()
	start := s2.CellIDFromLatLng(s2.LatLngFromDegrees(22.3000, 114.1700)).Parent(cells.DetailedLevel)
	end := s2.CellIDFromLatLng(s2.LatLngFromDegrees(22.3005, 114.1700)).Parent(cells.DetailedLevel)

	assert.True(t, got.ContainsCell(start))
	assert.True(t, got.ContainsCell(end))
	// level 20 cells are about 10 m wide, the gap between them is filled
	assert.Greater(t, len(got), 3)
}

func TestStrideBreaksOnFarPoints(t *testing.T) {
	s := NewStride(cells.DetailedLevel, 100)
	s.Add(22.30, 114.17)
	s.Add(22.31, 114.17) // ~1.1 km

	assert.Equal(t, 2, s.Len())

	s.Break()
	s.Add(22.3101, 114.17)
	assert.LessOrEqual(t, s.Len(), 3)
}

func TestStrideIgnoresRepeatedPoint(t *testing.T) {
	s := NewStride(cells.DetailedLevel, 0)
	s.Add(1, 1)
	s.Add(1, 1)

	assert.Equal(t, DefaultStrideThreshold, s.Threshold)
	assert.Equal(t, 1, s.Len())
}
