package contour

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellAt(lat, lng float64, level int) s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lng)).Parent(level)
}

func assertClosed(t *testing.T, ring Ring) {
	t.Helper()
	require.NotEmpty(t, ring)
	assert.Equal(t, ring[0], ring[len(ring)-1])
}

func TestSingleCellIsSquare(t *testing.T) {
	id := cellAt(35.68, 139.76, 16)

	rings, err := Rings(context.Background(), cells.New(id), 16)
	require.NoError(t, err)
	require.Len(t, rings, 1)

	ring := rings[0]
	require.Len(t, ring, 5)
	assertClosed(t, ring)

	cell := s2.CellFromCellID(id)
	for k := 0; k < 4; k++ {
		v := s2.LatLngFromPoint(cell.Vertex(k))
		assert.InDelta(t, v.Lat.Degrees(), ring[k].Lat, 1e-9)
		assert.InDelta(t, v.Lng.Degrees(), ring[k].Lng, 1e-9)
	}
}

func TestFinerCellsAreAligned(t *testing.T) {
	id := cellAt(-23.5, -46.6, 14)
	kids := id.Children()

	rings, err := Rings(context.Background(), cells.New(kids[0], kids[3]), 14)
	require.NoError(t, err)
	require.Len(t, rings, 1)
	assert.Len(t, rings[0], 5)
}

func TestAdjacentCellsShareOneRing(t *testing.T) {
	id := cellAt(48.85, 2.35, 15)
	neighbour := id.EdgeNeighbors()[1]

	rings, err := Rings(context.Background(), cells.New(id, neighbour), 15)
	require.NoError(t, err)
	require.Len(t, rings, 1)
	assertClosed(t, rings[0])
	// six unit edges around a 2x1 rectangle
	assert.Len(t, rings[0], 7)
}

func TestSeparateCellsHaveSeparateRings(t *testing.T) {
	rings, err := Rings(context.Background(), cells.New(cellAt(10, 10, 12), cellAt(-10, 120, 12)), 12)
	require.NoError(t, err)
	require.Len(t, rings, 2)
	for _, ring := range rings {
		assertClosed(t, ring)
	}
}

func TestStairStepIsCut(t *testing.T) {
	a := cellAt(51.5, -0.12, 15)
	b := a.EdgeNeighbors()[1]
	c := b.EdgeNeighbors()[2]

	rings, err := Rings(context.Background(), cells.New(a, b, c), 15)
	require.NoError(t, err)
	require.Len(t, rings, 1)
	assertClosed(t, rings[0])
	// eight unit edges plus the bevel points
	assert.Greater(t, len(rings[0]), 9)
}

func TestHoleProducesInnerRing(t *testing.T) {
	parent := cellAt(40.4, -3.7, 12)
	var grid []s2.CellID
	end := parent.ChildEndAtLevel(14)
	for id := parent.ChildBeginAtLevel(14); id != end; id = id.Next() {
		grid = append(grid, id)
	}
	all := cells.New(grid...)

	var hole s2.CellID
	for _, id := range grid {
		interior := true
		for _, n := range id.EdgeNeighbors() {
			if !all.ContainsCell(n) {
				interior = false
			}
		}
		if interior {
			hole = id
			break
		}
	}
	require.NotZero(t, hole)

	rings, err := Rings(context.Background(), all.Difference(cells.New(hole)), 14)
	require.NoError(t, err)
	require.Len(t, rings, 2)
	for _, ring := range rings {
		assertClosed(t, ring)
	}
}

func TestWholeFaceTerminates(t *testing.T) {
	for face := 0; face < 6; face++ {
		rings, err := Rings(context.Background(), cells.New(s2.CellIDFromFace(face)), 3)
		require.NoError(t, err)
		if face == 2 || face == 3 || face == 5 {
			// traced as four level 1 blocks, polar corners become two points
			require.Len(t, rings, 4)
			want := 4*4 + 1
			if face != 3 {
				want++
			}
			for _, ring := range rings {
				assertClosed(t, ring)
				assert.Len(t, ring, want)
			}
			continue
		}
		require.Len(t, rings, 1)
		assertClosed(t, rings[0])
		assert.Len(t, rings[0], 4*8+1)
	}
}

func TestWorldRingsNeverJumpAcrossAntimeridian(t *testing.T) {
	for _, level := range []int{0, 3} {
		rings, err := Rings(context.Background(), cells.World(), level)
		require.NoError(t, err)
		require.NotEmpty(t, rings)
		for _, ring := range rings {
			assertClosed(t, ring)
			for i := 1; i < len(ring); i++ {
				assert.LessOrEqual(t, math.Abs(ring[i].Lng-ring[i-1].Lng), 180.0, "level %d", level)
			}
		}
	}
}

func TestFinestLevelKeepsStairSteps(t *testing.T) {
	a := cellAt(51.5, -0.12, s2.MaxLevel)
	b := a.EdgeNeighbors()[1]
	c := b.EdgeNeighbors()[2]

	rings, err := Rings(context.Background(), cells.New(a, b, c), s2.MaxLevel)
	require.NoError(t, err)
	require.NotEmpty(t, rings)
	for _, ring := range rings {
		assertClosed(t, ring)
		for i := 1; i < len(ring); i++ {
			assert.NotEqual(t, ring[i-1], ring[i])
		}
	}
}

func TestAntimeridianUnwrap(t *testing.T) {
	east, err := Rings(context.Background(), cells.New(cellAt(0.1, 179.999, 8)), 8)
	require.NoError(t, err)
	require.Len(t, east, 1)
	for _, c := range east[0] {
		assert.Greater(t, c.Lng, 0.0)
	}

	west, err := Rings(context.Background(), cells.New(cellAt(0.1, -179.999, 8)), 8)
	require.NoError(t, err)
	require.Len(t, west, 1)
	for _, c := range west[0] {
		assert.Less(t, c.Lng, 0.0)
	}
}

func TestRingsAreDeterministic(t *testing.T) {
	input := cells.New(cellAt(1, 1, 13), cellAt(1.01, 1.01, 13), cellAt(70, 10, 13), cellAt(-70, -100, 13))

	first, err := Rings(context.Background(), input, 13)
	require.NoError(t, err)
	second, err := Rings(context.Background(), input, 13)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestOverlayHasWorldShell(t *testing.T) {
	rings, err := Rings(context.Background(), cells.New(cellAt(1, 1, 10)), 10)
	require.NoError(t, err)

	data, err := json.Marshal(Overlay(rings))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"Polygon"`)

	fc := FeatureCollection(rings)
	assert.Len(t, fc.Features, 1)
}

func TestRingsHonourCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Rings(ctx, cells.New(cellAt(1, 1, 10)), 10)
	assert.ErrorIs(t, err, context.Canceled)
}
