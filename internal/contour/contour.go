package contour

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
)

// ErrUnterminatedLoop is returned when a boundary walk finds no edge to continue
var ErrUnterminatedLoop = errors.New("boundary walk could not be closed")

// Coordinate is a location in degrees. Longitudes of rings near the
// antimeridian may lie outside [-180, 180].
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Ring is a closed outline, the first and last coordinates are equal
type Ring []Coordinate

// Rings traces the outlines of the area covered by c at level. Cells finer
// than level are coarsened first. Rings are returned in block order, so the
// same input always produces the same output.
func Rings(ctx context.Context, c cells.Collection, level int) ([]Ring, error) {
	if level < 0 || level > s2.MaxLevel {
		return nil, fmt.Errorf("invalid level: %d", level)
	}
	c = splitAntimeridianFaces(c.Aligned(level))
	step := cells.LeafStep(level)

	var rings []Ring
	for lower := 0; lower < len(c); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := blockKey(c[lower])
		upper := c.IndexAfter(key, lower)

		blockStep := step
		if key.Level() > level {
			blockStep = cells.LeafStep(key.Level())
		}
		b := newBlock(key, blockStep, c[lower:upper])
		for !b.isEmpty() {
			shape, err := b.popShape()
			if err != nil {
				return nil, fmt.Errorf("block %s: %w", key.ToToken(), err)
			}
			rings = append(rings, b.ring(shape))
		}

		lower = upper
	}
	return rings, nil
}

// splitAntimeridianFaces replaces whole faces crossed by the antimeridian
// with their level 1 cells, so every block of those faces has a hemisphere.
func splitAntimeridianFaces(c cells.Collection) cells.Collection {
	split := false
	for _, id := range c {
		if id.Level() == 0 && crossesAntimeridian(id.Face()) {
			split = true
			break
		}
	}
	if !split {
		return c
	}
	out := make(cells.Collection, 0, len(c)+9)
	for _, id := range c {
		if id.Level() == 0 && crossesAntimeridian(id.Face()) {
			children := id.Children()
			out = append(out, children[:]...)
			continue
		}
		out = append(out, id)
	}
	return out
}
