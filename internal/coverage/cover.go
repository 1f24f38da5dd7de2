package coverage

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
)

// ErrInvalidLevel is returned for a target level outside the grid
var ErrInvalidLevel = errors.New("invalid target level")

// cancelCheckInterval is the number of candidates handled between context checks
const cancelCheckInterval = 1024

type options struct {
	slack int
}

// Option tunes Cover
type Option func(*options)

// WithSlack sets how many levels above the target level a boundary cell is
// accepted without further refinement. Larger values cost less but add
// more area outside the region. Values below 1 are treated as 1.
func WithSlack(levels int) Option {
	return func(o *options) {
		if levels < 1 {
			levels = 1
		}
		o.slack = levels
	}
}

// Cover returns the cells at level covering region. Cells completely inside
// the region may be coarser than level; boundary cells are at level.
func Cover(ctx context.Context, region Region, level int, opts ...Option) (cells.Collection, error) {
	if level < 0 || level > s2.MaxLevel {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	o := options{slack: 1}
	for _, opt := range opts {
		opt(&o)
	}

	var result []s2.CellID
	var stack []s2.CellID
	for face := 0; face < 6; face++ {
		id := s2.CellIDFromFace(face)
		switch region.Relation(s2.CellFromCellID(id)) {
		case Contain:
			result = append(result, id)
		case Intersect:
			if level == 0 {
				result = append(result, id)
			} else {
				stack = append(stack, id)
			}
		}
	}

	for popped := 0; len(stack) > 0; popped++ {
		if popped%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		candidate := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		refine := level-candidate.Level() > o.slack
		for _, child := range candidate.Children() {
			switch region.Relation(s2.CellFromCellID(child)) {
			case Contain:
				result = append(result, child)
			case Intersect:
				if refine {
					stack = append(stack, child)
				} else {
					result = append(result, boundary(child, level)...)
				}
			}
		}
	}

	return cells.New(result...), nil
}

// boundary returns the descendants of an accepted boundary cell at level
func boundary(id s2.CellID, level int) []s2.CellID {
	if id.Level() >= level {
		return []s2.CellID{id}
	}
	var out []s2.CellID
	end := id.ChildEndAtLevel(level)
	for child := id.ChildBeginAtLevel(level); child != end; child = child.Next() {
		out = append(out, child)
	}
	return out
}
