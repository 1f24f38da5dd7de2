package contour

import (
	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
)

type edge struct {
	row, col int
}

// edgeSet holds unit edges as row -> columns
type edgeSet map[int]map[int]struct{}

// toggle adds e, or removes it when present. An edge shared by two cells
// is seen twice and cancels out.
func (s edgeSet) toggle(e edge) {
	cols, ok := s[e.row]
	if !ok {
		cols = make(map[int]struct{})
		s[e.row] = cols
	}
	if _, ok := cols[e.col]; ok {
		delete(cols, e.col)
		if len(cols) == 0 {
			delete(s, e.row)
		}
		return
	}
	cols[e.col] = struct{}{}
}

func (s edgeSet) pop(e edge) bool {
	cols, ok := s[e.row]
	if !ok {
		return false
	}
	if _, ok := cols[e.col]; !ok {
		return false
	}
	delete(cols, e.col)
	if len(cols) == 0 {
		delete(s, e.row)
	}
	return true
}

// popFirst removes the edge with the lowest row, then the lowest column
func (s edgeSet) popFirst() edge {
	first := true
	var row int
	for r := range s {
		if first || r < row {
			row, first = r, false
		}
	}
	first = true
	var col int
	for c := range s[row] {
		if first || c < col {
			col, first = c, false
		}
	}
	e := edge{row: row, col: col}
	s.pop(e)
	return e
}

type direction int

const (
	right direction = iota
	up
	left
	down
)

func (d direction) horizontal() bool {
	return d == right || d == left
}

// candidates lists the next directions to try, turning left first
func (d direction) candidates() [3]direction {
	switch d {
	case right:
		return [3]direction{up, right, down}
	case up:
		return [3]direction{left, up, right}
	case left:
		return [3]direction{down, left, up}
	default:
		return [3]direction{right, down, left}
	}
}

func (d direction) leavesFace(p point) bool {
	switch d {
	case right:
		return p.x == cells.LeafMax
	case up:
		return p.y == cells.LeafMax
	case left:
		return p.x == 0
	default:
		return p.y == 0
	}
}

// edgeFrom returns the edge leaving p in direction d. Horizontal edges are
// keyed by (j, i), vertical edges by (i, j).
func (d direction) edgeFrom(p point, step int) edge {
	switch d {
	case right:
		return edge{row: p.y, col: p.x}
	case up:
		return edge{row: p.x, col: p.y}
	case left:
		return edge{row: p.y, col: p.x - step}
	default:
		return edge{row: p.x, col: p.y - step}
	}
}

func (d direction) end(e edge, step int) point {
	switch d {
	case right:
		return point{x: e.col + step, y: e.row}
	case up:
		return point{x: e.row, y: e.col + step}
	case left:
		return point{x: e.col, y: e.row}
	default:
		return point{x: e.row, y: e.col}
	}
}

// move shifts p by distance along d
func (d direction) move(p point, distance int) point {
	switch d {
	case right:
		p.x += distance
	case up:
		p.y += distance
	case left:
		p.x -= distance
	default:
		p.y -= distance
	}
	return p
}

type point struct {
	x, y int
}

// hemisphere tells how longitudes of a block are unwrapped
type hemisphere int

const (
	other hemisphere = iota
	easternEdge
	westernEdge
)

// hemisphereOf classifies the level 1 blocks touching the antimeridian
func hemisphereOf(key s2.CellID) hemisphere {
	if key.Level() != 1 {
		return other
	}
	position := (uint64(key) >> 59) & 0b11
	switch key.Face() {
	case 2:
		switch position {
		case 2:
			return westernEdge
		case 3:
			return easternEdge
		}
	case 3:
		if position < 2 {
			return easternEdge
		}
		return westernEdge
	case 5:
		switch position {
		case 0:
			return westernEdge
		case 1:
			return easternEdge
		}
	}
	return other
}

func crossesAntimeridian(face int) bool {
	return face == 2 || face == 3 || face == 5
}

// blockKey returns the block a cell is traced in. Faces crossed by the
// antimeridian are split into their level 1 cells. Whole faces must be
// split by the caller first.
func blockKey(id s2.CellID) s2.CellID {
	if face := id.Face(); !crossesAntimeridian(face) {
		return s2.CellIDFromFace(face)
	}
	return id.Parent(1)
}

type block struct {
	key        s2.CellID
	face       int
	step       int
	hemisphere hemisphere
	horizontal edgeSet
	vertical   edgeSet
}

func newBlock(key s2.CellID, step int, members cells.Collection) *block {
	b := &block{
		key:        key,
		face:       key.Face(),
		step:       step,
		hemisphere: hemisphereOf(key),
		horizontal: make(edgeSet),
		vertical:   make(edgeSet),
	}
	for _, id := range members {
		_, i, j := cells.LeafCoordinate(id)
		length := cells.LeafStep(id.Level())
		for d := 0; d < length; d += step {
			b.horizontal.toggle(edge{row: j, col: i + d})
			b.horizontal.toggle(edge{row: j + length, col: i + d})
			b.vertical.toggle(edge{row: i, col: j + d})
			b.vertical.toggle(edge{row: i + length, col: j + d})
		}
	}
	return b
}

func (b *block) isEmpty() bool {
	return len(b.horizontal) == 0 || len(b.vertical) == 0
}

// popShape walks one closed boundary starting at the lowest horizontal edge.
// Stair steps are cut by half a step on the way.
func (b *block) popShape() ([]point, error) {
	first := b.horizontal.popFirst()
	shape := []point{left.end(first, b.step), right.end(first, b.step)}
	directions := [3]direction{right, right, right}
	half := b.step / 2

	for {
		next, d, ok := b.search(shape[len(shape)-1], directions[2])
		if !ok {
			return nil, ErrUnterminatedLoop
		}
		shape = append(shape, next)
		directions = [3]direction{directions[1], directions[2], d}

		if half > 0 && directions[0] == directions[2] && directions[0].horizontal() != directions[1].horizontal() {
			n := len(shape)
			if corner := shape[n-3]; corner.x%b.step == 0 && corner.y%b.step == 0 {
				shape[n-3] = directions[0].move(shape[n-3], -half)
				shape[n-2] = directions[1].move(shape[n-2], -half)
				last := shape[n-1]
				shape = append(shape[:n-1], directions[2].move(last, -half), last)
			} else {
				shape[n-2] = directions[2].move(shape[n-2], half)
			}
		}

		if shape[0] == shape[len(shape)-1] {
			return shape, nil
		}
	}
}

func (b *block) search(from point, last direction) (point, direction, bool) {
	for _, d := range last.candidates() {
		if d.leavesFace(from) {
			continue
		}
		e := d.edgeFrom(from, b.step)
		set := b.vertical
		if d.horizontal() {
			set = b.horizontal
		}
		if set.pop(e) {
			return d.end(e, b.step), d, true
		}
	}
	return point{}, 0, false
}

// coordinate converts a leaf lattice point of the block to degrees
func (b *block) coordinate(p point) Coordinate {
	ll := cells.LeafLatLng(b.face, float64(p.x), float64(p.y))
	c := Coordinate{Lat: ll.Lat.Degrees(), Lng: ll.Lng.Degrees()}
	switch b.hemisphere {
	case easternEdge:
		if c.Lng < 0 {
			c.Lng += 360
		}
	case westernEdge:
		if c.Lng > 0 {
			c.Lng -= 360
		}
	}
	return c
}

// isPole reports whether p is the centre of a polar face
func (b *block) isPole(p point) bool {
	return (b.face == 2 || b.face == 5) && p.x == cells.LeafMax/2 && p.y == cells.LeafMax/2
}

// ring converts a closed shape to coordinates. A pole has no longitude of
// its own, so it becomes two points carrying the longitudes of its
// neighbours.
func (b *block) ring(shape []point) Ring {
	open := shape[:len(shape)-1]
	ring := make(Ring, 0, len(shape)+1)
	for i, p := range open {
		if !b.isPole(p) {
			ring = append(ring, b.coordinate(p))
			continue
		}
		prev := b.coordinate(open[(i+len(open)-1)%len(open)])
		next := b.coordinate(open[(i+1)%len(open)])
		lat := 90.0
		if b.face == 5 {
			lat = -90
		}
		ring = append(ring, Coordinate{Lat: lat, Lng: prev.Lng}, Coordinate{Lat: lat, Lng: next.Lng})
	}
	return append(ring, ring[0])
}