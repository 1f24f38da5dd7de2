package cells

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"
)

// Grid levels used across the system
const (
	InstanceLevel = 6  // one persisted record per cell at this level
	CoarseLevel   = 12 // summary resolution kept beside the detailed data
	DetailedLevel = 20 // finest resolution ever stored
)

// EarthRadiusMeters is the mean radius used for every area conversion
const EarthRadiusMeters = 6371000.0

// Collection is a sorted set of non-overlapping cells.
//
// Unlike s2.CellUnion, siblings are never merged into their parent, so a
// collection expanded to one level stays at that level.
type Collection []s2.CellID

// New builds a collection from arbitrary cells. Duplicates and cells
// covered by an ancestor in the input are dropped.
func New(ids ...s2.CellID) Collection {
	sorted := make([]s2.CellID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return normalizeSorted(sorted)
}

// normalizeSorted removes covered cells from an id-ordered slice in place.
func normalizeSorted(ids []s2.CellID) Collection {
	out := ids[:0]
	for _, id := range ids {
		if len(out) > 0 && out[len(out)-1].Contains(id) {
			continue
		}
		// Descendants of id sort directly before it
		for len(out) > 0 && id.Contains(out[len(out)-1]) {
			out = out[:len(out)-1]
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return Collection(out)
}

// World returns the six face cells, covering the whole sphere
func World() Collection {
	faces := make(Collection, 6)
	for face := range faces {
		faces[face] = s2.CellIDFromFace(face)
	}
	return faces
}

// IsEmpty reports whether the collection has no cells
func (c Collection) IsEmpty() bool {
	return len(c) == 0
}

// Equal reports whether two collections hold exactly the same cells
func (c Collection) Equal(o Collection) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i] != o[i] {
			return false
		}
	}
	return true
}

// Union returns the cells covered by either collection
func (c Collection) Union(o Collection) Collection {
	if len(c) == 0 {
		return o.clone()
	}
	if len(o) == 0 {
		return c.clone()
	}
	merged := make([]s2.CellID, 0, len(c)+len(o))
	i, j := 0, 0
	for i < len(c) && j < len(o) {
		if c[i] <= o[j] {
			merged = append(merged, c[i])
			i++
		} else {
			merged = append(merged, o[j])
			j++
		}
	}
	merged = append(merged, c[i:]...)
	merged = append(merged, o[j:]...)
	return normalizeSorted(merged)
}

// Intersection returns the area covered by both collections. Where a cell
// contains a cell of the other side, the finer cell is kept.
func (c Collection) Intersection(o Collection) Collection {
	var out []s2.CellID
	i, j := 0, 0
	for i < len(c) && j < len(o) {
		x, y := c[i], o[j]
		switch {
		case x.RangeMax() < y.RangeMin():
			i++
		case y.RangeMax() < x.RangeMin():
			j++
		case x.Contains(y):
			out = append(out, y)
			j++
		default:
			out = append(out, x)
			i++
		}
	}
	return Collection(out)
}

// Difference returns the area of c not covered by o. Cells of c that are
// partly covered are subdivided as needed.
func (c Collection) Difference(o Collection) Collection {
	if len(o) == 0 {
		return c.clone()
	}
	var out []s2.CellID
	j := 0
	for _, x := range c {
		for j < len(o) && o[j].RangeMax() < x.RangeMin() {
			j++
		}
		k := j
		for k < len(o) && o[k].RangeMin() <= x.RangeMax() {
			k++
		}
		out = subtract(out, x, o[j:k])
	}
	return Collection(out)
}

// subtract appends the parts of x not covered by cover, which holds only
// cells intersecting x, in order.
func subtract(out []s2.CellID, x s2.CellID, cover []s2.CellID) []s2.CellID {
	if len(cover) == 0 {
		return append(out, x)
	}
	for _, y := range cover {
		if y.Contains(x) {
			return out
		}
	}
	for _, child := range x.Children() {
		lo, hi := child.RangeMin(), child.RangeMax()
		start := sort.Search(len(cover), func(i int) bool { return cover[i].RangeMax() >= lo })
		end := start
		for end < len(cover) && cover[end].RangeMin() <= hi {
			end++
		}
		out = subtract(out, child, cover[start:end])
	}
	return out
}

// Partition splits c into the part covered by o and the remainder
func (c Collection) Partition(o Collection) (inside, outside Collection) {
	return c.Intersection(o), c.Difference(o)
}

// Expand returns the same area with every cell at exactly level. Finer cells
// are replaced by their ancestor, coarser cells by all of their descendants.
func (c Collection) Expand(level int) Collection {
	var out []s2.CellID
	for _, id := range c {
		switch l := id.Level(); {
		case l > level:
			parent := id.Parent(level)
			if len(out) == 0 || out[len(out)-1] != parent {
				out = append(out, parent)
			}
		case l == level:
			out = append(out, id)
		default:
			end := id.ChildEndAtLevel(level)
			for child := id.ChildBeginAtLevel(level); child != end; child = child.Next() {
				out = append(out, child)
			}
		}
	}
	return Collection(out)
}

// Aligned coarsens cells finer than level and keeps the others untouched
func (c Collection) Aligned(level int) Collection {
	var out []s2.CellID
	for _, id := range c {
		if id.Level() > level {
			id = id.Parent(level)
		}
		if len(out) == 0 || out[len(out)-1] != id {
			out = append(out, id)
		}
	}
	return Collection(out)
}

// IndexAfter returns the first index at or after since whose cell lies past
// the range of ancestor. Cells in [since, result) are those under ancestor
// when c[since] is.
func (c Collection) IndexAfter(ancestor s2.CellID, since int) int {
	limit := ancestor.RangeMax()
	return since + sort.Search(len(c)-since, func(i int) bool {
		return c[since+i].RangeMin() > limit
	})
}

// ContainsCell reports whether id is fully covered
func (c Collection) ContainsCell(id s2.CellID) bool {
	i := sort.Search(len(c), func(i int) bool { return c[i].RangeMax() >= id.RangeMin() })
	return i < len(c) && c[i].Contains(id)
}

// IntersectsCell reports whether any cell overlaps id
func (c Collection) IntersectsCell(id s2.CellID) bool {
	i := sort.Search(len(c), func(i int) bool { return c[i].RangeMax() >= id.RangeMin() })
	return i < len(c) && c[i].RangeMin() <= id.RangeMax()
}

// Area returns the surface area in square metres
func (c Collection) Area() float64 {
	var total float64
	for _, id := range c {
		total += CellArea(id)
	}
	return total
}

// AreaCentimeters returns the surface area as whole square centimetres.
// Each cell is rounded before summing, so the result does not depend on how
// the collection was split into batches.
func (c Collection) AreaCentimeters() int64 {
	var total int64
	for _, id := range c {
		total += int64(math.Round(CellArea(id) * 1e4))
	}
	return total
}

// CellArea returns the exact surface area of one cell in square metres
func CellArea(id s2.CellID) float64 {
	return s2.CellFromCellID(id).ExactArea() * EarthRadiusMeters * EarthRadiusMeters
}

// Tokens returns the cells as s2 tokens
func (c Collection) Tokens() []string {
	tokens := make([]string, len(c))
	for i, id := range c {
		tokens[i] = id.ToToken()
	}
	return tokens
}

func (c Collection) clone() Collection {
	if len(c) == 0 {
		return nil
	}
	out := make(Collection, len(c))
	copy(out, c)
	return out
}
