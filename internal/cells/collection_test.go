package cells

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellAt(lat, lng float64, level int) s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lng)).Parent(level)
}

func TestNewDropsDuplicatesAndDescendants(t *testing.T) {
	parent := cellAt(22.3, 114.2, 10)
	child := parent.Children()[2].ChildBegin()
	other := cellAt(48.8, 2.3, 12)

	c := New(child, other, parent, parent, other)

	require.Len(t, c, 2)
	assert.True(t, c.ContainsCell(child))
	assert.True(t, c.ContainsCell(parent))
	assert.True(t, c.ContainsCell(other))
	assert.True(t, c[0] < c[1])
}

func TestUnionKeepsSiblingsApart(t *testing.T) {
	parent := cellAt(35.6, 139.7, 8)
	children := parent.Children()

	a := New(children[0], children[1])
	b := New(children[2], children[3])
	u := a.Union(b)

	assert.Len(t, u, 4)
	assert.True(t, u.Equal(New(children[:]...)))
}

func TestIntersectionKeepsFinerCell(t *testing.T) {
	parent := cellAt(-33.9, 151.2, 9)
	grandchild := parent.Children()[1].Children()[3]

	got := New(parent).Intersection(New(grandchild, cellAt(10, 10, 9)))
	assert.Equal(t, Collection{grandchild}, got)

	got = New(grandchild).Intersection(New(parent))
	assert.Equal(t, Collection{grandchild}, got)
}

func TestDifferenceSubdivides(t *testing.T) {
	parent := cellAt(51.5, -0.1, 10)
	children := parent.Children()
	hole := children[1].Children()[0]

	diff := New(parent).Difference(New(hole))

	// three untouched children plus three siblings of the hole
	assert.Len(t, diff, 6)
	assert.False(t, diff.IntersectsCell(hole))
	assert.True(t, diff.ContainsCell(children[0]))
	assert.True(t, diff.ContainsCell(children[1].Children()[3]))
	assert.InEpsilon(t, New(parent).Area()-CellArea(hole), diff.Area(), 1e-6)

	assert.Empty(t, New(hole).Difference(New(parent)))
}

func TestPartitionCoversInput(t *testing.T) {
	a := New(cellAt(40.7, -74.0, 11), cellAt(40.8, -73.9, 13), cellAt(41.0, -73.5, 12))
	by := New(cellAt(40.7, -74.0, 9))

	inside, outside := a.Partition(by)

	assert.True(t, inside.Union(outside).Equal(a))
	assert.Empty(t, inside.Intersection(outside))
}

func TestExpandIsIdempotent(t *testing.T) {
	c := New(cellAt(1, 1, 8), cellAt(20, 20, 15), cellAt(20.001, 20.001, 18))

	once := c.Expand(12)
	assert.True(t, once.Equal(once.Expand(12)))
	for _, id := range once {
		assert.Equal(t, 12, id.Level())
	}
	// one level-8 cell expands to 4^4 level-12 cells
	assert.True(t, len(once) >= 256)
}

func TestAlignedCoarsensOnlyFinerCells(t *testing.T) {
	coarse := cellAt(60, 30, 4)
	fine := cellAt(-10, -60, 22)

	got := New(coarse, fine, fine.Parent(21).Children()[0]).Aligned(20)

	assert.Equal(t, New(coarse, fine.Parent(20)), got)
}

func TestIndexAfter(t *testing.T) {
	instance := cellAt(31.2, 121.5, InstanceLevel)
	inner := []s2.CellID{
		instance.ChildBeginAtLevel(DetailedLevel),
		instance.Children()[2].ChildBeginAtLevel(DetailedLevel),
	}
	outside := cellAt(-31.2, -60.5, DetailedLevel)
	c := New(append(inner, outside)...)

	start := 0
	if c[0] == outside {
		start = 1
	}
	assert.Equal(t, start+2, c.IndexAfter(instance, start))
}

func TestCodecRejectsMalformedData(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3}, binary.BigEndian)
	assert.ErrorIs(t, err, ErrInvalidPageSize)

	_, err = Decode(make([]byte, 8), binary.LittleEndian)
	assert.ErrorIs(t, err, ErrInvalidCellIdentifier)
}

func TestCodecByteOrder(t *testing.T) {
	c := New(cellAt(5, 5, 20), cellAt(-5, 100, 20))

	le := Encode(c, binary.LittleEndian)
	be := Encode(c, binary.BigEndian)
	assert.NotEqual(t, le, be)

	got, err := Decode(be, binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestInstanceIdentifier(t *testing.T) {
	id := cellAt(22.28, 114.16, DetailedLevel)
	iid := InstanceID(id)

	assert.Equal(t, id.Parent(InstanceLevel), InstanceCell(iid))
	assert.True(t, iid < 1<<15)
}

func TestLeafCoordinateMatchesCellVertices(t *testing.T) {
	for _, id := range []s2.CellID{
		cellAt(10, 10, 10),
		cellAt(60, 100, 14),
		cellAt(85, -170, 7),
		cellAt(-40, 170, 12),
		cellAt(-80, 20, 9),
		cellAt(15, -100, 20),
	} {
		face, i, j := LeafCoordinate(id)
		step := float64(LeafStep(id.Level()))
		cell := s2.CellFromCellID(id)

		lower := LeafLatLng(face, float64(i), float64(j))
		upper := LeafLatLng(face, float64(i)+step, float64(j)+step)

		assert.InDelta(t, 0, lower.Distance(s2.LatLngFromPoint(cell.Vertex(0))).Degrees(), 1e-9, id.ToToken())
		assert.InDelta(t, 0, upper.Distance(s2.LatLngFromPoint(cell.Vertex(2))).Degrees(), 1e-9, id.ToToken())
	}
}

func TestAreaCentimetersIsAdditive(t *testing.T) {
	parent := cellAt(45, 45, 18)
	kids := parent.Children()
	children := New(kids[:]...)

	half1 := New(children[0], children[1])
	half2 := New(children[2], children[3])

	assert.Equal(t, children.AreaCentimeters(), half1.AreaCentimeters()+half2.AreaCentimeters())
	assert.InEpsilon(t, CellArea(parent), children.Area(), 1e-6)
}

func TestBuilderDeduplicates(t *testing.T) {
	b := NewBuilder()
	id := cellAt(1, 2, DetailedLevel)
	b.Add(id)
	b.Add(id)
	b.AddCollection(New(cellAt(3, 4, DetailedLevel)))

	assert.Equal(t, 2, b.Len())
	assert.Len(t, b.Collection(), 2)
}

func TestWorldCoversSphere(t *testing.T) {
	w := World()
	require.Len(t, w, 6)
	assert.InEpsilon(t, 4*math.Pi*EarthRadiusMeters*EarthRadiusMeters, w.Area(), 1e-9)
	assert.True(t, w.ContainsCell(cellAt(-89, 179, DetailedLevel)))
}
