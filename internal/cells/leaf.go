package cells

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

// LeafMax is the edge length of a face measured in leaf cells
const LeafMax = 1 << s2.MaxLevel

// LeafStep returns the edge length of a cell at level measured in leaf cells
func LeafStep(level int) int {
	return 1 << (s2.MaxLevel - level)
}

// LeafCoordinate returns the face and the (i, j) leaf coordinate of the
// lower-left corner of the cell.
func LeafCoordinate(id s2.CellID) (face, i, j int) {
	face = id.Face()
	u, v := faceXYZToUV(face, id.Point().Vector)
	step := LeafStep(id.Level())
	i = stToLeaf(uvToST(u)) &^ (step - 1)
	j = stToLeaf(uvToST(v)) &^ (step - 1)
	return face, i, j
}

// LeafLatLng returns the location of a leaf lattice point on face. i and j
// may be any value in [0, LeafMax], including fractions of a leaf.
func LeafLatLng(face int, i, j float64) s2.LatLng {
	u := stToUV(i / LeafMax)
	v := stToUV(j / LeafMax)
	return s2.LatLngFromPoint(s2.Point{Vector: faceUVToXYZ(face, u, v)})
}

func stToLeaf(s float64) int {
	l := int(math.Floor(s * LeafMax))
	if l < 0 {
		return 0
	}
	if l > LeafMax-1 {
		return LeafMax - 1
	}
	return l
}

// Quadratic projection, same as the one the s2 cell ids are built on
func uvToST(u float64) float64 {
	if u >= 0 {
		return 0.5 * math.Sqrt(1+3*u)
	}
	return 1 - 0.5*math.Sqrt(1-3*u)
}

func stToUV(s float64) float64 {
	if s >= 0.5 {
		return (1.0 / 3.0) * (4*s*s - 1)
	}
	return (1.0 / 3.0) * (1 - 4*(1-s)*(1-s))
}

func faceUVToXYZ(face int, u, v float64) r3.Vector {
	switch face {
	case 0:
		return r3.Vector{X: 1, Y: u, Z: v}
	case 1:
		return r3.Vector{X: -u, Y: 1, Z: v}
	case 2:
		return r3.Vector{X: -u, Y: -v, Z: 1}
	case 3:
		return r3.Vector{X: -1, Y: -v, Z: -u}
	case 4:
		return r3.Vector{X: v, Y: -1, Z: -u}
	default:
		return r3.Vector{X: v, Y: u, Z: -1}
	}
}

func faceXYZToUV(face int, p r3.Vector) (u, v float64) {
	switch face {
	case 0:
		return p.Y / p.X, p.Z / p.X
	case 1:
		return -p.X / p.Y, p.Z / p.Y
	case 2:
		return -p.X / p.Z, -p.Y / p.Z
	case 3:
		return p.Z / p.X, p.Y / p.X
	case 4:
		return p.Z / p.Y, -p.X / p.Y
	default:
		return -p.Y / p.Z, -p.X / p.Z
	}
}
