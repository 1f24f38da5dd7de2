package cells

import "github.com/golang/geo/s2"

// instanceShift keeps the face bits and the position bits of InstanceLevel
const instanceShift = 64 - (3 + 2*InstanceLevel)

// InstanceID returns the identifier of the record that stores id. The value
// is the top bits of the instance ancestor, so it sorts like the cells.
func InstanceID(id s2.CellID) uint16 {
	if id.Level() > InstanceLevel {
		id = id.Parent(InstanceLevel)
	}
	return uint16(uint64(id) >> instanceShift)
}

// InstanceCell rebuilds the instance-level cell from its identifier
func InstanceCell(iid uint16) s2.CellID {
	return s2.CellID(uint64(iid)<<instanceShift | 1<<(instanceShift-1))
}
