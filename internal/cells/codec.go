package cells

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/geo/s2"
)

// Decode errors
var (
	ErrInvalidPageSize       = errors.New("cell data length is not a multiple of 8")
	ErrInvalidCellIdentifier = errors.New("invalid cell identifier")
)

const idSize = 8

// Encode writes the raw cell ids as fixed-width integers in the given order.
// Stored records use little-endian, exchanged files use big-endian.
func Encode(c Collection, order binary.ByteOrder) []byte {
	data := make([]byte, len(c)*idSize)
	for i, id := range c {
		order.PutUint64(data[i*idSize:], uint64(id))
	}
	return data
}

// Decode reads cells written by Encode. The result is normalized, so data
// from outside sources does not need to be sorted.
func Decode(data []byte, order binary.ByteOrder) (Collection, error) {
	if len(data)%idSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidPageSize, len(data))
	}
	ids := make([]s2.CellID, len(data)/idSize)
	for i := range ids {
		id := s2.CellID(order.Uint64(data[i*idSize:]))
		if !id.IsValid() {
			return nil, fmt.Errorf("%w: %#016x", ErrInvalidCellIdentifier, uint64(id))
		}
		ids[i] = id
	}
	return New(ids...), nil
}
