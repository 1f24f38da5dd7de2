package tessellation

import (
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/region"
)

// IndexLevel is the level of the cells keying the coverage index
const IndexLevel = 5

// Index maps each index-level cell to the regions whose coverage touches
// it, in the order they are tried.
type Index map[s2.CellID][]region.Code

// LoadIndex reads the coverage index, a JSON object keyed by cell token
func LoadIndex(fsys fs.FS, name string) (Index, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResourceMissing, name, err)
	}
	var raw map[string][]region.Code
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResource, name, err)
	}

	index := make(Index, len(raw))
	for token, codes := range raw {
		id := s2.CellIDFromToken(token)
		if !id.IsValid() || id.Level() != IndexLevel {
			return nil, fmt.Errorf("%w: %s: bad index cell %q", ErrMalformedResource, name, token)
		}
		index[id] = codes
	}
	return index, nil
}
