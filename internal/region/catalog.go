package region

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"

	"github.com/jengzang/fog-backend-go/internal/cells"
)

// Info describes one region of the catalog
type Info struct {
	Code   Code    `json:"code"`
	Area   float64 `json:"area"` // square meters
	Parent *Code   `json:"parent,omitempty"`
}

// Catalog holds the static region metadata shipped with the resources
type Catalog struct {
	regions map[Code]Info
}

// WorldArea is the surface area of the sphere used for cell areas
var WorldArea = 4 * math.Pi * cells.EarthRadiusMeters * cells.EarthRadiusMeters

// LoadCatalog reads a JSON array of Info from fsys. A missing file yields an
// empty catalog, regions then report an area of zero.
func LoadCatalog(fsys fs.FS, name string) (*Catalog, error) {
	c := &Catalog{regions: make(map[Code]Info)}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read region catalog: %w", err)
	}

	var infos []Info
	if err := json.Unmarshal(data, &infos); err != nil {
		return nil, fmt.Errorf("failed to parse region catalog: %w", err)
	}
	for _, info := range infos {
		c.regions[info.Code] = info
	}
	return c, nil
}

// Area returns the surface area of a region in square meters
func (c *Catalog) Area(code Code) float64 {
	if code == World {
		return WorldArea
	}
	if c == nil {
		return 0
	}
	return c.regions[code].Area
}

// Subdivisions returns the codes whose parent is country, ordered
func (c *Catalog) Subdivisions(country Code) []Code {
	if c == nil {
		return nil
	}
	var out []Code
	for code, info := range c.regions {
		if info.Parent != nil && *info.Parent == country {
			out = append(out, code)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Len returns the number of regions in the catalog
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.regions)
}
