package tessellation

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/jengzang/fog-backend-go/internal/region"
	"github.com/klauspost/compress/zstd"
)

// Resource errors. Both are fatal to the call that hit them.
var (
	ErrResourceMissing   = errors.New("tessellation resource missing")
	ErrMalformedResource = errors.New("tessellation resource malformed")
)

// Resource names inside the resource file system
const (
	IndexFile   = "cover-index.json"
	CoversDir   = "covers"
	CoverSuffix = ".cells.zst"
)

// Tessellation assigns cells to the regions covering them
type Tessellation struct {
	resources fs.FS
	index     Index
	cache     Cache
}

// Option configures a Tessellation
type Option func(*Tessellation)

// WithCache replaces the default LRU cache
func WithCache(cache Cache) Option {
	return func(t *Tessellation) {
		t.cache = cache
	}
}

// New loads the coverage index from resources
func New(resources fs.FS, opts ...Option) (*Tessellation, error) {
	index, err := LoadIndex(resources, IndexFile)
	if err != nil {
		return nil, err
	}
	t := &Tessellation{resources: resources, index: index}
	for _, opt := range opts {
		opt(t)
	}
	if t.cache == nil {
		cache, err := NewCache(DefaultCachePolicy)
		if err != nil {
			return nil, err
		}
		t.cache = cache
	}
	return t, nil
}

// Group splits c by region. The returned collections are disjoint, their
// union is c, and cells outside every region are grouped under region.Ocean.
func (t *Tessellation) Group(ctx context.Context, c cells.Collection, p *progress.Progress) (map[region.Code]cells.Collection, error) {
	queue := splitCoarse(c, IndexLevel)
	total := len(queue)
	p.SetTotal(int64(total))

	result := make(map[region.Code]cells.Collection)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		indexCell := queue[0].Parent(IndexLevel)
		end := queue.IndexAfter(indexCell, 0)
		slice := queue[:end]

		for _, code := range t.index[indexCell] {
			if len(slice) == 0 {
				break
			}
			coverage, err := t.coverage(code)
			if err != nil {
				return nil, err
			}
			inside, outside := slice.Partition(coverage)
			if len(inside) > 0 {
				result[code] = result[code].Union(inside)
			}
			slice = outside
		}
		if len(slice) > 0 {
			result[region.Ocean] = result[region.Ocean].Union(slice)
		}

		queue = queue[end:]
		p.SetCompleted(int64(total - len(queue)))
	}
	return result, nil
}

// splitCoarse replaces cells coarser than level by their descendants at level
func splitCoarse(c cells.Collection, level int) cells.Collection {
	coarse := false
	for _, id := range c {
		if id.Level() < level {
			coarse = true
			break
		}
	}
	if !coarse {
		return c
	}
	var out []s2.CellID
	for _, id := range c {
		if id.Level() < level {
			out = append(out, cells.Collection{id}.Expand(level)...)
		} else {
			out = append(out, id)
		}
	}
	return cells.Collection(out)
}

// coverage returns the cells of a region, loading them on a cache miss.
// Two goroutines missing at once both load, the results are identical.
func (t *Tessellation) coverage(code region.Code) (cells.Collection, error) {
	if c, ok := t.cache.Get(code); ok {
		return c, nil
	}
	c, err := LoadCoverage(t.resources, code)
	if err != nil {
		return nil, err
	}
	t.cache.Add(code, c)
	return c, nil
}

// LoadCoverage reads covers/<code>.cells.zst, a zstd stream of big-endian
// cell ids.
func LoadCoverage(resources fs.FS, code region.Code) (cells.Collection, error) {
	name := path.Join(CoversDir, code.String()+CoverSuffix)
	f, err := resources.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResourceMissing, name, err)
	}
	defer f.Close()

	decoder, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResource, name, err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResource, name, err)
	}
	c, err := cells.Decode(data, binary.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResource, name, err)
	}
	return c, nil
}

// EncodeCoverage writes c in the format LoadCoverage reads
func EncodeCoverage(w io.Writer, c cells.Collection) error {
	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := encoder.Write(cells.Encode(c, binary.BigEndian)); err != nil {
		encoder.Close()
		return err
	}
	return encoder.Close()
}
