package tessellation

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/jengzang/fog-backend-go/internal/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	indexCell  = s2.CellIDFromLatLng(s2.LatLngFromDegrees(22.3, 114.2)).Parent(IndexLevel)
	country    = region.MustParse("AA")
	subdivided = region.MustParse("AA-01")
)

func encodeCoverage(t *testing.T, c cells.Collection) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, EncodeCoverage(&buf, c))
	return buf.Bytes()
}

// testResources covers the first child of indexCell with AA and the second
// with AA-01, the rest of the index cell is ocean.
func testResources(t *testing.T) fstest.MapFS {
	t.Helper()
	children := indexCell.Children()
	index, err := json.Marshal(map[string][]region.Code{
		indexCell.ToToken(): {subdivided, country},
	})
	require.NoError(t, err)

	return fstest.MapFS{
		IndexFile:                    {Data: index},
		"covers/AA" + CoverSuffix:    {Data: encodeCoverage(t, cells.New(children[0]))},
		"covers/AA-01" + CoverSuffix: {Data: encodeCoverage(t, cells.New(children[1]))},
	}
}

func sample() cells.Collection {
	var ids []s2.CellID
	for _, child := range indexCell.Children() {
		ids = append(ids, child.ChildBeginAtLevel(12), child.ChildEndAtLevel(12).Prev())
	}
	ids = append(ids, s2.CellIDFromLatLng(s2.LatLngFromDegrees(-40, -120)).Parent(14))
	return cells.New(ids...)
}

func TestGroupPartitionsInput(t *testing.T) {
	tess, err := New(testResources(t))
	require.NoError(t, err)

	input := sample()
	p := progress.New(0)
	groups, err := tess.Group(context.Background(), input, p)
	require.NoError(t, err)

	require.Len(t, groups, 3)
	assert.Len(t, groups[country], 2)
	assert.Len(t, groups[subdivided], 2)
	assert.Len(t, groups[region.Ocean], 5)

	var union cells.Collection
	for code, group := range groups {
		for other, o := range groups {
			if code != other {
				assert.Empty(t, group.Intersection(o))
			}
		}
		union = union.Union(group)
	}
	assert.True(t, union.Equal(input))
	assert.Equal(t, 1.0, p.Fraction())
}

func TestGroupSplitsCoarseInput(t *testing.T) {
	tess, err := New(testResources(t))
	require.NoError(t, err)

	coarse := indexCell.Parent(3)
	groups, err := tess.Group(context.Background(), cells.New(coarse), nil)
	require.NoError(t, err)

	assert.Equal(t, cells.New(indexCell.Children()[0]), groups[country])
	var total float64
	for _, group := range groups {
		total += group.Area()
	}
	assert.InEpsilon(t, cells.CellArea(coarse), total, 1e-9)
}

func TestGroupMissingCoverage(t *testing.T) {
	resources := testResources(t)
	delete(resources, "covers/AA"+CoverSuffix)

	tess, err := New(resources)
	require.NoError(t, err)

	_, err = tess.Group(context.Background(), sample(), nil)
	assert.ErrorIs(t, err, ErrResourceMissing)
}

func TestMalformedCoverage(t *testing.T) {
	resources := testResources(t)
	resources["covers/AA"+CoverSuffix] = &fstest.MapFile{Data: []byte("not zstd")}

	_, err := LoadCoverage(resources, country)
	assert.ErrorIs(t, err, ErrMalformedResource)
}

func TestMissingIndex(t *testing.T) {
	_, err := New(fstest.MapFS{})
	assert.ErrorIs(t, err, ErrResourceMissing)
}

func TestGroupIsSafeForConcurrentUse(t *testing.T) {
	cache, err := NewCache(CachePolicy{CountLimit: 1})
	require.NoError(t, err)
	tess, err := New(testResources(t), WithCache(cache))
	require.NoError(t, err)

	want, err := tess.Group(context.Background(), sample(), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := tess.Group(context.Background(), sample(), nil)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, cache.Len())
}

func TestCacheSizeLimit(t *testing.T) {
	cache, err := NewCache(CachePolicy{SizeLimit: 20})
	require.NoError(t, err)

	children := indexCell.Children()
	a := cells.New(children[0], children[1])
	b := cells.New(children[2])
	cache.Add(country, a)
	cache.Add(subdivided, b)

	_, ok := cache.Get(country)
	assert.False(t, ok)
	_, ok = cache.Get(subdivided)
	assert.True(t, ok)
	assert.Equal(t, int64(8), cache.Size())

	// a single oversized entry is still kept
	cache.Add(region.Ocean, cells.New(children[:]...))
	assert.Equal(t, 1, cache.Len())
}
