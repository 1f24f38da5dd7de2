package coverage

import (
	"testing"

	"github.com/golang/geo/s2"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoJSONRegions(t *testing.T) {
	madrid := [][][]float64{{{-3.8, 40.3}, {-3.6, 40.3}, {-3.6, 40.5}, {-3.8, 40.5}, {-3.8, 40.3}}}
	lisbon := [][][]float64{{{-9.2, 38.7}, {-9.1, 38.7}, {-9.1, 38.8}, {-9.2, 38.8}, {-9.2, 38.7}}}

	regions, err := GeoJSONRegions(geojson.NewMultiPolygonGeometry(madrid, lisbon))
	require.NoError(t, err)
	require.Len(t, regions, 2)

	cell := s2.CellFromCellID(s2.CellIDFromLatLng(s2.LatLngFromDegrees(38.75, -9.15)).Parent(16))
	assert.Equal(t, Disjoint, regions[0].Relation(cell))
	assert.Equal(t, Contain, regions[1].Relation(cell))

	_, err = GeoJSONRegions(geojson.NewPointGeometry([]float64{0, 0}))
	assert.Error(t, err)
}
