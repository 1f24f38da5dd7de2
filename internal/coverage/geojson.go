package coverage

import (
	"fmt"

	geojson "github.com/paulmach/go.geojson"
	"github.com/twpayne/go-geom"
)

// GeoJSONRegions converts the polygons of a GeoJSON geometry into regions.
// Holes are ignored, a region is the outer ring of each polygon.
func GeoJSONRegions(g *geojson.Geometry) ([]LoopRegion, error) {
	var polygons [][][][]float64
	switch g.Type {
	case geojson.GeometryPolygon:
		polygons = [][][][]float64{g.Polygon}
	case geojson.GeometryMultiPolygon:
		polygons = g.MultiPolygon
	default:
		return nil, fmt.Errorf("unsupported geometry type %s", g.Type)
	}

	regions := make([]LoopRegion, 0, len(polygons))
	for _, rings := range polygons {
		coords := make([][]geom.Coord, len(rings))
		for i, ring := range rings {
			coords[i] = make([]geom.Coord, len(ring))
			for j, position := range ring {
				if len(position) < 2 {
					return nil, fmt.Errorf("invalid position %v", position)
				}
				coords[i][j] = geom.Coord{position[0], position[1]}
			}
		}
		p, err := geom.NewPolygon(geom.XY).SetCoords(coords)
		if err != nil {
			return nil, err
		}
		region, err := PolygonRegion(p)
		if err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}
	return regions, nil
}
