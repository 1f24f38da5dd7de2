package contour

import (
	geojson "github.com/paulmach/go.geojson"
)

// Positions returns the ring as GeoJSON positions, longitude first
func (r Ring) Positions() [][]float64 {
	positions := make([][]float64, len(r))
	for i, c := range r {
		positions[i] = []float64{c.Lng, c.Lat}
	}
	return positions
}

// FeatureCollection returns one polygon feature per ring
func FeatureCollection(rings []Ring) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, ring := range rings {
		f := geojson.NewPolygonFeature([][][]float64{ring.Positions()})
		f.SetProperty("index", i)
		fc.AddFeature(f)
	}
	return fc
}

// worldRing spans the whole map, counter-clockwise
var worldRing = [][]float64{{-180, -90}, {180, -90}, {180, 90}, {-180, 90}, {-180, -90}}

// Overlay returns the fog polygon: the world with every ring cut out as a hole
func Overlay(rings []Ring) *geojson.Feature {
	polygon := make([][][]float64, 0, len(rings)+1)
	polygon = append(polygon, worldRing)
	for _, ring := range rings {
		polygon = append(polygon, ring.Positions())
	}
	f := geojson.NewPolygonFeature(polygon)
	f.SetProperty("holes", len(rings))
	return f
}
