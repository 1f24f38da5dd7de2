package convert

import (
	"io"

	"github.com/jengzang/fog-backend-go/internal/contour"
)

// ExportGeoJSON writes rings as a GeoJSON FeatureCollection of polygons
func ExportGeoJSON(w io.Writer, rings []contour.Ring) error {
	data, err := contour.FeatureCollection(rings).MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
