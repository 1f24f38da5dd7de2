package convert

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/jengzang/fog-backend-go/internal/spatial"
)

// FormatGPX is the GPS Exchange Format
const FormatGPX = "gpx"

// GPSExchange reads track and way points of a GPX file
type GPSExchange struct {
	path     string
	opts     Options
	progress *progress.Progress
}

// NewGPSExchange creates a converter for the file at path
func NewGPSExchange(path string, opts Options) (Converter, error) {
	return &GPSExchange{path: path, opts: opts, progress: progress.New(1)}, nil
}

// Progress implements Converter
func (c *GPSExchange) Progress() *progress.Progress {
	return c.progress
}

// Convert implements Converter
func (c *GPSExchange) Convert(ctx context.Context) (cells.Collection, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result, err := parseGPX(ctx, f, c.opts)
	if err != nil {
		return nil, err
	}
	c.progress.Finish()
	return result, nil
}

// parseGPX strides over trkpt and wpt elements. A route point or the end of
// a track segment breaks the track.
func parseGPX(ctx context.Context, r io.Reader, opts Options) (cells.Collection, error) {
	stride := spatial.NewStride(opts.Level, opts.Threshold)
	decoder := xml.NewDecoder(r)
	for count := 0; ; count++ {
		if count%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse gpx: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local != "trkpt" && t.Name.Local != "wpt" {
				continue
			}
			lat, lng, ok := gpxCoordinate(t.Attr)
			if !ok {
				stride.Break()
				continue
			}
			stride.Add(lat, lng)
		case xml.EndElement:
			if t.Name.Local == "rtept" || t.Name.Local == "trkseg" {
				stride.Break()
			}
		}
	}
	return stride.Collection(), nil
}

func gpxCoordinate(attrs []xml.Attr) (lat, lng float64, ok bool) {
	var hasLat, hasLng bool
	for _, attr := range attrs {
		var err error
		switch attr.Name.Local {
		case "lat":
			lat, err = strconv.ParseFloat(attr.Value, 64)
			hasLat = err == nil
		case "lon":
			lng, err = strconv.ParseFloat(attr.Value, 64)
			hasLng = err == nil
		}
	}
	return lat, lng, hasLat && hasLng
}

func init() {
	RegisterConverter(FormatGPX, NewGPSExchange)
}
