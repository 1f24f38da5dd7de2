package convert

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/jengzang/fog-backend-go/internal/spatial"
)

// FormatKML is the Keyhole Markup Language
const FormatKML = "kml"

// KeyholeMarkupLanguage reads the coordinates elements of a KML file
type KeyholeMarkupLanguage struct {
	path     string
	opts     Options
	progress *progress.Progress
}

// NewKeyholeMarkupLanguage creates a converter for the file at path
func NewKeyholeMarkupLanguage(path string, opts Options) (Converter, error) {
	return &KeyholeMarkupLanguage{path: path, opts: opts, progress: progress.New(1)}, nil
}

// Progress implements Converter
func (c *KeyholeMarkupLanguage) Progress() *progress.Progress {
	return c.progress
}

// Convert implements Converter
func (c *KeyholeMarkupLanguage) Convert(ctx context.Context) (cells.Collection, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result, err := parseKML(ctx, f, c.opts)
	if err != nil {
		return nil, err
	}
	c.progress.Finish()
	return result, nil
}

// parseKML strides over the "lon,lat[,alt]" tuples of every coordinates
// element. Each element is a track of its own.
func parseKML(ctx context.Context, r io.Reader, opts Options) (cells.Collection, error) {
	stride := spatial.NewStride(opts.Level, opts.Threshold)
	decoder := xml.NewDecoder(r)

	var content *strings.Builder
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
			return nil, fmt.Errorf("failed to parse kml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "coordinates" {
				content = &strings.Builder{}
			}
		case xml.CharData:
			if content != nil {
				content.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "coordinates" && content != nil {
				for _, tuple := range strings.Fields(content.String()) {
					if lat, lng, ok := kmlCoordinate(tuple); ok {
						stride.Add(lat, lng)
					}
				}
				content = nil
				stride.Break()
			}
		}
	}
	return stride.Collection(), nil
}

func kmlCoordinate(tuple string) (lat, lng float64, ok bool) {
	parts := strings.Split(tuple, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	lat, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

func init() {
	RegisterConverter(FormatKML, NewKeyholeMarkupLanguage)
}
