// Package convert reads discovered cells from the file formats other
// trackers export, and writes them back out.
package convert

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/jengzang/fog-backend-go/internal/spatial"
)

// ErrUnknownFormat is returned for a format nobody registered
var ErrUnknownFormat = errors.New("unknown import format")

// Converter is the interface every import format implements
type Converter interface {
	// Convert reads the whole source
	Convert(ctx context.Context) (cells.Collection, error)

	// Progress reports how much of the source was read
	Progress() *progress.Progress
}

// Options tune the conversion
type Options struct {
	Level     int     // resolution of the produced cells, defaults to the detailed level
	Threshold float64 // meters, tracks with longer gaps are not joined
	Workers   int     // files decoded at once, defaults to GOMAXPROCS
}

func (o Options) withDefaults() Options {
	if o.Level <= 0 {
		o.Level = cells.DetailedLevel
	}
	if o.Threshold <= 0 {
		o.Threshold = spatial.DefaultStrideThreshold
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// ConverterFactory creates a converter for the file at path
type ConverterFactory func(path string, opts Options) (Converter, error)

// ConverterRegistry maps format names to converter factories
var ConverterRegistry = make(map[string]ConverterFactory)

// RegisterConverter registers a converter factory for a format name
func RegisterConverter(format string, factory ConverterFactory) {
	ConverterRegistry[format] = factory
}

// GetConverter creates a converter of format for path
func GetConverter(format, path string, opts Options) (Converter, error) {
	factory, ok := ConverterRegistry[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return factory(path, opts.withDefaults())
}

// Formats returns the registered format names
func Formats() []string {
	formats := make([]string, 0, len(ConverterRegistry))
	for format := range ConverterRegistry {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}
