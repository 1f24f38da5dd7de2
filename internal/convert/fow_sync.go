package convert

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/klauspost/compress/flate"
	"golang.org/x/sync/errgroup"
)

// FormatFogOfWorldSync is a directory of, or a single, sync tile file
const FormatFogOfWorldSync = "fow-sync"

// Sync tile errors
var (
	ErrInvalidFileName   = errors.New("invalid sync file name")
	ErrIncorrectHeader   = errors.New("sync file does not start with the zlib header")
	ErrIncorrectDataSize = errors.New("sync data is shorter than its label section")
	ErrBlockOverflow     = errors.New("sync label points past the end of the data")
)

// A tile covers 128x128 blocks of 64x64 units on a 512x512 tile Mercator grid
const (
	syncTileAxis   = 512
	syncBlockAxis  = 128
	syncUnitAxis   = 64
	syncLabelSize  = syncBlockAxis * syncBlockAxis * 2
	syncMatrixSize = syncUnitAxis * syncUnitAxis / 8
	syncBlockSize  = syncMatrixSize + 3

	syncMercatorAxis = syncTileAxis * syncBlockAxis * syncUnitAxis
)

// syncDigits maps the characters of a tile file name to the decimal digits
const syncDigits = "olhwjsktri"

var syncHeader = []byte{0x78, 0x5E}

// FogOfWorldSyncs reads sync tile files
type FogOfWorldSyncs struct {
	paths    []string
	level    int
	workers  int
	progress *progress.Progress
}

// NewFogOfWorldSyncs creates a converter for a tile file or a directory of them
func NewFogOfWorldSyncs(path string, opts Options) (Converter, error) {
	opts = opts.withDefaults()
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	paths := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		paths = paths[:0]
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			paths = append(paths, filepath.Join(path, entry.Name()))
		}
	}

	return &FogOfWorldSyncs{
		paths:    paths,
		level:    opts.Level,
		workers:  opts.Workers,
		progress: progress.New(int64(len(paths))),
	}, nil
}

// Progress implements Converter
func (c *FogOfWorldSyncs) Progress() *progress.Progress {
	return c.progress
}

// Convert implements Converter. Tiles are decoded in parallel, at most
// workers at a time.
func (c *FogOfWorldSyncs) Convert(ctx context.Context) (cells.Collection, error) {
	results := make([]*cells.Builder, len(c.paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, path := range c.paths {
		i, path := i, path
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			b, err := decodeSyncTile(data, filepath.Base(path), c.level)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			results[i] = b
			c.progress.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := cells.NewBuilder()
	for _, b := range results {
		merged.Merge(b)
	}
	return merged.Collection(), nil
}

// syncTileOrigin returns the unit coordinate of the upper left corner of the
// tile named name. The tile id is spelled between the first four and the
// last two characters.
func syncTileOrigin(name string) (x, y int, err error) {
	if len(name) <= 6 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	id := 0
	for _, ch := range name[4 : len(name)-2] {
		digit := strings.IndexRune(syncDigits, ch)
		if digit < 0 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidFileName, name)
		}
		id = id*10 + digit
	}
	tileY, tileX := id/syncTileAxis, id%syncTileAxis
	if tileY >= syncTileAxis {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	return tileX * syncBlockAxis * syncUnitAxis, tileY * syncBlockAxis * syncUnitAxis, nil
}

// decodeSyncTile decodes one zlib compressed tile file
func decodeSyncTile(data []byte, name string, level int) (*cells.Builder, error) {
	originX, originY, err := syncTileOrigin(name)
	if err != nil {
		return nil, err
	}
	if len(data) <= len(syncHeader) || !bytes.HasPrefix(data, syncHeader) {
		return nil, ErrIncorrectHeader
	}

	// The stream after the header is raw deflate, the checksum trailer is ignored
	reader := flate.NewReader(bytes.NewReader(data[len(syncHeader):]))
	defer reader.Close()
	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to inflate sync tile: %w", err)
	}

	return decodeSyncPayload(payload, originX, originY, level)
}

func decodeSyncPayload(data []byte, originX, originY, level int) (*cells.Builder, error) {
	if len(data) < syncLabelSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrIncorrectDataSize, len(data))
	}

	b := cells.NewBuilder()
	for index := 0; index < syncBlockAxis*syncBlockAxis; index++ {
		label := int(binary.LittleEndian.Uint16(data[index*2:]))
		if label == 0 {
			continue
		}
		offset := syncLabelSize + (label-1)*syncBlockSize
		if len(data) < offset+syncBlockSize {
			return nil, fmt.Errorf("%w: block %d", ErrBlockOverflow, label)
		}

		blockX := originX + index%syncBlockAxis*syncUnitAxis
		blockY := originY + index/syncBlockAxis*syncUnitAxis
		for byteIndex, value := range data[offset : offset+syncMatrixSize] {
			if value == 0 {
				continue
			}
			for bit := 0; bit < 8; bit++ {
				if value&(1<<bit) == 0 {
					continue
				}
				unit := byteIndex*8 + 7 - bit
				b.Add(s2.CellIDFromLatLng(syncUnitCenter(blockX+unit%syncUnitAxis, blockY+unit/syncUnitAxis)).Parent(level))
			}
		}
	}
	return b, nil
}

// syncUnitCenter inverts the Web Mercator projection at the center of a unit
func syncUnitCenter(x, y int) s2.LatLng {
	lat := math.Atan(math.Sinh(math.Pi-(float64(y)+0.5)/syncMercatorAxis*2*math.Pi)) * 180 / math.Pi
	lng := (float64(x)+0.5)/syncMercatorAxis*360 - 180
	return s2.LatLngFromDegrees(lat, lng)
}

func init() {
	RegisterConverter(FormatFogOfWorldSync, NewFogOfWorldSyncs)
}
