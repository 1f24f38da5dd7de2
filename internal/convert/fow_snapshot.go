package convert

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"
)

// FormatFogOfWorldSnapshot is a zip archive holding sync tiles under Model/
const FormatFogOfWorldSnapshot = "fow-snapshot"

// snapshotPattern matches the tile entries of an archive
const snapshotPattern = "Model/*/*"

// FogOfWorldSnapshot reads the sync tiles of a snapshot archive
type FogOfWorldSnapshot struct {
	path     string
	level    int
	progress *progress.Progress
}

// NewFogOfWorldSnapshot creates a converter for the archive at path
func NewFogOfWorldSnapshot(path string, opts Options) (Converter, error) {
	return &FogOfWorldSnapshot{path: path, level: opts.Level, progress: progress.New(0)}, nil
}

// Progress implements Converter
func (c *FogOfWorldSnapshot) Progress() *progress.Progress {
	return c.progress
}

// Convert implements Converter. Entries are extracted one by one, then
// decoded in parallel.
func (c *FogOfWorldSnapshot) Convert(ctx context.Context) (cells.Collection, error) {
	archive, err := zip.OpenReader(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer archive.Close()

	var entries []*zip.File
	for _, f := range archive.File {
		if ok, _ := path.Match(snapshotPattern, f.Name); ok && !f.FileInfo().IsDir() {
			entries = append(entries, f)
		}
	}
	// extract + decode
	c.progress.SetTotal(int64(len(entries) * 2))

	contents := make([][]byte, len(entries))
	for i, f := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if contents[i], err = readZipEntry(f); err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		c.progress.Add(1)
	}

	results := make([]*cells.Builder, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range entries {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := decodeSyncTile(contents[i], path.Base(f.Name), c.level)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
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

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func init() {
	RegisterConverter(FormatFogOfWorldSnapshot, NewFogOfWorldSnapshot)
}
