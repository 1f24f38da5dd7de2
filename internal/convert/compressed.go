package convert

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/klauspost/compress/zstd"
)

// FormatCompressed is a zstd stream of big-endian cell ids
const FormatCompressed = "compressed"

// CompressedCells reads the format ExportCompressed writes
type CompressedCells struct {
	path     string
	progress *progress.Progress
}

// NewCompressedCells creates a converter for the file at path
func NewCompressedCells(path string, _ Options) (Converter, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &CompressedCells{path: path, progress: progress.New(info.Size())}, nil
}

// Progress implements Converter
func (c *CompressedCells) Progress() *progress.Progress {
	return c.progress
}

// Convert implements Converter
func (c *CompressedCells) Convert(ctx context.Context) (cells.Collection, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder, err := zstd.NewReader(&countingReader{ctx: ctx, r: f, progress: c.progress})
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed cells: %w", err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress cells: %w", err)
	}
	result, err := cells.Decode(data, binary.BigEndian)
	if err != nil {
		return nil, err
	}
	c.progress.Finish()
	return result, nil
}

// ExportCompressed writes c in the compressed format
func ExportCompressed(w io.Writer, c cells.Collection) error {
	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := encoder.Write(cells.Encode(c, binary.BigEndian)); err != nil {
		encoder.Close()
		return err
	}
	return encoder.Close()
}

// countingReader reports the bytes read and stops when ctx is done
type countingReader struct {
	ctx      context.Context
	r        io.Reader
	progress *progress.Progress
}

func (r *countingReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := r.r.Read(p)
	r.progress.Add(int64(n))
	return n, err
}

func init() {
	RegisterConverter(FormatCompressed, NewCompressedCells)
}
