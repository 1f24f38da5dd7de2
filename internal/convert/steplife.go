package convert

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/jengzang/fog-backend-go/internal/spatial"
)

// FormatStepLife is the CSV backup of the StepLife tracker
const FormatStepLife = "steplife"

// cancelCheckInterval is the number of records read between context checks
const cancelCheckInterval = 1024

// StepLifeBackup reads a StepLife CSV backup. Column 2 holds the longitude
// and column 3 the latitude; a line without them breaks the track.
type StepLifeBackup struct {
	path     string
	opts     Options
	progress *progress.Progress
}

// NewStepLifeBackup creates a converter for the file at path
func NewStepLifeBackup(path string, opts Options) (Converter, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &StepLifeBackup{path: path, opts: opts, progress: progress.New(info.Size())}, nil
}

// Progress implements Converter
func (c *StepLifeBackup) Progress() *progress.Progress {
	return c.progress
}

// Convert implements Converter
func (c *StepLifeBackup) Convert(ctx context.Context) (cells.Collection, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stride := spatial.NewStride(c.opts.Level, c.opts.Threshold)
	scanner := bufio.NewScanner(f)
	var read int64
	for line := 0; scanner.Scan(); line++ {
		if line%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c.progress.SetCompleted(read)
		}
		text := scanner.Text()
		read += int64(len(text)) + 1

		if lat, lng, ok := stepLifeCoordinate(text); ok {
			stride.Add(lat, lng)
		} else {
			stride.Break()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read steplife backup: %w", err)
	}

	c.progress.Finish()
	return stride.Collection(), nil
}

func stepLifeCoordinate(line string) (lat, lng float64, ok bool) {
	columns := strings.Split(line, ",")
	if len(columns) <= 3 {
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(columns[2]), 64)
	if err != nil {
		return 0, 0, false
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(columns[3]), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

func init() {
	RegisterConverter(FormatStepLife, NewStepLifeBackup)
}
