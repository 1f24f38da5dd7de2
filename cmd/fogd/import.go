package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/jengzang/fog-backend-go/internal/convert"
	"github.com/jengzang/fog-backend-go/internal/logger"
	"github.com/spf13/cobra"
)

func newImportCommand(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Import discovered cells from files",
		Long: "Import discovered cells from files. Formats: " +
			strings.Join(convert.Formats(), ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := convert.Options{Threshold: c.cfg.DistanceThreshold, Workers: c.cfg.Workers}
			for _, path := range args {
				converter, err := convert.GetConverter(format, path, opts)
				if err != nil {
					return err
				}
				converter.Progress().OnChange(logPercent(path))

				found, err := converter.Convert(ctx)
				if err != nil {
					return fmt.Errorf("failed to convert %s: %w", path, err)
				}
				result, err := a.store.InsertFrom(ctx, format, found, nil)
				if err != nil {
					return fmt.Errorf("failed to import %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s cells, %s new cells, %s m² newly discovered\n",
					path,
					humanize.Comma(int64(len(found))),
					humanize.Comma(int64(result.CellCount)),
					humanize.CommafWithDigits(result.Area, 0),
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", convert.FormatCompressed, "input format")
	cmd.Flags().Float64("distance-threshold", 0, "meters beyond which track points are not joined")
	return cmd
}

// logPercent logs every tenth percent of a conversion
func logPercent(name string) func(float64) {
	var mu sync.Mutex
	last := -1
	return func(f float64) {
		mu.Lock()
		defer mu.Unlock()
		if step := int(f * 10); step > last {
			last = step
			logger.S().Infof("[Import] %s %d%%", name, step*10)
		}
	}
}
