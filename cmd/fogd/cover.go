package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/coverage"
	"github.com/jengzang/fog-backend-go/internal/region"
	"github.com/jengzang/fog-backend-go/internal/tessellation"
	geojson "github.com/paulmach/go.geojson"
	"github.com/spf13/cobra"
)

func newCoverCommand(c *cli) *cobra.Command {
	var level int
	cmd := &cobra.Command{
		Use:   "cover <code> <boundary.geojson>",
		Short: "Build the coverage resource of a region from its GeoJSON boundary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := region.Parse(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			fc, err := geojson.UnmarshalFeatureCollection(data)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[1], err)
			}

			var covered cells.Collection
			for _, feature := range fc.Features {
				if feature.Geometry == nil {
					continue
				}
				regions, err := coverage.GeoJSONRegions(feature.Geometry)
				if err != nil {
					return err
				}
				for _, r := range regions {
					part, err := coverage.Cover(cmd.Context(), r, level, coverage.WithSlack(c.cfg.CoverSlack))
					if err != nil {
						return err
					}
					covered = covered.Union(part)
				}
			}

			path := filepath.Join(c.cfg.ResourcesDir, "covers", code.String()+tessellation.CoverSuffix)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			w := bufio.NewWriter(f)
			if err := tessellation.EncodeCoverage(w, covered); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s cells, %s km² written to %s\n",
				code, humanize.Comma(int64(len(covered))),
				humanize.CommafWithDigits(covered.Area()/1e6, 1), path)
			return f.Close()
		},
	}
	cmd.Flags().IntVar(&level, "level", cells.CoarseLevel, "finest level of the coverage")
	return cmd
}
