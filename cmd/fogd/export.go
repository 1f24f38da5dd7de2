package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/jengzang/fog-backend-go/internal/cells"
	"github.com/jengzang/fog-backend-go/internal/contour"
	"github.com/jengzang/fog-backend-go/internal/convert"
	"github.com/jengzang/fog-backend-go/internal/coverage"
	"github.com/jengzang/fog-backend-go/internal/service"
	"github.com/spf13/cobra"
)

func newExportCommand(c *cli) *cobra.Command {
	var (
		output string
		asJSON bool
		level  int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every discovered cell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			w := bufio.NewWriter(f)

			if asJSON {
				if level < 0 || level > cells.DetailedLevel {
					return fmt.Errorf("%w: %d", coverage.ErrInvalidLevel, level)
				}
				found, err := a.store.Query(ctx, cells.World(), level)
				if err != nil {
					return err
				}
				rings, err := contour.Rings(ctx, found, level)
				if err != nil {
					return err
				}
				err = convert.ExportGeoJSON(w, rings)
				if err != nil {
					return err
				}
			} else {
				discovery := service.NewDiscoveryService(a.store, c.cfg.CoverSlack, c.cfg.DistanceThreshold)
				if err := discovery.Export(ctx, w); err != nil {
					return err
				}
			}

			if err := w.Flush(); err != nil {
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "fog.cells.zst", "output file")
	cmd.Flags().BoolVar(&asJSON, "geojson", false, "write outlines as GeoJSON instead of cells")
	cmd.Flags().IntVar(&level, "level", cells.CoarseLevel, "grid level of GeoJSON outlines")
	return cmd
}
