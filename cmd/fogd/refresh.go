package main

import (
	"github.com/jengzang/fog-backend-go/internal/logger"
	"github.com/jengzang/fog-backend-go/internal/progress"
	"github.com/spf13/cobra"
)

func newRefreshCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild every region statistic from the stored cells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			p := progress.New(1)
			p.OnChange(logPercent("refresh"))
			if err := a.store.RefreshStatistics(ctx, p); err != nil {
				return err
			}
			logger.S().Infof("[Refresh] statistics rebuilt")
			return nil
		},
	}
}
