package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/jengzang/fog-backend-go/internal/models"
	"github.com/spf13/cobra"
)

func newStatsCommand(c *cli) *cobra.Command {
	var filter models.StatisticFilter
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print region statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.store.Statistics(cmd.Context(), &filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "REGION\tDISCOVERED (m²)\tAREA (m²)\tPROPORTION\tLEVEL\t")
			for _, stat := range stats {
				view := stat.View()
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t\n",
					stat.Code,
					humanize.CommafWithDigits(view.DiscoveredArea, 0),
					humanize.CommafWithDigits(stat.Area, 0),
					humanize.FtoaWithDigits(view.DiscoveredProportion*100, 4)+"%",
					view.DiscoveryLevel,
				)
			}
			return w.Flush()
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&filter.Scope, "scope", models.ScopeAll, "all, countries or subdivisions")
	flags.StringVar(&filter.Country, "country", "", "only subdivisions of this country")
	flags.BoolVar(&filter.Discovered, "discovered", false, "only regions with discovered area")
	flags.BoolVar(&filter.Visible, "visible", false, "only visible regions")
	return cmd
}
