package main

import (
	"strings"

	"github.com/jengzang/fog-backend-go/internal/config"
	"github.com/jengzang/fog-backend-go/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// cli 命令共享的状态
type cli struct {
	v   *viper.Viper
	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "fogd",
		Short:         "Fog of world discovery backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(c.v, cmd.Flags()); err != nil {
				return err
			}
			c.cfg = config.Load(c.v)
			_, err := logger.Init(c.cfg.Log)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.String("db-path", "", "sqlite database file")
	flags.String("resources-dir", "", "directory holding the region coverage resources")
	flags.Int("workers", 0, "instance cells processed in parallel")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-format", "", "console or json")

	root.AddCommand(
		newServeCommand(c),
		newImportCommand(c),
		newExportCommand(c),
		newRefreshCommand(c),
		newClearCommand(c),
		newStatsCommand(c),
		newCoverCommand(c),
	)
	return root
}

// bindFlags binds every flag to the config key of the same name. Flags the
// user did not set leave the configured value in place.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		}
	})
	return err
}
