package main

import (
	"log/slog"

	"github.com/milk9111/cuedispatch/config"
	"github.com/milk9111/cuedispatch/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "cuetool",
	Short:         "Build, inspect and audition sound cue listings",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := config.New(cfgFile)
		if err != nil {
			return err
		}
		for key, name := range map[string]string{
			"listing":    "listing",
			"log.level":  "log-level",
			"log.format": "log-format",
		} {
			if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
				return err
			}
		}
		cfg, err = config.Decode(v)
		if err != nil {
			return err
		}
		logger, err = logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: cmd.ErrOrStderr()})
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().String("listing", "", "cue listing path")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "text, json or auto")
}
