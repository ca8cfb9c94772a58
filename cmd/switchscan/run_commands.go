package main

import (
	"github.com/spf13/cobra"

	"switchscan/internal/daemonrun"
)

func newRunCommands(ctx *commandContext) []*cobra.Command {
	var headless bool
	var appLevel string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the switch-driven messenger in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.RunApp(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: appLevel,
				Headless: headless,
			})
		},
	}
	runCmd.Flags().BoolVar(&headless, "headless", false, "Run without a switch device; drive it with `switchscan signal`")
	runCmd.Flags().StringVar(&appLevel, "log-level", "", "Override logging.level for this run")

	var listenLevel string
	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Run the background direct message listener",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.RunListener(cmd.Context(), cfg, daemonrun.Options{LogLevel: listenLevel})
		},
	}
	listenCmd.Flags().StringVar(&listenLevel, "log-level", "", "Override logging.level for this run")

	return []*cobra.Command{runCmd, listenCmd}
}
