package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"switchscan/internal/daemonrun"
	"switchscan/internal/listener"
	"switchscan/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var background bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display app or listener logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			role := daemonrun.AppRole
			if background {
				role = listener.Role
			}
			path := logs.CurrentPath(cfg.Paths.LogDir, role)
			out := cmd.OutOrStdout()
			emit := func(line string) {
				if !raw {
					line = logs.FormatLine(line)
				}
				fmt.Fprintln(out, line)
			}

			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return fmt.Errorf("read logs: %w", err)
			}
			for _, line := range tail {
				emit(line)
			}
			if !follow {
				if len(tail) == 0 {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, emit)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of trailing lines to show")
	cmd.Flags().BoolVar(&background, "listener", false, "Show the background listener log")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records unformatted")
	return cmd
}
