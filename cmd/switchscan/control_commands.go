package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"switchscan/internal/ipc"
	"switchscan/internal/messenger"
)

func newControlCommands(ctx *commandContext) []*cobra.Command {
	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show app, listener, dependency, and preflight status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ctx.configValue()
			var appStatus *messenger.Status
			err := ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				appStatus = &resp.Status
				return nil
			})
			if err != nil && !errors.Is(err, errAppNotRunning) {
				return err
			}
			now := time.Now()
			if statusJSON {
				return writeJSON(cmd, buildStatusReport(cfg, appStatus, now))
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			for _, line := range renderSectionHeader("App", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range appStatusLines(appStatus, now, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Background", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range backgroundLines(cfg, now, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(checkDependencies(cfg), colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range preflightLines(checkPreflight(cfg), colorize) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the status as JSON")

	var threadsJSON bool
	threadsCmd := &cobra.Command{
		Use:   "threads",
		Short: "List channels and direct messages in channel list order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Threads()
				if err != nil {
					return err
				}
				if threadsJSON {
					return writeJSON(cmd, resp.Threads)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Threads) == 0 {
					fmt.Fprintln(stdout, "No threads loaded")
					return nil
				}
				fmt.Fprint(stdout, renderThreads(resp.Threads, time.Now()))
				return nil
			})
		},
	}
	threadsCmd.Flags().BoolVar(&threadsJSON, "json", false, "Print threads as JSON")

	sayCmd := &cobra.Command{
		Use:   "say <text>",
		Short: "Narrate text through the running app",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.New("text is required")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Say(text); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Narration queued")
				return nil
			})
		},
	}

	haltCmd := &cobra.Command{
		Use:   "halt",
		Short: "Stop narration and drop pending speech",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Halt(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Speech halted")
				return nil
			})
		},
	}

	signalCmd := &cobra.Command{
		Use:   "signal <action>",
		Short: "Inject a switch action (advance-short, advance-long, activate-short, activate-long)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := strings.TrimSpace(args[0])
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Signal(action)
				if err != nil {
					return err
				}
				if !resp.Accepted {
					fmt.Fprintf(cmd.OutOrStdout(), "Action %s dropped\n", action)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Action %s accepted\n", action)
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running app",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stdout := cmd.OutOrStdout()
			err := ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if !resp.Stopped {
					fmt.Fprintln(stdout, "Stop request sent")
					return nil
				}
				fmt.Fprintln(stdout, "App stopping")
				return nil
			})
			if errors.Is(err, errAppNotRunning) {
				fmt.Fprintln(stdout, "App is not running")
				return nil
			}
			return err
		},
	}

	return []*cobra.Command{statusCmd, threadsCmd, sayCmd, haltCmd, signalCmd, stopCmd}
}
