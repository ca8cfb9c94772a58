package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"switchscan/internal/input"
)

type deviceRow struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Phys        string `json:"phys,omitempty"`
	Keys        int    `json:"keys"`
	HasAdvance  bool   `json:"has_advance"`
	HasActivate bool   `json:"has_activate"`
	Selected    bool   `json:"selected"`
}

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	var sysRoot string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List input devices and whether they report the switch keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			advance, err := input.ParseKey(cfg.Input.AdvanceKey)
			if err != nil {
				return fmt.Errorf("input.advance_key: %w", err)
			}
			activate, err := input.ParseKey(cfg.Input.ActivateKey)
			if err != nil {
				return fmt.Errorf("input.activate_key: %w", err)
			}
			devices, err := input.List(sysRoot)
			if err != nil {
				return err
			}

			rows := make([]deviceRow, 0, len(devices))
			picked := cfg.Input.Device != ""
			for _, dev := range devices {
				row := deviceRow{
					Path:        dev.Path,
					Name:        dev.Name,
					Phys:        dev.Phys,
					Keys:        dev.KeyCount(),
					HasAdvance:  dev.HasKey(advance),
					HasActivate: dev.HasKey(activate),
				}
				switch {
				case cfg.Input.Device != "":
					row.Selected = cfg.Input.Device == dev.Path
				case !picked && row.HasAdvance && row.HasActivate:
					row.Selected = true
					picked = true
				}
				rows = append(rows, row)
			}
			if asJSON {
				return writeJSON(cmd, rows)
			}

			stdout := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No input devices found")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, row := range rows {
				mark := ""
				if row.Selected {
					mark = "*"
				}
				table = append(table, []string{
					mark,
					row.Path,
					row.Name,
					strconv.Itoa(row.Keys),
					yesNo(row.HasAdvance),
					yesNo(row.HasActivate),
				})
			}
			fmt.Fprint(stdout, renderTable(
				[]string{"", "Device", "Name", "Keys", input.KeyName(advance), input.KeyName(activate)},
				table,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&sysRoot, "sys-root", input.SysClassInput, "Directory listing event devices")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print devices as JSON")
	_ = cmd.Flags().MarkHidden("sys-root")
	return cmd
}
