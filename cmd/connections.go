// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"querypipe/cli/internal/backend"
	"querypipe/cli/internal/engine"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// connectionsCmd shows every configured connection with its password masked
// and whether it can currently be reached.
var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "List configured database connections",
	Long: `The connections command displays each configured connection string (DSN) with
the password masked, and attempts to reach every backend to report its status.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ctx, err := loadSetup()
		if err != nil {
			return err
		}
		src, err := passwordSource(cfg)
		if err != nil {
			return err
		}
		descs, err := cfg.Descriptors(src)
		if err != nil {
			return err
		}
		if len(descs) == 0 {
			pterm.Println("⚠️  No connections configured")
			pterm.Println("   Add a connections block to " + configPath)
			return nil
		}

		reg := engine.NewRegistry(backend.NewPostgresClient())
		defer reg.Close()
		reg.Reconcile(ctx, descs)
		reachable := reg.Names()

		table := pterm.TableData{{"Name", "DSN", "Status"}}
		for _, d := range descs {
			status := pterm.NewStyle(pterm.FgGreen).Sprint("connected")
			if !lo.Contains(reachable, d.Name) {
				status = pterm.NewStyle(pterm.FgRed).Sprint("unreachable")
			}
			table = append(table, []string{d.Name, d.Redacted(), status})
		}

		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Database Connections")).
			WithPadding(1).
			Println(configPath)
		return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	},
}

func init() {
	rootCmd.AddCommand(connectionsCmd)
}
