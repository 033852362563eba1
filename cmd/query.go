// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"querypipe/cli/internal/backend"
	"querypipe/cli/internal/engine"
	"querypipe/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	queryParams    []string
	queryRawParams []string
	queryTimeout   time.Duration
)

// queryCmd runs one SQL statement against a configured connection and renders
// the rows as a table.
var queryCmd = &cobra.Command{
	Use:   "query <connection> <sql>",
	Short: "Run a SQL statement against a configured connection",
	Long: `The query command submits a SQL statement to the named connection and waits
for the result. Placeholders of the form @name@ are filled from --param flags,
with values escaped and quoted; --raw-param substitutes verbatim.

Example:
  querypipe query main "SELECT * FROM accounts WHERE name=@name@" --param name=bob`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		connName, text := args[0], args[1]

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

		q := engine.NewQuery(text)
		for _, p := range queryParams {
			name, value, err := splitParam(p)
			if err != nil {
				return err
			}
			q = q.SetValue(name, value)
		}
		for _, p := range queryRawParams {
			name, value, err := splitParam(p)
			if err != nil {
				return err
			}
			q = q.SetRaw(name, value)
		}

		reg := engine.NewRegistry(backend.NewPostgresClient())
		defer reg.Close()
		reg.Reconcile(ctx, descs)
		if _, ok := reg.Connection(connName); !ok {
			return fmt.Errorf("connection %q is not configured or could not be reached", connName)
		}
		reg.Start(ctx)

		cb := &captureCallback{}
		if err := reg.Submit(connName, q, cb); err != nil {
			return err
		}

		deadline := time.After(queryTimeout)
		for cb.result == nil {
			select {
			case <-reg.Notify():
				reg.Drain()
			case <-deadline:
				return fmt.Errorf("query timed out after %s", queryTimeout)
			}
		}
		return renderResult(cb.result)
	},
}

// captureCallback keeps the first delivered result; both outcomes land in the
// same field, renderResult tells them apart.
type captureCallback struct {
	result *engine.Result
}

func (c *captureCallback) OnResult(r *engine.Result) { c.result = r }
func (c *captureCallback) OnError(r *engine.Result)  { c.result = r }

func renderResult(res *engine.Result) error {
	if !res.OK() {
		// backend diagnostics can embed the connection string
		masked := logging.Mask(res.ErrorText())
		pterm.Printf("❌ Query failed\n")
		pterm.Println("   " + masked)
		return errors.New(masked)
	}

	if id := res.InsertID(); id != 0 {
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Insert id: ") + pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprintf("%d", id))
	}
	if res.RowCount() == 0 {
		pterm.Println("(no rows)")
		return nil
	}

	cols := res.Columns()
	table := pterm.TableData{cols}
	for i := 0; i < res.RowCount(); i++ {
		row := make([]string, len(cols))
		for j, col := range cols {
			v, err := res.Get(i, col)
			if err != nil {
				v = ""
			}
			row[j] = v
		}
		table = append(table, row)
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(table).Render(); err != nil {
		return err
	}
	pterm.Printf("%d row(s)\n", res.RowCount())
	return nil
}

func splitParam(p string) (string, string, error) {
	name, value, ok := strings.Cut(p, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid parameter %q, expected name=value", p)
	}
	return name, value, nil
}

func init() {
	queryCmd.Flags().StringArrayVar(&queryParams, "param", nil, "Escaped parameter as name=value (repeatable)")
	queryCmd.Flags().StringArrayVar(&queryRawParams, "raw-param", nil, "Verbatim parameter as name=value (repeatable)")
	queryCmd.Flags().DurationVar(&queryTimeout, "timeout", 30*time.Second, "How long to wait for the result")
	rootCmd.AddCommand(queryCmd)
}
