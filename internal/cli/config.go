package cli

import (
	"github.com/spf13/cobra"

	"github.com/luckyjian/dgwatch/internal/output"
)

// settingsTable is the redacted configuration as key/value rows.
type settingsTable [][2]string

// Header implements output.Tabular.
func (s settingsTable) Header() []string { return []string{"Setting", "Value"} }

// Rows implements output.Tabular.
func (s settingsTable) Rows() [][]string {
	rows := make([][]string, 0, len(s))
	for _, kv := range s {
		rows = append(rows, []string{kv[0], kv[1]})
	}
	return rows
}

// asMap is the envelope form used by the json and yaml formats.
func (s settingsTable) asMap() map[string]string {
	m := make(map[string]string, len(s))
	for _, kv := range s {
		m[kv[0]] = kv[1]
	}
	return m
}

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newConfigShowCmd(e))
	return cmd
}

func newConfigShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			table := settingsTable(e.cfg.Redacted())
			var data any = table.asMap()
			if e.format == output.FormatTable {
				data = table
			}
			return writeSuccess(cmd, e.format, "config show", data)
		},
	}
}
