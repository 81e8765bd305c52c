package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luckyjian/dgwatch/internal/compose"
	"github.com/luckyjian/dgwatch/internal/history"
	"github.com/luckyjian/dgwatch/internal/logging"
)

// TrendResult is the payload of the trend command.
type TrendResult struct {
	Log       string            `json:"log"       yaml:"log"`
	Trend     history.Trend     `json:"trend"     yaml:"trend"`
	Stability history.Stability `json:"stability" yaml:"stability"`
	Lines     []string          `json:"lines"     yaml:"lines"`
}

// Header implements output.Tabular.
func (t *TrendResult) Header() []string { return []string{"Trend"} }

// Rows implements output.Tabular.
func (t *TrendResult) Rows() [][]string {
	rows := make([][]string, 0, len(t.Lines))
	for _, l := range t.Lines {
		rows = append(rows, []string{l})
	}
	return rows
}

func newTrendCmd(e *env) *cobra.Command {
	var (
		lines    int
		textOnly bool
	)

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Summarize error trends from the tail of the run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := logging.Path(e.cfg.Paths.LogDir)
			trend, err := history.FromLog(e.fs, path, lines)
			if err != nil {
				if errors.Is(err, history.ErrNoLog) {
					err = fmt.Errorf("no run history yet: %w", err)
				}
				return writeFailure(cmd, e.format, "trend", err)
			}
			res := &TrendResult{
				Log:       path,
				Trend:     trend,
				Stability: trend.Stability(),
				Lines:     compose.TrendLines(trend),
			}
			if textOnly {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(res.Lines, "\n"))
				return nil
			}
			return writeSuccess(cmd, e.format, "trend", res)
		},
	}

	cmd.Flags().IntVar(&lines, "lines", history.DefaultTailLines, "Number of trailing run-log lines to analyze")
	cmd.Flags().BoolVar(&textOnly, "text", false, "Print the trend lines only")
	return cmd
}
