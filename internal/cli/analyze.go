package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/luckyjian/dgwatch/internal/analysis"
	"github.com/luckyjian/dgwatch/internal/compose"
)

var findingHeader = []string{"Rule", "Severity", "Message"}

// findingRows lists the alert findings, or a single normal row when none
// fired.
func findingRows(rep *analysis.Report) [][]string {
	if rep == nil {
		return nil
	}
	if len(rep.Assessment.Findings) == 0 {
		return [][]string{{"-", rep.Overall().String(), rep.Overall().Headline()}}
	}
	rows := make([][]string, 0, len(rep.Assessment.Findings))
	for _, f := range rep.Assessment.Findings {
		rows = append(rows, []string{f.Rule, f.Severity.String(), f.Message})
	}
	return rows
}

// AnalyzeResult is the payload of the analyze command.
type AnalyzeResult struct {
	Report *analysis.Report `json:"report" yaml:"report"`
	Text   string           `json:"text"   yaml:"text"`
}

// Header implements output.Tabular.
func (a *AnalyzeResult) Header() []string { return findingHeader }

// Rows implements output.Tabular.
func (a *AnalyzeResult) Rows() [][]string { return findingRows(a.Report) }

func newAnalyzeCmd(e *env) *cobra.Command {
	var (
		standbyPath string
		dailyPath   string
		reportPath  string
		textOnly    bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze captured script output and the HTML report without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			standby, err := readOptional(e.fs, standbyPath)
			if err != nil {
				return writeFailure(cmd, e.format, "analyze", err)
			}
			daily, err := readOptional(e.fs, dailyPath)
			if err != nil {
				return writeFailure(cmd, e.format, "analyze", err)
			}
			if reportPath == "" {
				reportPath = e.cfg.Paths.ReportPath
			}

			in := analysis.LoadInput(e.fs, reportPath, standby, daily)
			rep := analysis.Analyze(in, analysisOptions(e.cfg))
			text := compose.Text(rep)
			e.log.Debug().Stringer("overall", rep.Overall()).Str("report", reportPath).Msg("analysis complete")

			if textOnly {
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			return writeSuccess(cmd, e.format, "analyze", &AnalyzeResult{Report: rep, Text: text})
		},
	}

	cmd.Flags().StringVar(&standbyPath, "standby-output", "", "File with the captured standby check output")
	cmd.Flags().StringVar(&dailyPath, "daily-output", "", "File with the captured daily report output")
	cmd.Flags().StringVar(&reportPath, "report", "", "HTML report path (default paths.report_path)")
	cmd.Flags().BoolVar(&textOnly, "text", false, "Print the composed text report instead of the envelope")
	return cmd
}

// readOptional returns the contents of path, or "" when path is empty.
func readOptional(fsys afero.Fs, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}
