package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/luckyjian/dgwatch/internal/config"
	"github.com/luckyjian/dgwatch/internal/logging"
	"github.com/luckyjian/dgwatch/internal/output"
)

// env is the state shared by every subcommand. It is populated in
// PersistentPreRunE before any subcommand runs.
type env struct {
	cfgFile string
	format  output.Format
	verbose bool

	cfg *config.Config
	fs  afero.Fs
	log zerolog.Logger
}

// NewRootCmd builds and returns the root cobra.Command for the dgwatch CLI.
func NewRootCmd() *cobra.Command {
	e := &env{cfg: &config.Config{}, fs: afero.NewOsFs(), log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "dgwatch",
		Short: "Oracle DataGuard health-report analysis and alerting",
		Long: "dgwatch runs the DataGuard check scripts, analyzes their output and the " +
			"daily HTML report, grades the findings and mails the result.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := output.ParseFormat(string(e.format)); !ok {
				return fmt.Errorf(
					"invalid format %q: must be json, table, or yaml", e.format,
				)
			}
			loaded, err := config.Load(e.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			*e.cfg = *loaded
			e.log = logging.New(cmd.ErrOrStderr(), nil, e.verbose)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&e.cfgFile, "config", "", "Config file path (YAML, TOML or JSON)")
	root.PersistentFlags().StringVar((*string)(&e.format), "format", "json", "Output format: json|table|yaml")
	root.PersistentFlags().BoolVar(&e.verbose, "verbose", false, "Enable verbose logging")

	root.AddCommand(
		newAnalyzeCmd(e),
		newRunCmd(e),
		newDaemonCmd(e),
		newNotifyCmd(e),
		newConfigCmd(e),
		newTrendCmd(e),
	)

	return root
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// withRunLog switches e.log to also append JSON lines to the run log in
// paths.log_dir. The returned func closes the file.
func (e *env) withRunLog(cmd *cobra.Command) (func(), error) {
	f, err := logging.OpenFile(e.cfg.Paths.LogDir)
	if err != nil {
		return nil, err
	}
	e.log = logging.New(cmd.ErrOrStderr(), f, e.verbose)
	return func() { _ = f.Close() }, nil
}

// writeSuccess prints a success envelope for data to stdout.
func writeSuccess(cmd *cobra.Command, format output.Format, command string, data any) error {
	out, err := output.FormatResponse(output.Success(command, data), format)
	if err != nil {
		return writeFailure(cmd, format, command, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// writeFailure prints a failure envelope to stderr and returns err.
func writeFailure(cmd *cobra.Command, format output.Format, command string, err error) error {
	resp := output.Failure(command, err)
	out, fmtErr := output.FormatResponse(resp, format)
	if fmtErr != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), out)
	return err
}
