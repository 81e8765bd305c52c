package cli

import (
	"github.com/spf13/cobra"
)

func newRunCmd(e *env) *cobra.Command {
	var send bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run both check scripts once, analyze the results and optionally mail them",
		RunE: func(cmd *cobra.Command, args []string) error {
			closeLog, err := e.withRunLog(cmd)
			if err != nil {
				return writeFailure(cmd, e.format, "run", err)
			}
			defer closeLog()

			p := newPipeline(e.cfg, e.fs, e.log)
			res, err := p.execute(cmd.Context(), send || e.cfg.Settings.AutoSendEmail)
			if err != nil {
				e.log.Error().Err(err).Msg("run failed")
				return writeFailure(cmd, e.format, "run", err)
			}
			return writeSuccess(cmd, e.format, "run", res)
		},
	}

	cmd.Flags().BoolVar(&send, "send", false, "Mail the report even if settings.auto_send_email is off")
	return cmd
}
