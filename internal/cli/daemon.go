package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/luckyjian/dgwatch/internal/config"
	"github.com/luckyjian/dgwatch/internal/schedule"
)

const stopTimeout = 30 * time.Second

func newDaemonCmd(e *env) *cobra.Command {
	var send bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the check every day at settings.run_hour:run_minute",
		Long: "daemon keeps running and executes the full check once a day. When started " +
			"after today's run time it runs immediately. Changes to the config file " +
			"move the schedule without a restart.",
		RunE: func(cmd *cobra.Command, args []string) error {
			closeLog, err := e.withRunLog(cmd)
			if err != nil {
				return writeFailure(cmd, e.format, "daemon", err)
			}
			defer closeLog()

			var mu sync.Mutex
			current := *e.cfg
			snapshot := func() config.Config {
				mu.Lock()
				defer mu.Unlock()
				return current
			}

			job := func(ctx context.Context) error {
				cfg := snapshot()
				_, err := newPipeline(&cfg, e.fs, e.log).execute(ctx, send || cfg.Settings.AutoSendEmail)
				return err
			}
			sched, err := schedule.New(job, current.Settings.RunHour, current.Settings.RunMinute, e.log)
			if err != nil {
				return writeFailure(cmd, e.format, "daemon", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := sched.Start(ctx); err != nil {
				return writeFailure(cmd, e.format, "daemon", err)
			}

			if e.cfgFile != "" {
				err := config.Watch(e.cfgFile, func(cfg *config.Config, err error) {
					if err != nil {
						e.log.Warn().Err(err).Msg("config reload rejected")
						return
					}
					mu.Lock()
					current = *cfg
					mu.Unlock()
					if err := sched.Reschedule(cfg.Settings.RunHour, cfg.Settings.RunMinute); err != nil {
						e.log.Warn().Err(err).Msg("reschedule failed")
					}
				})
				if err != nil {
					e.log.Warn().Err(err).Msg("config watch disabled")
				}
			}

			<-ctx.Done()
			e.log.Info().Msg("shutting down")
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				return writeFailure(cmd, e.format, "daemon", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&send, "send", false, "Mail every report even if settings.auto_send_email is off")
	return cmd
}
