package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// NotifyCheck is the payload of "notify test".
type NotifyCheck struct {
	Transport string `json:"transport"        yaml:"transport"`
	Server    string `json:"server,omitempty" yaml:"server,omitempty"`
	Port      int    `json:"port,omitempty"   yaml:"port,omitempty"`
	Reachable bool   `json:"reachable"        yaml:"reachable"`
}

func newNotifyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Mail transport commands",
	}
	cmd.AddCommand(newNotifyTestCmd(e))
	return cmd
}

func newNotifyTestCmd(e *env) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Connect and log in to the SMTP server without sending anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.Email.Transport == "mailgun" {
				if _, err := newNotifier(e.cfg, e.log); err != nil {
					return writeFailure(cmd, e.format, "notify test", err)
				}
				return writeSuccess(cmd, e.format, "notify test", NotifyCheck{Transport: "mailgun", Reachable: true})
			}

			sender, err := newSMTPSender(e.cfg, e.log)
			if err != nil {
				return writeFailure(cmd, e.format, "notify test", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := sender.Probe(ctx); err != nil {
				return writeFailure(cmd, e.format, "notify test", err)
			}
			return writeSuccess(cmd, e.format, "notify test", NotifyCheck{
				Transport: "smtp",
				Server:    e.cfg.Email.SMTPServer,
				Port:      e.cfg.Email.SMTPPort,
				Reachable: true,
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Connection timeout")
	return cmd
}
