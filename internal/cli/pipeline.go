package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/luckyjian/dgwatch/internal/analysis"
	"github.com/luckyjian/dgwatch/internal/compose"
	"github.com/luckyjian/dgwatch/internal/config"
	"github.com/luckyjian/dgwatch/internal/hostcheck"
	"github.com/luckyjian/dgwatch/internal/metrics"
	"github.com/luckyjian/dgwatch/internal/notify"
	"github.com/luckyjian/dgwatch/internal/runner"
	"github.com/luckyjian/dgwatch/internal/scan"
)

// RunResult is the payload of the run command.
type RunResult struct {
	Scripts  runner.Outputs   `json:"scripts"            yaml:"scripts"`
	Report   *analysis.Report `json:"report"             yaml:"report"`
	Text     string           `json:"text"               yaml:"text"`
	Sent     bool             `json:"sent"               yaml:"sent"`
	Metrics  string           `json:"metrics,omitempty"  yaml:"metrics,omitempty"`
	Warnings []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Header implements output.Tabular.
func (r *RunResult) Header() []string { return findingHeader }

// Rows implements output.Tabular.
func (r *RunResult) Rows() [][]string { return findingRows(r.Report) }

// pipeline is one full check: scripts, analysis, metrics and mail.
type pipeline struct {
	cfg  *config.Config
	fs   afero.Fs
	log  zerolog.Logger
	now  func() time.Time
	send func(context.Context, notify.Message) error
}

func newPipeline(cfg *config.Config, fsys afero.Fs, log zerolog.Logger) *pipeline {
	p := &pipeline{cfg: cfg, fs: fsys, log: log, now: time.Now}
	p.send = func(ctx context.Context, msg notify.Message) error {
		n, err := newNotifier(p.cfg, p.log)
		if err != nil {
			return err
		}
		return n.Send(ctx, msg)
	}
	return p
}

// analysisOptions maps the settings onto analysis.Options.
func analysisOptions(cfg *config.Config) analysis.Options {
	opts := analysis.DefaultOptions()
	opts.ErrorCheckEnabled = cfg.Settings.CheckErrors
	if patterns := scan.ParsePatterns(cfg.Settings.ErrorPatterns); len(patterns) > 0 {
		opts.ErrorPatterns = patterns
	}
	return opts
}

// execute runs both check scripts from the working directory, analyzes
// their output and the HTML report, and mails the result when send is set.
// Script timeouts are recorded as warnings; a missing script aborts.
func (p *pipeline) execute(ctx context.Context, send bool) (*RunResult, error) {
	r, err := runner.New(".", p.cfg.Settings.ScriptEncoding,
		runner.WithTimeout(p.cfg.Settings.ScriptTimeout),
		runner.WithLogger(p.log),
		runner.WithFs(p.fs),
	)
	if err != nil {
		return nil, err
	}
	standby, daily := p.cfg.Paths.CheckStandbyBat, p.cfg.Paths.DailyReportBat
	if err := r.Check(standby, daily); err != nil {
		return nil, err
	}

	res := &RunResult{}
	outs, err := r.RunBoth(ctx, standby, daily)
	if err != nil {
		p.log.Warn().Err(err).Msg("script execution incomplete")
		res.Warnings = append(res.Warnings, err.Error())
	}
	res.Scripts = outs

	in := analysis.LoadInput(p.fs, p.cfg.Paths.ReportPath, outs.Standby.Output, outs.Daily.Output)
	usage := hostcheck.NewProber(p.fs).Probe(ctx, p.cfg.Paths.LogDir, ".")
	in.Host = &usage

	rep := analysis.Analyze(in, analysisOptions(p.cfg))
	res.Report = rep
	res.Text = compose.Text(rep)
	p.logReport(rep)

	if path := p.cfg.Paths.MetricsFile; path != "" {
		rec := metrics.NewRecorder()
		rec.Record(rep, p.now())
		if err := rec.WriteTextfile(path); err != nil {
			p.log.Warn().Err(err).Str("path", path).Msg("metrics textfile not written")
			res.Warnings = append(res.Warnings, err.Error())
		} else {
			res.Metrics = path
		}
	}

	if !send {
		return res, nil
	}
	msg, err := p.message(rep, res.Text, outs)
	if err != nil {
		return res, err
	}
	if err := p.send(ctx, msg); err != nil {
		return res, fmt.Errorf("send report: %w", err)
	}
	res.Sent = true
	p.log.Info().Strs("to", msg.To).Str("subject", msg.Subject).Msg("report sent")
	return res, nil
}

// logReport writes the run outcome to the run log. Pattern hits are logged
// one per line so the trend command can count them later.
func (p *pipeline) logReport(rep *analysis.Report) {
	for _, m := range rep.StandbyMatches {
		p.log.Warn().Str("source", string(analysis.SourceStandbyCheck)).Int("line", m.Line).Msg(m.Text)
	}
	for _, m := range rep.DailyMatches {
		p.log.Warn().Str("source", string(analysis.SourceDailyReport)).Int("line", m.Line).Msg(m.Text)
	}
	for _, f := range rep.Assessment.Findings {
		p.log.Info().Str("rule", f.Rule).Stringer("severity", f.Severity).Msg(f.Message)
	}
	p.log.Info().
		Stringer("overall", rep.Overall()).
		Int("findings", len(rep.Assessment.Findings)).
		Int("pattern_hits", rep.PatternErrorCount()).
		Bool("report_available", rep.ReportAvailable).
		Msg("analysis complete")
}

func (p *pipeline) message(rep *analysis.Report, text string, outs runner.Outputs) (notify.Message, error) {
	now := p.now()
	attachments, attached := notify.CollectAttachments(p.fs, p.cfg.Paths.ReportPath, outs.Standby.Output, outs.Daily.Output)
	body, err := compose.HTMLBody(rep, text, now, attached)
	if err != nil {
		return notify.Message{}, err
	}
	return notify.Message{
		Subject:     compose.Subject(rep.Overall(), now),
		Severity:    rep.Overall(),
		HTMLBody:    body,
		TextBody:    text,
		To:          notify.ParseRecipients(p.cfg.Email.RecipientEmails),
		Attachments: attachments,
	}, nil
}

// newNotifier builds the configured mail transport.
func newNotifier(cfg *config.Config, log zerolog.Logger) (notify.Notifier, error) {
	switch cfg.Email.Transport {
	case "mailgun":
		mg, err := notify.NewMailgunSender(notify.MailgunConfig{
			Domain: cfg.Email.MailgunDomain,
			APIKey: cfg.Email.MailgunAPIKey(),
			From:   cfg.Email.SenderEmail,
		}, log)
		if err != nil {
			return nil, err
		}
		return mg, nil
	default:
		s, err := newSMTPSender(cfg, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func newSMTPSender(cfg *config.Config, log zerolog.Logger) (*notify.SMTPSender, error) {
	enc, err := notify.ParseEncryption(cfg.Email.Encryption)
	if err != nil {
		return nil, err
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Server:     cfg.Email.SMTPServer,
		Port:       cfg.Email.SMTPPort,
		Username:   cfg.Email.SMTPUsername,
		Password:   cfg.Email.Password(),
		From:       cfg.Email.SenderEmail,
		UseTLS:     cfg.Email.UseTLS,
		Encryption: enc,
	}, log), nil
}
