// Package runner executes the DataGuard check scripts and captures their
// output for analysis.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// DefaultTimeout bounds a single script execution.
const DefaultTimeout = 10 * time.Minute

// StderrSeparator introduces the captured stderr in the combined output.
const StderrSeparator = "\n错误输出:\n"

// Supported script output encodings.
const (
	EncodingUTF8 = "utf-8"
	EncodingGBK  = "gbk"
)

var (
	// ErrScriptNotFound is returned when a configured script does not exist.
	ErrScriptNotFound = errors.New("script not found")
	// ErrTimeout is returned when a script exceeds its time budget.
	ErrTimeout = errors.New("script timed out")
)

// Result is the captured outcome of one script execution.
type Result struct {
	Script   string        `json:"script"    yaml:"script"`
	Output   string        `json:"-"         yaml:"-"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	TimedOut bool          `json:"timed_out" yaml:"timed_out"`
	Duration time.Duration `json:"duration"  yaml:"duration"`
}

// Outputs pairs the results of the standby check and daily report scripts.
type Outputs struct {
	Standby Result `json:"standby" yaml:"standby"`
	Daily   Result `json:"daily"   yaml:"daily"`
}

// Runner executes scripts from a fixed working directory.
type Runner struct {
	fs       afero.Fs
	dir      string
	timeout  time.Duration
	decoding encoding.Encoding
	log      zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger used for script progress.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithFs sets the filesystem used to check that scripts exist.
func WithFs(fsys afero.Fs) Option {
	return func(r *Runner) { r.fs = fsys }
}

// New returns a Runner executing in dir and decoding output with the named
// encoding.
func New(dir, enc string, opts ...Option) (*Runner, error) {
	decoding, err := Encoding(enc)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		fs:       afero.NewOsFs(),
		dir:      dir,
		timeout:  DefaultTimeout,
		decoding: decoding,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Encoding resolves a configured encoding name.
func Encoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EncodingUTF8, "utf8":
		return unicode.UTF8, nil
	case EncodingGBK, "cp936":
		return simplifiedchinese.GBK, nil
	default:
		return nil, fmt.Errorf("unsupported script encoding %q", name)
	}
}

// Check verifies that every script exists. All missing scripts are reported.
func (r *Runner) Check(scripts ...string) error {
	var errs []error
	for _, s := range scripts {
		if s == "" {
			errs = append(errs, fmt.Errorf("empty script path: %w", ErrScriptNotFound))
			continue
		}
		if _, err := r.fs.Stat(s); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("%s: %w", s, ErrScriptNotFound))
				continue
			}
			errs = append(errs, fmt.Errorf("stat %s: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// Run executes script and returns its decoded stdout, followed by stderr
// when any was written. On timeout the partial output is returned together
// with ErrTimeout. A non-zero exit status is recorded, not returned.
func (r *Runner) Run(ctx context.Context, script string) (Result, error) {
	res := Result{Script: script}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := command(ctx, script)
	cmd.Dir = r.dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	r.log.Info().Str("script", script).Msg("starting script")
	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)

	res.Output = r.decode(stdout.Bytes())
	if stderr.Len() > 0 {
		errText := r.decode(stderr.Bytes())
		r.log.Warn().Str("script", script).Str("stderr", errText).Msg("script wrote to stderr")
		res.Output += StderrSeparator + errText
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		r.log.Error().Str("script", script).Dur("timeout", r.timeout).Msg("script timed out")
		return res, fmt.Errorf("%s after %s: %w", script, r.timeout, ErrTimeout)
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		return res, fmt.Errorf("run %s: %w", script, err)
	}

	r.log.Info().
		Str("script", script).
		Int("exit_code", res.ExitCode).
		Dur("duration", res.Duration).
		Int("bytes", len(res.Output)).
		Msg("script finished")
	return res, nil
}

// RunBoth executes the standby check and daily report scripts concurrently.
// Both always run to completion; their errors are joined.
func (r *Runner) RunBoth(ctx context.Context, standby, daily string) (Outputs, error) {
	var (
		out                  Outputs
		standbyErr, dailyErr error
		wg                   conc.WaitGroup
	)
	wg.Go(func() { out.Standby, standbyErr = r.Run(ctx, standby) })
	wg.Go(func() { out.Daily, dailyErr = r.Run(ctx, daily) })
	wg.Wait()
	return out, errors.Join(standbyErr, dailyErr)
}

func (r *Runner) decode(b []byte) string {
	s, err := r.decoding.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return strings.ToValidUTF8(string(s), "�")
}

// command builds the invocation for script: Windows batch files go through
// cmd.exe, everything else through sh.
func command(ctx context.Context, script string) *exec.Cmd {
	switch strings.ToLower(filepath.Ext(script)) {
	case ".bat", ".cmd":
		return exec.CommandContext(ctx, "cmd", "/C", script)
	default:
		return exec.CommandContext(ctx, "sh", script)
	}
}
