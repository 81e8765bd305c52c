// Package schedule runs the monitoring job once a day at a configured time.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is the scheduled unit of work.
type Job func(ctx context.Context) error

// ShouldRun reports whether a daily job targeting hour:minute is due at now:
// the target time of today has passed and no run happened today. A nil
// lastRun means the job never ran.
func ShouldRun(now time.Time, lastRun *time.Time, hour, minute int) bool {
	y, m, d := now.Date()
	target := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	if now.Before(target) {
		return false
	}
	if lastRun == nil {
		return true
	}
	ly, lm, ld := lastRun.In(now.Location()).Date()
	return time.Date(ly, lm, ld, 0, 0, 0, 0, now.Location()).Before(time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
}

// DailySpec returns the seconds-precision cron spec firing at hour:minute.
func DailySpec(hour, minute int) (string, error) {
	if hour < 0 || hour > 23 {
		return "", fmt.Errorf("run hour %d out of range 0-23", hour)
	}
	if minute < 0 || minute > 59 {
		return "", fmt.Errorf("run minute %d out of range 0-59", minute)
	}
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

// Scheduler fires a Job daily. Runs never overlap: a tick arriving while the
// previous run is still in progress is skipped.
type Scheduler struct {
	cron *cron.Cron
	job  Job
	log  zerolog.Logger
	now  func() time.Time

	mu      sync.Mutex
	entry   cron.EntryID
	hour    int
	minute  int
	lastRun *time.Time
	baseCtx context.Context

	busy atomic.Bool
	wg   sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now for the catch-up check and run bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLastRun seeds the time of the previous run.
func WithLastRun(t time.Time) Option {
	return func(s *Scheduler) { s.lastRun = &t }
}

// New returns a stopped Scheduler for job at hour:minute.
func New(job Job, hour, minute int, log zerolog.Logger, opts ...Option) (*Scheduler, error) {
	if _, err := DailySpec(hour, minute); err != nil {
		return nil, err
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		job:     job,
		log:     log,
		now:     time.Now,
		hour:    hour,
		minute:  minute,
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start registers the daily entry and starts the cron loop. If today's run
// is already due it is started immediately. Jobs receive ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	err := s.register()
	hour, minute := s.hour, s.minute
	due := ShouldRun(s.now(), s.lastRun, hour, minute)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Int("hour", hour).Int("minute", minute).Time("next", s.Next()).Msg("scheduler started")

	if due {
		s.log.Info().Msg("daily run is due, starting catch-up run")
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.RunNow(ctx)
		}()
	}
	return nil
}

// Stop halts the cron loop and waits for a running job or ctx expiry.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		<-stopCtx.Done()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
		return ctx.Err()
	}
}

// Reschedule moves the daily entry to hour:minute.
func (s *Scheduler) Reschedule(hour, minute int) error {
	if _, err := DailySpec(hour, minute); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if hour == s.hour && minute == s.minute {
		return nil
	}
	s.hour, s.minute = hour, minute
	if err := s.register(); err != nil {
		return err
	}
	s.log.Info().Int("hour", hour).Int("minute", minute).Msg("schedule changed")
	return nil
}

// register replaces the cron entry. Callers hold s.mu.
func (s *Scheduler) register() error {
	spec, err := DailySpec(s.hour, s.minute)
	if err != nil {
		return err
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
	}
	id, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		ctx := s.baseCtx
		s.mu.Unlock()
		s.RunNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.entry = id
	return nil
}

// RunNow runs the job unless a run is already in progress. It reports
// whether the job ran.
func (s *Scheduler) RunNow(ctx context.Context) bool {
	if !s.busy.CompareAndSwap(false, true) {
		s.log.Info().Msg("monitoring run in progress, skipping")
		return false
	}
	defer s.busy.Store(false)

	started := s.now()
	s.mu.Lock()
	s.lastRun = &started
	s.mu.Unlock()

	if err := s.job(ctx); err != nil {
		s.log.Error().Err(err).Msg("scheduled run failed")
	} else {
		s.log.Info().Dur("duration", s.now().Sub(started)).Msg("scheduled run finished")
	}
	return true
}

// LastRun returns the start time of the most recent run.
func (s *Scheduler) LastRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return time.Time{}, false
	}
	return *s.lastRun, true
}

// Next returns the next scheduled fire time, zero before Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entry
	s.mu.Unlock()
	return s.cron.Entry(id).Next
}
