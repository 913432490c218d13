// Package watch rescans a fixed set of sources on an interval.
package watch

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/mailsift/internal/collect"
	"github.com/hpungsan/mailsift/internal/config"
	"github.com/hpungsan/mailsift/internal/ops"
)

// RunFunc performs one scheduled scan.
type RunFunc func(ctx context.Context) error

// Scheduler owns at most one ticker. Start and Stop are idempotent and safe
// for concurrent use; a tick that is still scanning delays the next one
// rather than overlapping it.
type Scheduler struct {
	Interval time.Duration
	Run      RunFunc
	// Immediate runs one scan as soon as the scheduler starts.
	Immediate bool
	Log       zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	ticks  int
}

// New creates a stopped scheduler.
func New(interval time.Duration, run RunFunc, log zerolog.Logger) *Scheduler {
	return &Scheduler{Interval: interval, Run: run, Log: log}
}

// Start launches the loop. It reports false if the scheduler was already
// running. The loop ends when ctx ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.loop(ctx, done)
	s.Log.Info().Dur("interval", s.Interval).Msg("scheduler started")
	return true
}

// Stop ends the loop and waits for an in-flight scan to return.
// It reports false if the scheduler was not running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	s.Log.Info().Msg("scheduler stopped")
	return true
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Ticks returns how many scans have been attempted.
func (s *Scheduler) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Set starts or stops the scheduler to match enabled.
func (s *Scheduler) Set(ctx context.Context, enabled bool) {
	if enabled {
		s.Start(ctx)
		return
	}
	s.Stop()
}

// Wait blocks until the loop ends on its own (ctx done) or via Stop.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		// A loop that ends because its parent ctx ended leaves the scheduler
		// stoppable and restartable.
		s.mu.Lock()
		if s.done == done {
			s.cancel()
			s.cancel, s.done = nil, nil
		}
		s.mu.Unlock()
	}()

	interval := s.Interval
	if interval <= 0 {
		interval = time.Duration(config.DefaultConfig().ScanIntervalSeconds) * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if s.Immediate {
		s.tick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	s.ticks++
	s.mu.Unlock()

	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		s.Log.Warn().Err(err).Msg("scheduled scan failed")
	}
}

// Scanner builds the RunFunc that rescans sources with the settings stored at
// the time of each tick.
func Scanner(database *sql.DB, sink *collect.Sink, cfg *config.Config, sources []string, stdin io.Reader) RunFunc {
	return func(ctx context.Context) error {
		out, err := ops.Scan(ctx, database, sink, cfg, ops.ScanInput{
			Sources: sources,
			Stdin:   stdin,
		})
		if err != nil {
			return err
		}
		zerolog.Ctx(ctx).Debug().
			Int("found", out.Found).
			Int("added", out.Added).
			Msg("scheduled scan")
		return nil
	}
}

// FromConfig creates a scheduler at the configured interval.
func FromConfig(cfg *config.Config, run RunFunc, log zerolog.Logger) *Scheduler {
	return New(time.Duration(cfg.ScanIntervalSeconds)*time.Second, run, log)
}
