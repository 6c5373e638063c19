package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Locker is satisfied by redis.RedisLocker. It keeps a job to one replica per run.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// Scheduler runs periodic jobs on cron specs. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron    *cron.Cron
	locker  Locker
	timeout time.Duration
	log     *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler builds a scheduler; locker may be nil for single-instance deployments.
func NewScheduler(locker Locker, jobTimeout time.Duration, logger *zerolog.Logger) *Scheduler {
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	l := logger.With().Str("component", "Scheduler").Logger()
	cl := cronLogger{log: &l}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		locker:  locker,
		timeout: jobTimeout,
		log:     &l,
	}
}

// Register adds fn under name. exclusive jobs take a distributed lock first.
func (s *Scheduler) Register(name, spec string, exclusive bool, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, exclusive, fn) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) run(name string, exclusive bool, fn func(ctx context.Context) error) {
	parent := s.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if exclusive && s.locker != nil {
		key := "lock:sched:" + name
		token, err := s.locker.TryLock(ctx, key, s.timeout)
		if err != nil {
			s.log.Debug().Err(err).Str("job", name).Msg("job skipped, lock not acquired")
			return
		}
		defer func() {
			if err := s.locker.Unlock(context.Background(), key, token); err != nil {
				s.log.Warn().Err(err).Str("job", name).Msg("unlock failed")
			}
		}()
	}

	start := time.Now()
	if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error().Err(err).Str("job", name).Msg("job failed")
		return
	}
	s.log.Debug().Str("job", name).Dur("duration", time.Since(start)).Msg("job finished")
}

func (s *Scheduler) Start(parent context.Context) {
	s.ctx, s.cancel = context.WithCancel(parent)
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop stops scheduling and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	if s.cancel != nil {
		defer s.cancel()
	}
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ log *zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Trace().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
