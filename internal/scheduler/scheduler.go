package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrUnknownJob is returned when invoking a job that was never added.
var ErrUnknownJob = errors.New("scheduler: unknown job")

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

// Options tune scheduler behaviour.
type Options struct {
	Location   *time.Location
	JobTimeout time.Duration
}

type job struct {
	spec     string
	fn       JobFunc
	schedule cron.Schedule
}

// Scheduler runs named jobs on cron expressions evaluated in a fixed timezone.
type Scheduler struct {
	opts   Options
	cron   *cron.Cron
	logger zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*job
	base context.Context
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	logger = logger.With().Str("component", "scheduler").Logger()
	adapter := cronLogger{logger: logger}

	return &Scheduler{
		opts: opts,
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		logger: logger,
		jobs:   make(map[string]*job),
		base:   context.Background(),
	}
}

// Add registers fn under name on a standard five-field cron spec.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("schedule job %q: %w", name, err)
	}
	s.cron.Schedule(schedule, cron.FuncJob(func() {
		_ = s.Invoke(s.baseContext(), name)
	}))
	s.jobs[name] = &job{spec: spec, fn: fn, schedule: schedule}
	s.logger.Info().Str("job", name).Str("cron", spec).Str("tz", s.opts.Location.String()).Msg("job scheduled")
	return nil
}

// Invoke runs a registered job immediately with a fresh run id.
func (s *Scheduler) Invoke(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.Do(ctx, name, j.fn)
}

// Do runs fn once under name with the same run id, timeout and panic handling as a
// scheduled run. fn need not be registered.
func (s *Scheduler) Do(ctx context.Context, name string, fn JobFunc) (err error) {
	runID := uuid.NewString()
	logger := s.logger.With().Str("job", name).Str("run_id", runID).Logger()
	ctx = WithRunID(logger.WithContext(ctx), runID)
	if s.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.JobTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
			logger.Error().Err(err).Bytes("stack", debug.Stack()).Msg("job panicked")
		}
	}()

	logger.Info().Msg("job started")
	start := time.Now()
	err = fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error().Err(err).Dur("elapsed", elapsed).Msg("job failed")
		return err
	}
	logger.Info().Dur("elapsed", elapsed).Msg("job completed")
	return nil
}

// Next reports the first activation of a job after now, in the scheduler's location.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	return s.NextAfter(name, time.Now())
}

// NextAfter reports the first activation of a job strictly after from.
func (s *Scheduler) NextAfter(name string, from time.Time) (time.Time, bool) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return j.schedule.Next(from.In(s.opts.Location)), true
}

// Jobs lists registered job names in sorted order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run starts the cron loop and blocks until ctx is cancelled, then waits for running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	s.cron.Start()
	for _, name := range s.Jobs() {
		if next, ok := s.Next(name); ok {
			s.logger.Info().Str("job", name).Time("next_run", next).Msg("next activation")
		}
	}

	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopping")
	<-s.cron.Stop().Done()
	return ctx.Err()
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

type runIDKey struct{}

// WithRunID attaches a run id to ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID extracts the run id set by Invoke, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// cronLogger routes robfig/cron diagnostics into zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

var _ cron.Logger = cronLogger{}
