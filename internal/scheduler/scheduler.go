// Package scheduler fires jobs on cron-style recurring schedules.
//
// Firings are fire-and-forget: a failing or panicking job is logged and the
// next scheduled firing is the retry path. The process never goes down
// because of a job.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	cycleErr "github.com/oggyb/muzz-match-cycle/internal/errors"
	"github.com/oggyb/muzz-match-cycle/internal/logger"
)

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Locker de-duplicates concurrent firings of the same job across workers.
type Locker interface {
	KeyForPhaseLock(phase string) string
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// EntryInfo describes a registered job.
type EntryInfo struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

type registration struct {
	job  Job
	spec string
	id   cron.EntryID
}

type Scheduler struct {
	mu   sync.RWMutex
	cron *cron.Cron
	jobs map[string]*registration

	log      *slog.Logger
	location *time.Location
	timeout  time.Duration
	locker   Locker
	lockTTL  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Scheduler)

// WithLocation sets the timezone the cron specs are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTimeout bounds a single job run.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLocker enables the cross-worker lock. ttl should exceed the job timeout.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Scheduler) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:     make(map[string]*registration),
		log:      logger.L(),
		location: time.UTC,
		timeout:  5 * time.Minute,
		lockTTL:  10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	cl := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s
}

// OnSchedule registers job under a standard 5-field cron spec.
func (s *Scheduler) OnSchedule(spec string, job Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", job.Name(), spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	id, err := s.cron.AddFunc(spec, func() {
		_ = s.execute(s.ctx, job, "schedule")
	})
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	s.jobs[name] = &registration{job: job, spec: spec, id: id}

	s.log.Info("job registered", "job", name, "schedule", spec, "location", s.location.String())
	return nil
}

// Start begins firing registered jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.Entries() {
		s.log.Info("job scheduled", "job", e.Name, "next_run", e.Next.Format(time.RFC3339))
	}
}

// Stop prevents new firings and waits for running jobs until ctx expires,
// after which their contexts are cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunNow runs a registered job immediately through the same guard rails as a
// scheduled firing and returns its error.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	reg, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", cycleErr.ErrUnknownJob, name)
	}
	return s.execute(ctx, reg.job, "manual")
}

// Entries lists registered jobs sorted by name.
func (s *Scheduler) Entries() []EntryInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]EntryInfo, 0, len(s.jobs))
	for name, reg := range s.jobs {
		e := s.cron.Entry(reg.id)
		out = append(out, EntryInfo{Name: name, Spec: reg.spec, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// execute runs one job with timeout, optional lock and panic protection.
func (s *Scheduler) execute(parent context.Context, job Job, trigger string) (err error) {
	name := job.Name()
	log := s.log.With("job", name, "trigger", trigger)
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if s.locker != nil {
		release, held := s.lock(ctx, log, name)
		if held {
			log.Info("job skipped, another worker holds the lock")
			return cycleErr.ErrLockHeld
		}
		defer release()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
		if err != nil {
			log.Error("job failed",
				"err", err,
				"transient", cycleErr.IsTransient(err),
				"duration_ms", logger.Elapsed(start),
			)
			return
		}
		log.Info("job completed", "duration_ms", logger.Elapsed(start))
	}()

	log.Info("job started")
	return job.Run(ctx)
}

// lock returns held=true when someone else owns the lock. Lock backend errors
// are logged and the job runs anyway; every phase tolerates duplicates.
func (s *Scheduler) lock(ctx context.Context, log *slog.Logger, name string) (release func(), held bool) {
	key := s.locker.KeyForPhaseLock(name)
	token, ok, err := s.locker.AcquireLock(ctx, key, s.lockTTL)
	if err != nil {
		log.Warn("phase lock unavailable, running unlocked", "err", err)
		return func() {}, false
	}
	if !ok {
		return func() {}, true
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.ReleaseLock(rctx, key, token); err != nil {
			log.Warn("failed to release phase lock", "err", err)
		}
	}, false
}

// cronLogger bridges robfig/cron's logger onto slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
