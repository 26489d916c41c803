package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match-cycle/internal/cache"
	"github.com/oggyb/muzz-match-cycle/internal/config"
	"github.com/oggyb/muzz-match-cycle/internal/cycle"
	"github.com/oggyb/muzz-match-cycle/internal/matching"
	"github.com/oggyb/muzz-match-cycle/internal/notify"
	"github.com/oggyb/muzz-match-cycle/internal/repository"
	"github.com/oggyb/muzz-match-cycle/internal/scheduler"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
	}
}

// CycleService wires the weekly cycle from config: weighted scorer, partition,
// gorm stores and the Redis notifier.
func (a *AppContext) CycleService() *cycle.Service {
	cfg := a.Config

	scorer := matching.NewWeightedScorer(matching.Weights{
		Category: cfg.Scoring.CategoryWeight,
		Hobby:    cfg.Scoring.HobbyWeight,
		Trait:    cfg.Scoring.TraitWeight,
	})
	engine := matching.NewEngine(scorer,
		matching.WithPartition(matching.Partition{
			Attribute: cfg.Matching.PartitionAttribute,
			GroupA:    cfg.Matching.GroupA,
			GroupB:    cfg.Matching.GroupB,
		}),
		matching.WithLogger(a.Logger.With("component", "pairing")),
	)

	var notifier cycle.Notifier = notify.Nop{}
	if a.RedisCache != nil {
		notifier = notify.NewRedisNotifier(a.RedisCache.Client,
			notify.WithPrefix(cfg.Notify.ChannelPrefix),
			notify.WithTimeout(cfg.Notify.Timeout),
			notify.WithLogger(a.Logger),
		)
	}

	return cycle.NewService(
		repository.NewUserRepository(a.DB),
		repository.NewMatchRepository(a.DB),
		notifier,
		engine,
		cycle.WithLogger(a.Logger),
	)
}

// Scheduler registers the three cycle transitions on their weekly triggers.
func (a *AppContext) Scheduler(svc *cycle.Service) (*scheduler.Scheduler, error) {
	cfg := a.Config

	opts := []scheduler.Option{
		scheduler.WithLocation(cfg.Location()),
		scheduler.WithLogger(a.Logger.With("component", "scheduler")),
		scheduler.WithTimeout(cfg.Schedule.JobTimeout),
	}
	if cfg.Schedule.LockEnabled && a.RedisCache != nil {
		opts = append(opts, scheduler.WithLocker(a.RedisCache, cfg.Schedule.LockTTL))
	}
	s := scheduler.New(opts...)

	triggers := []struct {
		spec string
		job  scheduler.Job
	}{
		{cfg.Schedule.CreateCron, svc.CreateJob()},
		{cfg.Schedule.RevealCron, svc.RevealJob()},
		{cfg.Schedule.ResetCron, svc.ResetJob()},
	}
	for _, t := range triggers {
		if err := s.OnSchedule(t.spec, t.job); err != nil {
			return nil, err
		}
	}
	return s, nil
}
