package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oggyb/muzz-match-cycle/internal/app"
	"github.com/oggyb/muzz-match-cycle/internal/cache"
	"github.com/oggyb/muzz-match-cycle/internal/config"
	"github.com/oggyb/muzz-match-cycle/internal/db"
	cycleErr "github.com/oggyb/muzz-match-cycle/internal/errors"
	"github.com/oggyb/muzz-match-cycle/internal/logger"
	"github.com/oggyb/muzz-match-cycle/internal/server"
)

func main() {
	runOnce := flag.String("run", "", "run a single phase (create|reveal|reset) and exit")
	flag.Parse()

	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	defer redisCache.Close()
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}

	appCtx := app.New(cfg, database, redisCache, log)

	if cfg.App.ENV == "development" && *runOnce == "" {
		if err := db.SeedTestData(database, log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	svc := appCtx.CycleService()
	sched, err := appCtx.Scheduler(svc)
	if err != nil {
		log.Error("failed to register cycle jobs", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// manual trigger, e.g. to replay a failed reveal
	if *runOnce != "" {
		err := sched.RunNow(ctx, *runOnce)
		switch {
		case err == nil:
		case errors.Is(err, cycleErr.ErrLockHeld):
			log.Warn("phase already running on another worker", "phase", *runOnce)
		default:
			os.Exit(1)
		}
		return
	}

	health := server.NewHealthRegistrar()
	grpcServer := server.NewGRPCServer(cfg, health)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting gRPC health server", "addr", grpcServer.Addr())
		return grpcServer.Serve(gctx)
	})

	g.Go(func() error {
		sched.Start()
		health.SetServing(true)
		log.Info("match cycle scheduler running")

		<-gctx.Done()
		health.SetServing(false)

		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Schedule.JobTimeout+5*time.Second)
		defer cancel()
		return sched.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("worker stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}
