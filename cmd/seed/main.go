package main

import (
	"github.com/oggyb/muzz-match-cycle/internal/config"
	"github.com/oggyb/muzz-match-cycle/internal/db"
	"github.com/oggyb/muzz-match-cycle/internal/logger"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.With("cmd", "seed")

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	if err := db.SeedTestData(database, log); err != nil {
		log.Error("failed to seed", "err", err)
		return
	}

	log.Info("seeding completed")
}
