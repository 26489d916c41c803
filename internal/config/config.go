package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	// Schedule holds the three weekly trigger instants as 5-field cron specs
	// (minute hour day-of-month month day-of-week).
	Schedule struct {
		Timezone    string
		CreateCron  string
		RevealCron  string
		ResetCron   string
		JobTimeout  time.Duration
		LockEnabled bool
		LockTTL     time.Duration
	}

	Scoring struct {
		CategoryWeight float64
		HobbyWeight    float64
		TraitWeight    float64
	}

	Matching struct {
		PartitionAttribute string
		GroupA             string
		GroupB             string
	}

	Notify struct {
		ChannelPrefix string
		Timeout       time.Duration
	}
}

func New() *Config {
	// .env is optional; real environment always wins
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.ENV = strings.ToLower(getEnvDefault("ENV", "production"))

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "match_cycle")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "muzz")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// gRPC (health only)
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Weekly cycle: create Tue 23:01, reveal Thu 00:00, reset Thu 00:01
	cfg.Schedule.Timezone = getEnvDefault("CYCLE_TIMEZONE", "UTC")
	cfg.Schedule.CreateCron = getEnvDefault("CYCLE_CREATE_CRON", "1 23 * * 2")
	cfg.Schedule.RevealCron = getEnvDefault("CYCLE_REVEAL_CRON", "0 0 * * 4")
	cfg.Schedule.ResetCron = getEnvDefault("CYCLE_RESET_CRON", "1 0 * * 4")
	cfg.Schedule.JobTimeout = getEnvDuration("CYCLE_JOB_TIMEOUT", 5*time.Minute)
	cfg.Schedule.LockEnabled = isTruthy(getEnvDefault("CYCLE_LOCK_ENABLED", "true"))
	cfg.Schedule.LockTTL = getEnvDuration("CYCLE_LOCK_TTL", 10*time.Minute)

	// Scoring
	cfg.Scoring.CategoryWeight = getEnvFloat("SCORE_WEIGHT_CATEGORY", 50)
	cfg.Scoring.HobbyWeight = getEnvFloat("SCORE_WEIGHT_HOBBIES", 10)
	cfg.Scoring.TraitWeight = getEnvFloat("SCORE_WEIGHT_TRAITS", 5)

	// Partitioning
	cfg.Matching.PartitionAttribute = strings.ToLower(getEnvDefault("MATCH_PARTITION_ATTRIBUTE", "gender"))
	cfg.Matching.GroupA = getEnvDefault("MATCH_GROUP_A", "man")
	cfg.Matching.GroupB = getEnvDefault("MATCH_GROUP_B", "woman")

	// Delivery
	cfg.Notify.ChannelPrefix = getEnvDefault("NOTIFY_CHANNEL_PREFIX", "user:")
	cfg.Notify.Timeout = getEnvDuration("NOTIFY_TIMEOUT", 2*time.Second)

	return cfg
}

// Location resolves Schedule.Timezone, falling back to UTC on unknown names.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if n, err := strconv.Atoi(getEnvDefault(k, "")); err == nil {
		return n
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if f, err := strconv.ParseFloat(getEnvDefault(k, ""), 64); err == nil {
		return f
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnvDefault(k, "")); err == nil && d > 0 {
		return d
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
