// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/muzz-match-cycle/internal/db"
)

// Open spins up an in-memory SQLite DB named after the test, applies
// migrations and closes it on cleanup. Each test gets its own database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	// one connection keeps the shared in-memory DB alive and serializes access
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

// SeedUsers inserts users as given (ids included) and fails the test on error.
func SeedUsers(t *testing.T, database *gorm.DB, users ...db.User) {
	t.Helper()
	for i := range users {
		if users[i].Username == "" {
			users[i].Username = fmt.Sprintf("user%d", users[i].ID)
		}
		if users[i].Email == "" {
			users[i].Email = fmt.Sprintf("user%d@test.com", users[i].ID)
		}
		if users[i].PasswordHash == "" {
			users[i].PasswordHash = "x"
		}
	}
	require.NoError(t, database.Create(&users).Error)
}
