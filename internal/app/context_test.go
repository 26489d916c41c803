package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match-cycle/internal/app"
	"github.com/oggyb/muzz-match-cycle/internal/cache"
	"github.com/oggyb/muzz-match-cycle/internal/config"
	"github.com/oggyb/muzz-match-cycle/internal/db"
	"github.com/oggyb/muzz-match-cycle/internal/db/dbtest"
	"github.com/oggyb/muzz-match-cycle/internal/logger"
)

// setupApp wires the whole worker against in-memory SQLite and miniredis.
func setupApp(t *testing.T) (*app.AppContext, *miniredis.Miniredis) {
	t.Helper()

	gdb := dbtest.Open(t)
	dbtest.SeedUsers(t, gdb,
		db.User{ID: 1, Gender: "man", Religion: "none", Hobbies: []string{"chess"}, OptIn: true},
		db.User{ID: 2, Gender: "woman", Hobbies: []string{"chess"}, OptIn: true},
		db.User{ID: 3, Gender: "woman", Religion: "none", OptIn: true},
	)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Password = ""
	cfg.Redis.DB = 0
	cfg.Schedule.CreateCron = "1 23 * * 2"
	cfg.Schedule.RevealCron = "0 0 * * 4"
	cfg.Schedule.ResetCron = "1 0 * * 4"
	cfg.Schedule.LockEnabled = true
	cfg.Scoring.CategoryWeight = 50
	cfg.Scoring.HobbyWeight = 10
	cfg.Matching.PartitionAttribute = "gender"
	cfg.Matching.GroupA = "man"
	cfg.Matching.GroupB = "woman"
	cfg.Notify.ChannelPrefix = "user:"

	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { rc.Close() })

	return app.New(cfg, gdb, rc, logger.Discard()), mr
}

func TestScheduler_RegistersThreePhases(t *testing.T) {
	a, _ := setupApp(t)

	s, err := a.Scheduler(a.CycleService())
	require.NoError(t, err)

	entries := s.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "create", entries[0].Name)
	assert.Equal(t, "1 23 * * 2", entries[0].Spec)
}

func TestScheduler_BadSpec(t *testing.T) {
	a, _ := setupApp(t)
	a.Config.Schedule.RevealCron = "every thursday"

	_, err := a.Scheduler(a.CycleService())
	assert.Error(t, err)
}

func TestWorker_FullCycleThroughScheduler(t *testing.T) {
	ctx := context.Background()
	a, mr := setupApp(t)

	s, err := a.Scheduler(a.CycleService())
	require.NoError(t, err)

	// religion bonus outweighs the shared hobby: user1 goes with user3
	require.NoError(t, s.RunNow(ctx, "create"))

	var pending []db.MatchRecord
	require.NoError(t, a.DB.Where("status = ?", db.StatusPending).Find(&pending).Error)
	require.Len(t, pending, 1)
	assert.Equal(t, uint64(1), pending[0].UserAID)
	assert.Equal(t, uint64(3), pending[0].UserBID)

	sub := a.RedisCache.Client.Subscribe(ctx, "user:1", "user:3")
	t.Cleanup(func() { sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, s.RunNow(ctx, "reveal"))

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		msg, err := sub.ReceiveMessage(rctx)
		cancel()
		require.NoError(t, err)

		var ev struct {
			Event string `json:"event"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, "match:delivered", ev.Event)
		got[msg.Channel] = true
	}
	assert.Equal(t, map[string]bool{"user:1": true, "user:3": true}, got)

	require.NoError(t, s.RunNow(ctx, "reset"))

	var optedIn int64
	require.NoError(t, a.DB.Model(&db.User{}).Where("opt_in = ?", true).Count(&optedIn).Error)
	assert.Zero(t, optedIn)

	// locks are released after every run
	assert.False(t, mr.Exists("cycle:lock:create"))
	assert.False(t, mr.Exists("cycle:lock:reveal"))
	assert.False(t, mr.Exists("cycle:lock:reset"))
}
