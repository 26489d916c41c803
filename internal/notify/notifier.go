// Package notify delivers cycle events to users over Redis pub/sub.
//
// Delivery is real-time only: a user without a live subscriber misses the
// event and learns about the match through the regular read path.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	EventMatchDelivered = "match:delivered"
	EventOptInReset     = "optin:reset"
)

// Event is the JSON envelope published on a user's channel.
type Event struct {
	Event   string    `json:"event"`
	UserID  uint64    `json:"user_id"`
	Payload any       `json:"payload,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// RedisNotifier publishes events on "<prefix><userID>" channels.
type RedisNotifier struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time
}

type Option func(*RedisNotifier)

// WithPrefix sets the channel prefix (default "user:").
func WithPrefix(p string) Option {
	return func(n *RedisNotifier) { n.prefix = p }
}

// WithTimeout bounds every publish call (default 2s).
func WithTimeout(d time.Duration) Option {
	return func(n *RedisNotifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(n *RedisNotifier) {
		if l != nil {
			n.log = l
		}
	}
}

func NewRedisNotifier(client *redis.Client, opts ...Option) *RedisNotifier {
	n := &RedisNotifier{
		client:  client,
		prefix:  "user:",
		timeout: 2 * time.Second,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Channel returns the pub/sub channel for userID.
func (n *RedisNotifier) Channel(userID uint64) string {
	return n.prefix + strconv.FormatUint(userID, 10)
}

// Publish sends one event to one user. It never blocks longer than the
// configured timeout and has no retry.
func (n *RedisNotifier) Publish(ctx context.Context, userID uint64, event string, payload any) error {
	raw, err := json.Marshal(Event{
		Event:   event,
		UserID:  userID,
		Payload: payload,
		SentAt:  n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	receivers, err := n.client.Publish(ctx, n.Channel(userID), raw).Result()
	if err != nil {
		return fmt.Errorf("publish %s to user %d: %w", event, userID, err)
	}
	n.log.Debug("event published", "event", event, "user_id", userID, "receivers", receivers)
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, uint64, string, any) error { return nil }
