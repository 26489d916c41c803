// Package cycle drives the weekly matching cycle: create pending matches,
// reveal them, then reset everyone's opt-in for the next week.
//
// Every transition is safe to run more than once. Writes are conditional on
// the current state, so a retried or duplicated firing converges on the same
// end state instead of repeating its side effects.
package cycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/muzz-match-cycle/internal/db"
	cycleErr "github.com/oggyb/muzz-match-cycle/internal/errors"
	"github.com/oggyb/muzz-match-cycle/internal/logger"
	"github.com/oggyb/muzz-match-cycle/internal/matching"
	"github.com/oggyb/muzz-match-cycle/internal/notify"
)

const (
	PhaseCreate = "create"
	PhaseReveal = "reveal"
	PhaseReset  = "reset"
)

// UserStore is the slice of the profile store the cycle needs.
type UserStore interface {
	FindOptedIn(ctx context.Context) ([]db.User, error)
	ResetOptIn(ctx context.Context, ids []uint64) (int64, error)
}

// MatchStore persists match records.
type MatchStore interface {
	FindByStatus(ctx context.Context, status db.MatchStatus) ([]db.MatchRecord, error)
	CountByStatus(ctx context.Context, status db.MatchStatus) (int64, error)
	FindHistory(ctx context.Context) ([]db.MatchRecord, error)
	InsertMany(ctx context.Context, records []db.MatchRecord) error
	UpdateStatus(ctx context.Context, ids []string, from, to db.MatchStatus) ([]string, error)
}

// Notifier publishes a real-time event to one user. Best effort.
type Notifier interface {
	Publish(ctx context.Context, userID uint64, event string, payload any) error
}

// Pairer computes the couples for one run.
type Pairer interface {
	ComputeCycleMatches(users []matching.UserSnapshot, history []matching.Couple) []matching.Pair
}

// MatchDelivery is the payload of a match:delivered event.
type MatchDelivery struct {
	MatchID    string    `json:"match_id"`
	Couple     [2]uint64 `json:"couple"`
	PartnerID  uint64    `json:"partner_id"`
	Status     string    `json:"status"`
	RevealedAt time.Time `json:"revealed_at"`
}

// OptInReset is the payload of an optin:reset event.
type OptInReset struct {
	ResetAt time.Time `json:"reset_at"`
}

type CreateResult struct {
	Eligible int  // opted-in users seen
	Created  int  // pending records written
	Skipped  bool // pending records from an earlier run still exist
}

type RevealResult struct {
	Revealed      int // records moved pending -> revealed by this run
	Published     int
	PublishFailed int
}

type ResetResult struct {
	Reset         int64 // users whose flag went true -> false
	Published     int
	PublishFailed int
}

// Service implements the three cycle transitions on top of the stores.
type Service struct {
	users    UserStore
	matches  MatchStore
	notifier Notifier
	pairer   Pairer
	log      *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService wires the cycle. A nil notifier drops events.
func NewService(users UserStore, matches MatchStore, notifier Notifier, pairer Pairer, opts ...Option) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &Service{
		users:    users,
		matches:  matches,
		notifier: notifier,
		pairer:   pairer,
		log:      logger.L(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create runs the pairing engine and stores its output as pending matches.
//
// Behavior:
//   - If any pending record exists, this cycle's create already ran: no-op.
//   - Fewer than two opted-in users or no possible pair: no-op, not an error.
//   - All records are written in one batch with the same CreatedAt.
func (s *Service) Create(ctx context.Context) (CreateResult, error) {
	log := s.log.With("phase", PhaseCreate)
	start := time.Now()

	pending, err := s.matches.CountByStatus(ctx, db.StatusPending)
	if err != nil {
		return CreateResult{}, cycleErr.Phase(PhaseCreate, "count pending matches", err)
	}
	if pending > 0 {
		log.Info("pending matches already exist, skipping create", "pending", pending)
		return CreateResult{Skipped: true}, nil
	}

	users, err := s.users.FindOptedIn(ctx)
	if err != nil {
		return CreateResult{}, cycleErr.Phase(PhaseCreate, "find opted-in users", err)
	}
	res := CreateResult{Eligible: len(users)}
	if len(users) < 2 {
		log.Info("not enough users opted in", "eligible", len(users))
		return res, nil
	}

	history, err := s.matches.FindHistory(ctx)
	if err != nil {
		return res, cycleErr.Phase(PhaseCreate, "load match history", err)
	}

	pairs := s.pairer.ComputeCycleMatches(toSnapshots(users), toCouples(history))
	if len(pairs) == 0 {
		log.Info("no valid matches this cycle", "eligible", len(users), "history", len(history))
		return res, nil
	}

	createdAt := s.now().UTC()
	records := make([]db.MatchRecord, 0, len(pairs))
	for _, p := range pairs {
		records = append(records, db.MatchRecord{
			ID:        uuid.NewString(),
			UserAID:   p.A,
			UserBID:   p.B,
			Status:    db.StatusPending,
			CreatedAt: createdAt,
		})
	}

	if err := s.matches.InsertMany(ctx, records); err != nil {
		return res, cycleErr.Phase(PhaseCreate, "insert matches", err)
	}
	res.Created = len(records)

	log.Info("created pending matches",
		"eligible", res.Eligible,
		"created", res.Created,
		"duration_ms", logger.Elapsed(start),
	)
	return res, nil
}

// Reveal flips pending matches to revealed and tells both users.
//
// Behavior:
//   - Only records this call actually moved are delivered, so a second run
//     (or a concurrent duplicate) publishes nothing new.
//   - One match:delivered event per user per record.
//   - Publish failures are logged and counted, never returned.
func (s *Service) Reveal(ctx context.Context) (RevealResult, error) {
	log := s.log.With("phase", PhaseReveal)
	start := time.Now()

	pending, err := s.matches.FindByStatus(ctx, db.StatusPending)
	if err != nil {
		return RevealResult{}, cycleErr.Phase(PhaseReveal, "find pending matches", err)
	}
	if len(pending) == 0 {
		log.Info("no pending matches to reveal")
		return RevealResult{}, nil
	}

	ids := make([]string, 0, len(pending))
	for _, m := range pending {
		ids = append(ids, m.ID)
	}

	moved, err := s.matches.UpdateStatus(ctx, ids, db.StatusPending, db.StatusRevealed)
	if err != nil {
		return RevealResult{}, cycleErr.Phase(PhaseReveal, "mark matches revealed", err)
	}

	movedSet := make(map[string]struct{}, len(moved))
	for _, id := range moved {
		movedSet[id] = struct{}{}
	}

	res := RevealResult{Revealed: len(moved)}
	revealedAt := s.now().UTC()

	for _, m := range pending {
		if _, ok := movedSet[m.ID]; !ok {
			continue // revealed by someone else
		}
		for _, uid := range []uint64{m.UserAID, m.UserBID} {
			payload := MatchDelivery{
				MatchID:    m.ID,
				Couple:     [2]uint64{m.UserAID, m.UserBID},
				PartnerID:  m.Partner(uid),
				Status:     string(db.StatusRevealed),
				RevealedAt: revealedAt,
			}
			if err := s.notifier.Publish(ctx, uid, notify.EventMatchDelivered, payload); err != nil {
				res.PublishFailed++
				log.Warn("match delivery failed", "match_id", m.ID, "user_id", uid, "err", err)
				continue
			}
			res.Published++
		}
	}

	log.Info("revealed matches",
		"revealed", res.Revealed,
		"published", res.Published,
		"publish_failed", res.PublishFailed,
		"duration_ms", logger.Elapsed(start),
	)
	return res, nil
}

// Reset clears the opt-in flag of everyone who opted into this cycle.
//
// Behavior:
//   - Refuses with ErrRevealIncomplete while pending matches exist, so nobody
//     is opted out before learning about their match.
//   - Only users still opted in are touched; a second run resets 0 users.
//   - Each reset user gets an optin:reset event.
func (s *Service) Reset(ctx context.Context) (ResetResult, error) {
	log := s.log.With("phase", PhaseReset)
	start := time.Now()

	pending, err := s.matches.CountByStatus(ctx, db.StatusPending)
	if err != nil {
		return ResetResult{}, cycleErr.Phase(PhaseReset, "count pending matches", err)
	}
	if pending > 0 {
		return ResetResult{}, cycleErr.Phase(PhaseReset, "check reveal finished",
			cycleErr.ErrRevealIncomplete)
	}

	users, err := s.users.FindOptedIn(ctx)
	if err != nil {
		return ResetResult{}, cycleErr.Phase(PhaseReset, "find opted-in users", err)
	}
	if len(users) == 0 {
		log.Info("no opted-in users to reset")
		return ResetResult{}, nil
	}

	ids := make([]uint64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	n, err := s.users.ResetOptIn(ctx, ids)
	if err != nil {
		return ResetResult{}, cycleErr.Phase(PhaseReset, "reset opt-in", err)
	}
	res := ResetResult{Reset: n}

	payload := OptInReset{ResetAt: s.now().UTC()}
	for _, id := range ids {
		if err := s.notifier.Publish(ctx, id, notify.EventOptInReset, payload); err != nil {
			res.PublishFailed++
			log.Warn("opt-in reset notification failed", "user_id", id, "err", err)
			continue
		}
		res.Published++
	}

	log.Info("opt-in reset complete, new weekly cycle started",
		"reset", res.Reset,
		"published", res.Published,
		"publish_failed", res.PublishFailed,
		"duration_ms", logger.Elapsed(start),
	)
	return res, nil
}

func toSnapshots(users []db.User) []matching.UserSnapshot {
	out := make([]matching.UserSnapshot, 0, len(users))
	for _, u := range users {
		out = append(out, matching.UserSnapshot{
			ID:       u.ID,
			Gender:   u.Gender,
			Religion: u.Religion,
			Hobbies:  []string(u.Hobbies),
			Traits:   []string(u.Traits),
		})
	}
	return out
}

func toCouples(records []db.MatchRecord) []matching.Couple {
	out := make([]matching.Couple, 0, len(records))
	for _, r := range records {
		out = append(out, matching.Couple{A: r.UserAID, B: r.UserBID})
	}
	return out
}
