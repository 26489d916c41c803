package db

import (
	"time"

	"gorm.io/datatypes"
)

// User table. Owned by the profile service; the match cycle only reads the
// matching attributes and clears OptIn at the end of each week.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Gender       string `gorm:"size:16;not null"`
	Religion     string `gorm:"size:64"`
	Hobbies      datatypes.JSONSlice[string]
	Traits       datatypes.JSONSlice[string]
	OptIn        bool      `gorm:"not null;default:false;index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// MatchStatus is the lifecycle state of a MatchRecord.
type MatchStatus string

const (
	StatusPending   MatchStatus = "pending"
	StatusRevealed  MatchStatus = "revealed"
	StatusAccepted  MatchStatus = "accepted"
	StatusUnmatched MatchStatus = "unmatched"
	StatusStale     MatchStatus = "stale"
)

// ExclusionStatuses are the statuses whose couples may never be paired again.
// Unmatched and stale couples are free to recur.
var ExclusionStatuses = []MatchStatus{StatusPending, StatusRevealed, StatusAccepted}

// Valid reports whether s is one of the known statuses.
func (s MatchStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRevealed, StatusAccepted, StatusUnmatched, StatusStale:
		return true
	}
	return false
}

// MatchRecord is one pairing produced by a weekly create run.
//
// UserAID is always the group A member and UserBID the group B member, so the
// couple order is stable once written. Everything except Status is immutable.
//
// Indexes:
//   - idx_match_status_created(status, created_at) serves the per-phase
//     "all pending" scans.
//   - idx_match_couple(user_a_id, user_b_id) serves history lookups.
type MatchRecord struct {
	ID        string      `gorm:"primaryKey;size:36"`
	UserAID   uint64      `gorm:"column:user_a_id;not null;index:idx_match_couple,priority:1"`
	UserBID   uint64      `gorm:"column:user_b_id;not null;index:idx_match_couple,priority:2"`
	Status    MatchStatus `gorm:"size:16;not null;index:idx_match_status_created,priority:1"`
	CreatedAt time.Time   `gorm:"index:idx_match_status_created,priority:2"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime"`
}

func (MatchRecord) TableName() string { return "match_records" }

// Involves reports whether userID is one half of the couple.
func (m MatchRecord) Involves(userID uint64) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// Partner returns the other half of the couple for userID.
func (m MatchRecord) Partner(userID uint64) uint64 {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}
