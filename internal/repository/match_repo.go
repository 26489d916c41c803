package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match-cycle/internal/db"
)

// insertBatchSize bounds the rows per INSERT statement.
const insertBatchSize = 200

// MatchRepository provides data access methods for the MatchRecord model.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// FindByStatus returns all records with the given status, oldest first.
func (r *MatchRepository) FindByStatus(ctx context.Context, status db.MatchStatus) ([]db.MatchRecord, error) {
	var records []db.MatchRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountByStatus counts records with the given status.
func (r *MatchRepository) CountByStatus(ctx context.Context, status db.MatchStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.MatchRecord{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// FindHistory returns the couples that must never be paired again.
//
// Behavior:
//   - Only records in db.ExclusionStatuses (pending, revealed, accepted).
//   - Unmatched and stale couples are left out so they may recur.
//   - Only the couple columns are loaded.
func (r *MatchRepository) FindHistory(ctx context.Context) ([]db.MatchRecord, error) {
	var records []db.MatchRecord
	err := r.db.WithContext(ctx).
		Select("id", "user_a_id", "user_b_id", "status").
		Where("status IN ?", db.ExclusionStatuses).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// InsertMany writes all records in one transaction: either the whole batch of
// a create run lands or none of it does.
func (r *MatchRepository) InsertMany(ctx context.Context, records []db.MatchRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&records, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert match records: %w", err)
		}
		return nil
	})
}

// UpdateStatus moves records from one status to another and returns the ids
// that actually transitioned.
//
// Behavior:
//   - Each row is updated with "WHERE id = ? AND status = from", so records
//     already moved (by an earlier or concurrent run) are skipped.
//   - All updates share one transaction.
//
// Example:
//
//	repo.UpdateStatus(ctx, ids, db.StatusPending, db.StatusRevealed)
func (r *MatchRepository) UpdateStatus(
	ctx context.Context,
	ids []string,
	from, to db.MatchStatus,
) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if !to.Valid() {
		return nil, fmt.Errorf("invalid target status %q", to)
	}

	var moved []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moved = moved[:0]
		for _, id := range ids {
			res := tx.Model(&db.MatchRecord{}).
				Where("id = ? AND status = ?", id, from).
				Update("status", to)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				moved = append(moved, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}
