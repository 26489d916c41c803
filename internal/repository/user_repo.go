package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match-cycle/internal/db"
)

// UserRepository is the match cycle's read-mostly view of the profile store.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// FindOptedIn returns every user opted into the current cycle, ordered by id.
func (r *UserRepository) FindOptedIn(ctx context.Context) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("opt_in = ?", true).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ResetOptIn clears the opt-in flag for the given users.
//
// Behavior:
//   - Only rows still opted in are touched, so a repeated call affects 0 rows.
//   - An empty id list is a no-op.
//
// Example:
//
//	repo.ResetOptIn(ctx, []uint64{1, 2}) // -> 2 on first call, 0 afterwards
func (r *UserRepository) ResetOptIn(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id IN ? AND opt_in = ?", ids, true).
		Update("opt_in", false)
	return res.RowsAffected, res.Error
}
