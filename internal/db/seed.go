package db

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	seedHobbies   = []string{"chess", "hiking", "yoga", "cooking", "cinema", "running", "painting", "travel", "reading", "climbing"}
	seedTraits    = []string{"introvert", "extrovert", "curious", "calm", "ambitious", "funny", "caring"}
	seedReligions = []string{"", "christian", "muslim", "jewish", "hindu", "none"}
)

// SeedTestData resets the database and populates it with demo users ready for
// a matching run.
//
// Behavior:
//  1. Clears existing data in `match_records` and `users` tables.
//  2. Creates 20 users (10 man, 10 woman) with hashed passwords.
//  3. Gives each user 2-4 hobbies, 1-3 traits and an optional religion.
//  4. Opts roughly 80% of them into the current cycle.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedTestData(db *gorm.DB, log *slog.Logger) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	if err := db.Exec("DELETE FROM match_records").Error; err != nil {
		return fmt.Errorf("failed to clear match records: %w", err)
	}
	if err := db.Exec("DELETE FROM users").Error; err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'users'")
	}

	log.Info("cleared existing data")

	// one hash is enough for demo accounts
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := make([]User, 0, 20)
	for i := 1; i <= 20; i++ {
		gender := "man"
		if i > 10 {
			gender = "woman"
		}

		users = append(users, User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Gender:       gender,
			Religion:     seedReligions[r.Intn(len(seedReligions))],
			Hobbies:      pick(r, seedHobbies, 2+r.Intn(3)),
			Traits:       pick(r, seedTraits, 1+r.Intn(3)),
			OptIn:        r.Intn(100) < 80,
		})
	}

	if err := db.Create(&users).Error; err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	optedIn := 0
	for _, u := range users {
		if u.OptIn {
			optedIn++
		}
	}
	log.Info("seeded users", "count", len(users), "opted_in", optedIn)

	return nil
}

// pick returns n distinct values from pool.
func pick(r *rand.Rand, pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]string, 0, n)
	for _, idx := range r.Perm(len(pool))[:n] {
		out = append(out, pool[idx])
	}
	return out
}
