package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"chatapp/internal/models"
)

// HistoryRepository records append-only audit rows. Rows are never
// updated or deleted once written.
type HistoryRepository interface {
	Append(ctx context.Context, userID int, action, details string, timestamp time.Time) (models.History, error)
}

// HistoryRepo is a sqlx implementation of HistoryRepository.
type HistoryRepo struct {
	db *sqlx.DB
}

// NewHistoryRepo constructs a HistoryRepo.
func NewHistoryRepo(db *sqlx.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Append inserts a history row.
func (r *HistoryRepo) Append(ctx context.Context, userID int, action, details string, timestamp time.Time) (models.History, error) {
	var entry models.History
	err := r.db.QueryRowxContext(ctx, `INSERT INTO history (user_id, action, details, timestamp) VALUES ($1, $2, $3, $4) RETURNING id, user_id, action, details, timestamp`,
		userID, action, details, timestamp).
		StructScan(&entry)
	return entry, err
}
