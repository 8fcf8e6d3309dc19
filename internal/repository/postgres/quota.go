package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// QuotaRepository implements domain.QuotaRepository
type QuotaRepository struct {
	db *DB
}

// NewQuotaRepository creates a new quota repository
func NewQuotaRepository(db *DB) *QuotaRepository {
	return &QuotaRepository{db: db}
}

// Get returns the user's quota row. Missing rows come back as a zero-count
// state dated now; the row is created lazily on the first Save.
func (r *QuotaRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.QuotaState, error) {
	query := `
		SELECT user_id, count, last_reset
		FROM expert_quotas
		WHERE user_id = $1
	`
	var s domain.QuotaState
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&s.UserID, &s.Count, &s.LastReset)
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.QuotaState{UserID: userID, Count: 0, LastReset: time.Now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quota state: %w", err)
	}
	return &s, nil
}

func (r *QuotaRepository) Save(ctx context.Context, state *domain.QuotaState) error {
	query := `
		INSERT INTO expert_quotas (user_id, count, last_reset)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET count = EXCLUDED.count, last_reset = EXCLUDED.last_reset
	`
	_, err := r.db.Pool.Exec(ctx, query, state.UserID, state.Count, state.LastReset)
	if err != nil {
		return fmt.Errorf("failed to save quota state: %w", err)
	}
	return nil
}

// ExpertCallsSince sums committed privileged calls whose counting window
// started at or after the cutoff. Used by admin stats.
func (r *QuotaRepository) ExpertCallsSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(count), 0) FROM expert_quotas WHERE last_reset >= $1`, cutoff,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum expert calls: %w", err)
	}
	return total, nil
}
