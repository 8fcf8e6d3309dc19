package service

import (
	"context"
	"fmt"
	"time"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/google/uuid"
)

// QuotaLedger enforces the daily expert-analysis allowance. All state changes
// for one user happen under that user's lock stripe, so a concurrent burst of
// reserve calls can never overshoot the limit.
//
// The reservation protocol is reserve-then-rollback: callers reserve before
// dispatching a privileged call and roll back if the call never produced an
// answer. A successful call simply keeps its reservation.
type QuotaLedger struct {
	repo  domain.QuotaRepository
	limit int
	locks stripedLock
	now   func() time.Time
}

// NewQuotaLedger creates a new quota ledger
func NewQuotaLedger(repo domain.QuotaRepository, dailyLimit int) *QuotaLedger {
	return &QuotaLedger{
		repo:  repo,
		limit: dailyLimit,
		now:   time.Now,
	}
}

// resetIfStale zeroes the count when the stored state belongs to an earlier
// calendar day. Reported true when a reset happened. Pure with respect to the
// clock so the midnight boundary is testable.
func resetIfStale(state *domain.QuotaState, now time.Time) bool {
	y1, m1, d1 := state.LastReset.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return false
	}
	state.Count = 0
	state.LastReset = now
	return true
}

// Status reports the user's remaining allowance. Its only side effect is
// persisting the lazy day-boundary reset.
func (l *QuotaLedger) Status(ctx context.Context, userID uuid.UUID) (*domain.QuotaStatus, error) {
	mu := l.locks.acquire(userID)
	defer mu.Unlock()

	state, err := l.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quota state: %w", err)
	}
	if resetIfStale(state, l.now()) {
		if err := l.repo.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("failed to persist quota reset: %w", err)
		}
	}
	return l.statusOf(state), nil
}

// Reserve consumes one unit of today's allowance. The check and the increment
// are a single step under the user's lock; when the allowance is spent it
// returns domain.ErrQuotaExhausted and changes nothing.
func (l *QuotaLedger) Reserve(ctx context.Context, userID uuid.UUID) error {
	mu := l.locks.acquire(userID)
	defer mu.Unlock()

	state, err := l.repo.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load quota state: %w", err)
	}
	resetIfStale(state, l.now())

	if state.Count >= l.limit {
		return domain.ErrQuotaExhausted
	}

	state.Count++
	if err := l.repo.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to persist quota reservation: %w", err)
	}
	return nil
}

// Rollback returns one previously reserved unit. The count never goes below
// zero, and a rollback that lands after midnight is dropped rather than
// crediting the new day.
func (l *QuotaLedger) Rollback(ctx context.Context, userID uuid.UUID) error {
	mu := l.locks.acquire(userID)
	defer mu.Unlock()

	state, err := l.repo.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load quota state: %w", err)
	}
	if resetIfStale(state, l.now()) || state.Count == 0 {
		return nil
	}

	state.Count--
	if err := l.repo.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to persist quota rollback: %w", err)
	}
	return nil
}

func (l *QuotaLedger) statusOf(state *domain.QuotaState) *domain.QuotaStatus {
	remaining := l.limit - state.Count
	if remaining < 0 {
		remaining = 0
	}
	return &domain.QuotaStatus{
		Remaining: remaining,
		Allowed:   remaining > 0,
	}
}
