package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(repo domain.QuotaRepository, limit int, now time.Time) *QuotaLedger {
	ledger := NewQuotaLedger(repo, limit)
	ledger.now = func() time.Time { return now }
	return ledger
}

func TestResetIfStale(t *testing.T) {
	day := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		lastReset time.Time
		wantReset bool
	}{
		{"same day earlier hour", day.Add(-6 * time.Hour), false},
		{"same instant", day, false},
		{"previous day", day.Add(-24 * time.Hour), true},
		{"previous day just before midnight", time.Date(2025, 6, 9, 23, 59, 59, 0, time.UTC), true},
		{"same day just after midnight", time.Date(2025, 6, 10, 0, 0, 1, 0, time.UTC), false},
		{"weeks stale", day.Add(-30 * 24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &domain.QuotaState{Count: 2, LastReset: tt.lastReset}
			reset := resetIfStale(state, day)
			assert.Equal(t, tt.wantReset, reset)
			if reset {
				assert.Zero(t, state.Count)
				assert.Equal(t, day, state.LastReset)
			} else {
				assert.Equal(t, 2, state.Count)
				assert.Equal(t, tt.lastReset, state.LastReset)
			}
		})
	}
}

func TestQuotaLedger_ReserveUntilExhausted(t *testing.T) {
	repo := newMemQuotaRepository()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	ledger := newTestLedger(repo, 2, now)
	userID := uuid.New()
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, userID))
	require.NoError(t, ledger.Reserve(ctx, userID))

	err := ledger.Reserve(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrQuotaExhausted)

	status, err := ledger.Status(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, status.Remaining)
	assert.False(t, status.Allowed)
}

func TestQuotaLedger_SingleResetAtDayBoundary(t *testing.T) {
	repo := newMemQuotaRepository()
	yesterday := time.Date(2025, 6, 9, 22, 0, 0, 0, time.UTC)
	ledger := newTestLedger(repo, 2, yesterday)
	userID := uuid.New()
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, userID))
	require.NoError(t, ledger.Reserve(ctx, userID))
	assert.ErrorIs(t, ledger.Reserve(ctx, userID), domain.ErrQuotaExhausted)

	// Crossing midnight restores the full allowance exactly once.
	today := time.Date(2025, 6, 10, 0, 5, 0, 0, time.UTC)
	ledger.now = func() time.Time { return today }

	status, err := ledger.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Remaining)
	assert.True(t, status.Allowed)

	require.NoError(t, ledger.Reserve(ctx, userID))

	// A later check on the same day must not reset again.
	later := today.Add(10 * time.Hour)
	ledger.now = func() time.Time { return later }

	status, err = ledger.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Remaining)
}

func TestQuotaLedger_RollbackFloorsAtZero(t *testing.T) {
	repo := newMemQuotaRepository()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	ledger := newTestLedger(repo, 2, now)
	userID := uuid.New()
	ctx := context.Background()

	// Rollback with nothing reserved is a no-op.
	require.NoError(t, ledger.Rollback(ctx, userID))

	status, err := ledger.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Remaining)

	require.NoError(t, ledger.Reserve(ctx, userID))
	require.NoError(t, ledger.Rollback(ctx, userID))
	require.NoError(t, ledger.Rollback(ctx, userID))

	status, err = ledger.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Remaining)
}

func TestQuotaLedger_RollbackAfterMidnightIsDropped(t *testing.T) {
	repo := newMemQuotaRepository()
	yesterday := time.Date(2025, 6, 9, 23, 50, 0, 0, time.UTC)
	ledger := newTestLedger(repo, 2, yesterday)
	userID := uuid.New()
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, userID))

	today := time.Date(2025, 6, 10, 0, 10, 0, 0, time.UTC)
	ledger.now = func() time.Time { return today }
	require.NoError(t, ledger.Rollback(ctx, userID))

	status, err := ledger.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Remaining)
}

func TestQuotaLedger_ConcurrentReservesNeverOvershoot(t *testing.T) {
	repo := newMemQuotaRepository()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	ledger := newTestLedger(repo, 2, now)
	userID := uuid.New()
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.Reserve(ctx, userID)
		}()
	}
	wg.Wait()
	close(results)

	granted := 0
	for err := range results {
		if err == nil {
			granted++
		} else {
			assert.ErrorIs(t, err, domain.ErrQuotaExhausted)
		}
	}
	assert.Equal(t, 2, granted)
}
