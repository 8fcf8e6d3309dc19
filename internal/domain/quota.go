package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// QuotaState tracks a user's privileged (expert) call consumption. Count is
// valid only for the calendar day of LastReset; crossing a day boundary
// zeroes it lazily on the next check.
type QuotaState struct {
	UserID    uuid.UUID `json:"user_id"`
	Count     int       `json:"count"`
	LastReset time.Time `json:"last_reset"`
}

// QuotaStatus is the caller-facing view of a user's remaining allowance.
type QuotaStatus struct {
	Remaining int  `json:"remaining"`
	Allowed   bool `json:"allowed"`
}

// QuotaRepository defines the interface for quota state storage
type QuotaRepository interface {
	// Get returns the user's state, or a zero-count state when none exists.
	Get(ctx context.Context, userID uuid.UUID) (*QuotaState, error)
	// Save upserts the user's state.
	Save(ctx context.Context, state *QuotaState) error
	// ExpertCallsSince counts privileged calls committed at or after the cutoff,
	// across all users.
	ExpertCallsSince(ctx context.Context, cutoff time.Time) (int64, error)
}
