package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Feedback categories
const (
	FeedbackCategoryBug         = "bug"
	FeedbackCategoryFeature     = "feature"
	FeedbackCategoryImprovement = "improvement"
	FeedbackCategoryOther       = "other"
	FeedbackCategoryResponse    = "response"
)

// Feedback statuses
const (
	FeedbackStatusPending   = "pending"
	FeedbackStatusReviewed  = "reviewed"
	FeedbackStatusResolved  = "resolved"
	FeedbackStatusDismissed = "dismissed"
)

// Feedback represents user feedback, either free-form or a thumbs rating on
// an assistant response.
type Feedback struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	UserName       string     `json:"user_name"`
	UserEmail      string     `json:"user_email"`
	ChatID         *uuid.UUID `json:"chat_id,omitempty"`
	MessageID      *uuid.UUID `json:"message_id,omitempty"`
	MessageContent string     `json:"message_content,omitempty"`
	Rating         string     `json:"rating,omitempty"`
	Subject        string     `json:"subject,omitempty"`
	Message        string     `json:"message,omitempty"`
	Category       string     `json:"category"`
	Status         string     `json:"status"`
	AdminNotes     string     `json:"admin_notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FeedbackCreate represents feedback submission data
type FeedbackCreate struct {
	Subject        string     `json:"subject" validate:"omitempty,max=255"`
	Message        string     `json:"message" validate:"omitempty,max=4000"`
	Category       string     `json:"category" validate:"omitempty,oneof=bug feature improvement other response"`
	Rating         string     `json:"rating" validate:"omitempty,oneof=positive negative"`
	ChatID         *uuid.UUID `json:"chat_id,omitempty"`
	MessageID      *uuid.UUID `json:"message_id,omitempty"`
	MessageContent string     `json:"message_content,omitempty"`
}

// FeedbackUpdate represents an admin status/notes update
type FeedbackUpdate struct {
	Status     *string `json:"status,omitempty" validate:"omitempty,oneof=pending reviewed resolved dismissed"`
	AdminNotes *string `json:"admin_notes,omitempty" validate:"omitempty,max=4000"`
}

// FeedbackFilter narrows admin feedback listings.
type FeedbackFilter struct {
	Status   string
	Category string
}

// FeedbackRepository defines the interface for feedback storage
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *Feedback) error
	GetByID(ctx context.Context, id uuid.UUID) (*Feedback, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Feedback, error)
	List(ctx context.Context, filter FeedbackFilter) ([]Feedback, error)
	Update(ctx context.Context, feedback *Feedback) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}
