package service

import (
	"context"
	"fmt"
	"time"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/google/uuid"
)

// FeedbackService handles feedback submission and moderation.
type FeedbackService struct {
	feedback domain.FeedbackRepository
	users    domain.UserRepository
}

// NewFeedbackService creates a new feedback service
func NewFeedbackService(feedback domain.FeedbackRepository, users domain.UserRepository) *FeedbackService {
	return &FeedbackService{feedback: feedback, users: users}
}

// Submit stores new feedback from a user. Submitter name and email are
// denormalized at submission time so moderation survives account deletion.
func (s *FeedbackService) Submit(ctx context.Context, userID uuid.UUID, input domain.FeedbackCreate) (*domain.Feedback, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submitter: %w", err)
	}

	category := input.Category
	if category == "" {
		category = domain.FeedbackCategoryOther
	}
	if input.Rating != "" && input.Category == "" {
		category = domain.FeedbackCategoryResponse
	}

	now := time.Now().UTC()
	fb := &domain.Feedback{
		ID:             uuid.New(),
		UserID:         userID,
		UserName:       user.Name,
		UserEmail:      user.Email,
		ChatID:         input.ChatID,
		MessageID:      input.MessageID,
		MessageContent: input.MessageContent,
		Rating:         input.Rating,
		Subject:        input.Subject,
		Message:        input.Message,
		Category:       category,
		Status:         domain.FeedbackStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}
	return fb, nil
}

// ListOwn returns the user's own submissions, newest first.
func (s *FeedbackService) ListOwn(ctx context.Context, userID uuid.UUID) ([]domain.Feedback, error) {
	items, err := s.feedback.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Feedback{}
	}
	return items, nil
}

// ListAll returns feedback across all users, optionally filtered by status
// and category. Admin only; the caller enforces the gate.
func (s *FeedbackService) ListAll(ctx context.Context, filter domain.FeedbackFilter) ([]domain.Feedback, error) {
	items, err := s.feedback.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Feedback{}
	}
	return items, nil
}

// Update applies an admin status or notes change.
func (s *FeedbackService) Update(ctx context.Context, id uuid.UUID, input domain.FeedbackUpdate) (*domain.Feedback, error) {
	fb, err := s.feedback.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Status != nil {
		fb.Status = *input.Status
	}
	if input.AdminNotes != nil {
		fb.AdminNotes = *input.AdminNotes
	}
	fb.UpdatedAt = time.Now().UTC()

	if err := s.feedback.Update(ctx, fb); err != nil {
		return nil, fmt.Errorf("failed to update feedback: %w", err)
	}
	return fb, nil
}

// Delete removes a feedback entry.
func (s *FeedbackService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.feedback.Delete(ctx, id)
}
