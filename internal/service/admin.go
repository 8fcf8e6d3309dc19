package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/google/uuid"
)

// ChatStatsRepository provides aggregate chat counts.
type ChatStatsRepository interface {
	Count(ctx context.Context) (int64, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// MessageStatsRepository provides aggregate message counts.
type MessageStatsRepository interface {
	CountAll(ctx context.Context) (int64, error)
}

// AdminStats is the platform-wide dashboard aggregate.
type AdminStats struct {
	Users            int64 `json:"users"`
	Chats            int64 `json:"chats"`
	Messages         int64 `json:"messages"`
	Feedback         int64 `json:"feedback"`
	ExpertCallsToday int64 `json:"expert_calls_today"`
}

// AdminService handles user administration and platform stats.
type AdminService struct {
	users       domain.UserRepository
	chats       domain.ChatRepository
	chatStats   ChatStatsRepository
	msgStats    MessageStatsRepository
	attachments domain.AttachmentRepository
	feedback    domain.FeedbackRepository
	quotas      domain.QuotaRepository
}

// NewAdminService creates a new admin service
func NewAdminService(
	users domain.UserRepository,
	chats domain.ChatRepository,
	chatStats ChatStatsRepository,
	msgStats MessageStatsRepository,
	attachments domain.AttachmentRepository,
	feedback domain.FeedbackRepository,
	quotas domain.QuotaRepository,
) *AdminService {
	return &AdminService{
		users:       users,
		chats:       chats,
		chatStats:   chatStats,
		msgStats:    msgStats,
		attachments: attachments,
		feedback:    feedback,
		quotas:      quotas,
	}
}

// ListUsers returns every user with their expert usage count.
func (s *AdminService) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.UserSummary{}
	}
	return users, nil
}

// GetUser returns one user enriched with chat count and expert usage.
func (s *AdminService) GetUser(ctx context.Context, id uuid.UUID) (*domain.UserSummary, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	chatCount, err := s.chatStats.CountByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count chats: %w", err)
	}
	quota, err := s.quotas.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load quota state: %w", err)
	}

	return &domain.UserSummary{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		ExpertCount: quota.Count,
		ChatCount:   chatCount,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}, nil
}

// UpdateRole changes a user's role.
func (s *AdminService) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return fmt.Errorf("invalid role %q", role)
	}
	return s.users.UpdateRole(ctx, id, role)
}

// DeleteUser removes a non-admin user together with their chats and
// attachments. Feedback is kept; submitter identity is denormalized there.
func (s *AdminService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == domain.RoleAdmin {
		return errors.New("cannot delete an admin account")
	}

	chats, err := s.chats.ListByUser(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}
	for i := range chats {
		if err := s.attachments.DeleteByChat(ctx, chats[i].ID); err != nil {
			return fmt.Errorf("failed to delete chat attachments: %w", err)
		}
	}
	if err := s.chats.DeleteByUser(ctx, id); err != nil {
		return fmt.Errorf("failed to delete chats: %w", err)
	}

	return s.users.Delete(ctx, id)
}

// Stats aggregates platform-wide counts. Expert calls today are counted from
// the local midnight boundary, matching the quota's reset semantics.
func (s *AdminService) Stats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{}
	var err error

	if stats.Users, err = s.users.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.Chats, err = s.chatStats.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count chats: %w", err)
	}
	if stats.Messages, err = s.msgStats.CountAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	if stats.Feedback, err = s.feedback.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if stats.ExpertCallsToday, err = s.quotas.ExpertCallsSince(ctx, midnight); err != nil {
		return nil, fmt.Errorf("failed to count expert calls: %w", err)
	}

	return stats, nil
}
