package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agrilok/crop-assist/internal/config"
	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/google/uuid"
)

// AttachmentService manages the images attached to a chat. Uploads are
// validated against the media-type allow list and the per-chat cap before
// anything is persisted, so a rejected upload leaves no partial state.
type AttachmentService struct {
	attachments domain.AttachmentRepository
	chats       domain.ChatRepository
	maxPerChat  int
	allowed     map[string]struct{}
	locks       stripedLock
}

// NewAttachmentService creates a new attachment service
func NewAttachmentService(attachments domain.AttachmentRepository, chats domain.ChatRepository, cfg config.ChatConfig) *AttachmentService {
	allowed := make(map[string]struct{}, len(cfg.AllowedMediaTypes))
	for _, mt := range cfg.AllowedMediaTypes {
		allowed[strings.ToLower(mt)] = struct{}{}
	}
	return &AttachmentService{
		attachments: attachments,
		chats:       chats,
		maxPerChat:  cfg.MaxAttachments,
		allowed:     allowed,
	}
}

// normalizeMediaType lowercases the type and strips any parameters
// ("image/png; charset=binary" becomes "image/png").
func normalizeMediaType(mediaType string) string {
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// Add stores a new image for the chat. The count check and the insert happen
// under the chat's lock stripe so concurrent uploads cannot exceed the cap.
// Existing attachments are never displaced; once the cap is reached the
// caller must delete before adding.
func (s *AttachmentService) Add(ctx context.Context, userID, chatID uuid.UUID, filename, mediaType string, data []byte) (*domain.Attachment, error) {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	normalized := normalizeMediaType(mediaType)
	if _, ok := s.allowed[normalized]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMediaType, mediaType)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrUnsupportedMediaType)
	}

	mu := s.locks.acquire(chatID)
	defer mu.Unlock()

	count, err := s.attachments.CountByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attachments: %w", err)
	}
	if count >= int64(s.maxPerChat) {
		return nil, domain.ErrAttachmentLimitExceeded
	}

	attachment := &domain.Attachment{
		ID:        uuid.New(),
		ChatID:    chatID,
		UserID:    userID,
		Filename:  filename,
		MediaType: normalized,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.attachments.Insert(ctx, attachment); err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}
	return attachment, nil
}

// ListMetadata returns the chat's attachment metadata, oldest first.
func (s *AttachmentService) ListMetadata(ctx context.Context, userID, chatID uuid.UUID) ([]domain.AttachmentMeta, error) {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	metas, err := s.attachments.ListMetaByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if metas == nil {
		metas = []domain.AttachmentMeta{}
	}
	return metas, nil
}

// Fetch returns one attachment with its payload. A nil id means the most
// recently added attachment.
func (s *AttachmentService) Fetch(ctx context.Context, userID, chatID uuid.UUID, id *uuid.UUID) (*domain.Attachment, error) {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	if id == nil {
		return s.attachments.GetLatest(ctx, chatID)
	}
	return s.attachments.GetByID(ctx, chatID, *id)
}

// Remove deletes one attachment, or every attachment of the chat when id is
// nil.
func (s *AttachmentService) Remove(ctx context.Context, userID, chatID uuid.UUID, id *uuid.UUID) error {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return err
	}
	if id == nil {
		return s.attachments.DeleteByChat(ctx, chatID)
	}
	return s.attachments.DeleteByID(ctx, chatID, *id)
}

// ownedChat loads the chat and verifies ownership. A chat owned by someone
// else reads the same as a missing one.
func (s *AttachmentService) ownedChat(ctx context.Context, userID, chatID uuid.UUID) (*domain.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, domain.ErrChatNotFound
	}
	return chat, nil
}
