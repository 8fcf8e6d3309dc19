package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageSender represents the sender of a message
type MessageSender string

const (
	SenderUser      MessageSender = "user"
	SenderAssistant MessageSender = "assistant"
)

// ImagePlaceholder is the sentinel content of a user message whose substance
// is an attached image. It is reconciled to an attachment id after the turn
// is persisted.
const ImagePlaceholder = "__image__"

// Chat represents a persisted conversation between one user and the assistant.
// SessionToken is generated once at creation and never regenerated; every
// worker invocation for this chat carries it so the worker keeps context.
type Chat struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	SessionToken string    `json:"-"`
	Language     string    `json:"language"`
	Messages     []Message `json:"messages,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message is one entry in a chat's ordered log.
type Message struct {
	ID           uuid.UUID     `json:"id"`
	ChatID       uuid.UUID     `json:"chat_id"`
	Sender       MessageSender `json:"sender"`
	Content      string        `json:"content"`
	AttachmentID *uuid.UUID    `json:"attachment_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// IsUnresolvedPlaceholder reports whether the message stands in for an image
// that has not been paired with its stored attachment yet.
func (m Message) IsUnresolvedPlaceholder() bool {
	return m.Sender == SenderUser && m.Content == ImagePlaceholder && m.AttachmentID == nil
}

// MessageDraft is an incoming message before persistence.
type MessageDraft struct {
	Sender  MessageSender `json:"sender" validate:"required,oneof=user assistant"`
	Content string        `json:"content" validate:"required"`
}

// ChatRepository defines the interface for chat storage
type ChatRepository interface {
	Create(ctx context.Context, chat *Chat) error
	GetByID(ctx context.Context, id uuid.UUID) (*Chat, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Chat, error)
	UpdateLanguage(ctx context.Context, id uuid.UUID, language string) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	Append(ctx context.Context, message *Message) error
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]Message, error)
	Replace(ctx context.Context, chatID uuid.UUID, messages []Message) error
	SetAttachmentRef(ctx context.Context, messageID, attachmentID uuid.UUID) error
}
