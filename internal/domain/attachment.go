package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Attachment is an immutable binary image associated with a chat. Up to the
// configured cap coexist per chat; removal is always an explicit delete,
// never a side effect of sending another message.
type Attachment struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	UserID    uuid.UUID `json:"user_id"`
	Filename  string    `json:"filename,omitempty"`
	MediaType string    `json:"media_type"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// AttachmentMeta is the listing view of an attachment, without the payload.
type AttachmentMeta struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename,omitempty"`
	MediaType string    `json:"media_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Meta returns the attachment's metadata view.
func (a *Attachment) Meta() AttachmentMeta {
	return AttachmentMeta{
		ID:        a.ID,
		Filename:  a.Filename,
		MediaType: a.MediaType,
		CreatedAt: a.CreatedAt,
	}
}

// AttachmentRepository defines the interface for attachment storage
type AttachmentRepository interface {
	Insert(ctx context.Context, attachment *Attachment) error
	CountByChat(ctx context.Context, chatID uuid.UUID) (int64, error)
	ExistsByChat(ctx context.Context, chatID uuid.UUID) (bool, error)
	ListMetaByChat(ctx context.Context, chatID uuid.UUID) ([]AttachmentMeta, error)
	GetByID(ctx context.Context, chatID, id uuid.UUID) (*Attachment, error)
	GetLatest(ctx context.Context, chatID uuid.UUID) (*Attachment, error)
	DeleteByID(ctx context.Context, chatID, id uuid.UUID) error
	DeleteByChat(ctx context.Context, chatID uuid.UUID) error
}
