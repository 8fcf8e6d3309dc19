package postgres

import (
	"context"
	"fmt"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts a message at the end of the chat's log. A serial position
// column preserves exact append order even when timestamps collide.
func (r *MessageRepository) Append(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO chat_messages (id, chat_id, sender, content, attachment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		message.ID,
		message.ChatID,
		message.Sender,
		message.Content,
		message.AttachmentID,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListByChat returns the full log in append order, oldest first.
func (r *MessageRepository) ListByChat(ctx context.Context, chatID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT id, chat_id, sender, content, attachment_id, created_at
		FROM chat_messages
		WHERE chat_id = $1
		ORDER BY position ASC
	`
	rows, err := r.db.Pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var senderStr string
		if err := rows.Scan(
			&m.ID,
			&m.ChatID,
			&senderStr,
			&m.Content,
			&m.AttachmentID,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Sender = domain.MessageSender(senderStr)
		messages = append(messages, m)
	}
	return messages, nil
}

// Replace swaps the chat's entire log for the given messages in order.
func (r *MessageRepository) Replace(ctx context.Context, chatID uuid.UUID, messages []domain.Message) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	batch := &pgx.Batch{}
	for _, m := range messages {
		batch.Queue(
			`INSERT INTO chat_messages (id, chat_id, sender, content, attachment_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, chatID, m.Sender, m.Content, m.AttachmentID, m.CreatedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert messages: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit message replace: %w", err)
	}
	return nil
}

func (r *MessageRepository) SetAttachmentRef(ctx context.Context, messageID, attachmentID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE chat_messages SET attachment_id = $1 WHERE id = $2`, attachmentID, messageID,
	)
	if err != nil {
		return fmt.Errorf("failed to set attachment reference: %w", err)
	}
	return nil
}

// CountAll returns the total number of persisted messages.
func (r *MessageRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
