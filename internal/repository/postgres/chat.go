package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ChatRepository implements domain.ChatRepository
type ChatRepository struct {
	db *DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	query := `
		INSERT INTO chats (id, user_id, session_token, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		chat.ID,
		chat.UserID,
		chat.SessionToken,
		chat.Language,
		chat.CreatedAt,
		chat.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	query := `
		SELECT id, user_id, session_token, language, created_at, updated_at
		FROM chats
		WHERE id = $1
	`
	var c domain.Chat
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.UserID,
		&c.SessionToken,
		&c.Language,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &c, nil
}

func (r *ChatRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	query := `
		SELECT id, user_id, session_token, language, created_at, updated_at
		FROM chats
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var c domain.Chat
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.SessionToken,
			&c.Language,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, nil
}

func (r *ChatRepository) UpdateLanguage(ctx context.Context, id uuid.UUID, language string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE chats SET language = $1, updated_at = now() WHERE id = $2`, language, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update chat language: %w", err)
	}
	return nil
}

func (r *ChatRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE chats SET updated_at = $1 WHERE id = $2`, at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}
	return nil
}

// Delete removes a chat; messages cascade via the schema's foreign key.
// Attachment documents live in the binary store and are removed by the
// service layer before this is called.
func (r *ChatRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChatNotFound
	}
	return nil
}

func (r *ChatRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM chats WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete chats for user: %w", err)
	}
	return nil
}

// Count returns the total number of chats.
func (r *ChatRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM chats`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chats: %w", err)
	}
	return count, nil
}

// CountByUser returns how many chats a user owns.
func (r *ChatRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chats WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chats for user: %w", err)
	}
	return count, nil
}
