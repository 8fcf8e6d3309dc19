package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/agrilok/crop-assist/internal/language"
	"github.com/agrilok/crop-assist/internal/worker"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ChatService owns the chat lifecycle and orchestrates inference turns.
type ChatService struct {
	chats       domain.ChatRepository
	messages    domain.MessageRepository
	attachments domain.AttachmentRepository
	uploads     *AttachmentService
	sessions    *SessionRegistry
	quota       *QuotaLedger
	dispatcher  worker.Dispatcher
}

// NewChatService creates a new chat service
func NewChatService(
	chats domain.ChatRepository,
	messages domain.MessageRepository,
	attachments domain.AttachmentRepository,
	uploads *AttachmentService,
	sessions *SessionRegistry,
	quota *QuotaLedger,
	dispatcher worker.Dispatcher,
) *ChatService {
	return &ChatService{
		chats:       chats,
		messages:    messages,
		attachments: attachments,
		uploads:     uploads,
		sessions:    sessions,
		quota:       quota,
		dispatcher:  dispatcher,
	}
}

// AttachmentUpload is an image arriving alongside a message.
type AttachmentUpload struct {
	Filename  string
	MediaType string
	Data      []byte
}

// SendMessageInput carries one user turn.
type SendMessageInput struct {
	Question string
	Expert   bool
	// WithImage asks the worker to ground the answer on a previously
	// uploaded attachment even when this request carries none.
	WithImage bool
	Upload    *AttachmentUpload
}

// SendMessageResult is the outcome of one turn.
type SendMessageResult struct {
	Answer string `json:"answer"`
	// FellBackToText is set when an image-grounded call found no usable
	// attachment and was re-dispatched as plain text.
	FellBackToText bool                `json:"fell_back_to_text,omitempty"`
	AttachmentID   *uuid.UUID          `json:"attachment_id,omitempty"`
	Quota          *domain.QuotaStatus `json:"quota,omitempty"`
}

// Create starts a new chat for the user. The session token is minted here
// and never changes for the chat's lifetime. Initial messages, if any, seed
// the language detection.
func (s *ChatService) Create(ctx context.Context, userID uuid.UUID, drafts []domain.MessageDraft) (*domain.Chat, error) {
	now := time.Now().UTC()
	chat := &domain.Chat{
		ID:           uuid.New(),
		UserID:       userID,
		SessionToken: NewSessionToken(),
		Language:     language.English,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	msgs := draftsToMessages(chat.ID, drafts, now)
	if lang := language.DetectFromMessages(msgs); lang != "" {
		chat.Language = lang
	}

	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	for i := range msgs {
		if err := s.messages.Append(ctx, &msgs[i]); err != nil {
			return nil, fmt.Errorf("failed to store initial message: %w", err)
		}
	}

	s.sessions.Prime(ctx, chat.ID, chat.SessionToken)
	chat.Messages = msgs
	return chat, nil
}

// List returns the user's chats, most recently updated first, without
// message logs.
func (s *ChatService) List(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	chats, err := s.chats.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	return chats, nil
}

// Get returns one chat with its full message log.
func (s *ChatService) Get(ctx context.Context, userID, chatID uuid.UUID) (*domain.Chat, error) {
	chat, err := s.ownedChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	chat.Messages = msgs
	return chat, nil
}

// ReplaceMessages swaps the chat's entire message log and re-detects its
// language. The session token and attachments are untouched.
func (s *ChatService) ReplaceMessages(ctx context.Context, userID, chatID uuid.UUID, drafts []domain.MessageDraft) (*domain.Chat, error) {
	chat, err := s.ownedChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msgs := draftsToMessages(chatID, drafts, now)
	if err := s.messages.Replace(ctx, chatID, msgs); err != nil {
		return nil, fmt.Errorf("failed to replace messages: %w", err)
	}

	if lang := language.DetectFromMessages(msgs); lang != chat.Language {
		if err := s.chats.UpdateLanguage(ctx, chatID, lang); err != nil {
			log.Error().Err(err).Str("chat_id", chatID.String()).Msg("failed to update chat language")
		} else {
			chat.Language = lang
		}
	}
	if err := s.chats.Touch(ctx, chatID, now); err != nil {
		log.Error().Err(err).Str("chat_id", chatID.String()).Msg("failed to touch chat")
	}

	chat.Messages = msgs
	chat.UpdatedAt = now
	return chat, nil
}

// Delete removes the chat, its messages and its attachments, and drops the
// cached session token.
func (s *ChatService) Delete(ctx context.Context, userID, chatID uuid.UUID) error {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return err
	}
	if err := s.attachments.DeleteByChat(ctx, chatID); err != nil {
		return fmt.Errorf("failed to delete chat attachments: %w", err)
	}
	s.sessions.Forget(ctx, chatID)
	return s.chats.Delete(ctx, chatID)
}

// ClearAll deletes every chat the user owns.
func (s *ChatService) ClearAll(ctx context.Context, userID uuid.UUID) error {
	chats, err := s.chats.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for i := range chats {
		if err := s.attachments.DeleteByChat(ctx, chats[i].ID); err != nil {
			return fmt.Errorf("failed to delete chat attachments: %w", err)
		}
		s.sessions.Forget(ctx, chats[i].ID)
	}
	return s.chats.DeleteByUser(ctx, userID)
}

// SendMessage runs one inference turn.
//
// Order matters: an upload that fails aborts the turn before any quota is
// touched or any worker spawned; a refused reservation aborts before
// dispatch; a dispatch failure rolls the reservation back. Once the worker
// has produced an answer the reservation is final, and persistence problems
// after that point are logged but do not withhold the answer.
func (s *ChatService) SendMessage(ctx context.Context, userID, chatID uuid.UUID, input SendMessageInput) (*SendMessageResult, error) {
	chat, err := s.ownedChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	token, err := s.sessions.ResolveOrCreate(ctx, chatID)
	if err != nil {
		return nil, err
	}

	var uploaded *domain.Attachment
	if input.Upload != nil {
		uploaded, err = s.uploads.Add(ctx, userID, chatID, input.Upload.Filename, input.Upload.MediaType, input.Upload.Data)
		if err != nil {
			return nil, err
		}
	}
	withImage := input.WithImage || uploaded != nil

	reserved := false
	if input.Expert {
		if err := s.quota.Reserve(ctx, userID); err != nil {
			return nil, err
		}
		reserved = true
	}

	shape := shapeFor(input.Expert, withImage)
	req := worker.Request{
		Shape:        shape,
		Question:     input.Question,
		SessionToken: token,
		ChatID:       chatID,
	}

	answer, err := s.dispatcher.Invoke(ctx, req)
	fellBack := false
	if err != nil && withImage && errors.Is(err, domain.ErrNoAttachmentForInference) {
		fellBack = true
		req.Shape = shape.TextOnly()
		answer, err = s.dispatcher.Invoke(ctx, req)
	}
	if err != nil {
		if reserved {
			if rbErr := s.quota.Rollback(ctx, userID); rbErr != nil {
				log.Error().Err(rbErr).Str("user_id", userID.String()).Msg("failed to roll back quota reservation")
			}
		}
		return nil, err
	}

	s.persistTurn(ctx, chat, input.Question, answer, uploaded)

	result := &SendMessageResult{
		Answer:         answer,
		FellBackToText: fellBack,
	}
	if uploaded != nil {
		result.AttachmentID = &uploaded.ID
	}
	if input.Expert {
		status, statusErr := s.quota.Status(ctx, userID)
		if statusErr != nil {
			log.Warn().Err(statusErr).Str("user_id", userID.String()).Msg("failed to read quota status")
		} else {
			result.Quota = status
		}
	}
	return result, nil
}

// persistTurn appends the turn's messages and refreshes chat metadata. The
// answer is already in hand, so failures here are logged rather than
// surfaced.
func (s *ChatService) persistTurn(ctx context.Context, chat *domain.Chat, question, answer string, uploaded *domain.Attachment) {
	now := time.Now().UTC()
	chatID := chat.ID

	if uploaded != nil {
		placeholder := &domain.Message{
			ID:           uuid.New(),
			ChatID:       chatID,
			Sender:       domain.SenderUser,
			Content:      domain.ImagePlaceholder,
			AttachmentID: &uploaded.ID,
			CreatedAt:    now,
		}
		if err := s.messages.Append(ctx, placeholder); err != nil {
			log.Error().Err(err).Str("chat_id", chatID.String()).Msg("failed to store image placeholder message")
		}
	}

	if strings.TrimSpace(question) != "" {
		userMsg := &domain.Message{
			ID:        uuid.New(),
			ChatID:    chatID,
			Sender:    domain.SenderUser,
			Content:   question,
			CreatedAt: now,
		}
		if err := s.messages.Append(ctx, userMsg); err != nil {
			log.Error().Err(err).Str("chat_id", chatID.String()).Msg("failed to store user message")
		}
	}

	assistantMsg := &domain.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		Sender:    domain.SenderAssistant,
		Content:   answer,
		CreatedAt: now,
	}
	if err := s.messages.Append(ctx, assistantMsg); err != nil {
		log.Error().Err(err).Str("chat_id", chatID.String()).Msg("failed to store assistant message")
	}

	if err := s.reconcileAttachments(ctx, chatID); err != nil {
		log.Warn().Err(err).Str("chat_id", chatID.String()).Msg("attachment reconciliation failed")
	}

	if lang := language.Detect(question); strings.TrimSpace(question) != "" && lang != chat.Language {
		if err := s.chats.UpdateLanguage(ctx, chatID, lang); err != nil {
			log.Error().Err(err).Str("chat_id", chatID.String()).Msg("failed to update chat language")
		}
	}
	if err := s.chats.Touch(ctx, chatID, now); err != nil {
		log.Error().Err(err).Str("chat_id", chatID.String()).Msg("failed to touch chat")
	}
}

// reconcileAttachments pairs unresolved image placeholder messages with
// stored attachments by zipping both in chronological order, skipping
// attachments some message already references.
func (s *ChatService) reconcileAttachments(ctx context.Context, chatID uuid.UUID) error {
	msgs, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return err
	}
	metas, err := s.attachments.ListMetaByChat(ctx, chatID)
	if err != nil {
		return err
	}

	claimed := make(map[uuid.UUID]bool, len(msgs))
	for i := range msgs {
		if msgs[i].AttachmentID != nil {
			claimed[*msgs[i].AttachmentID] = true
		}
	}

	next := 0
	for i := range msgs {
		if !msgs[i].IsUnresolvedPlaceholder() {
			continue
		}
		for next < len(metas) && claimed[metas[next].ID] {
			next++
		}
		if next >= len(metas) {
			break
		}
		if err := s.messages.SetAttachmentRef(ctx, msgs[i].ID, metas[next].ID); err != nil {
			return err
		}
		claimed[metas[next].ID] = true
		next++
	}
	return nil
}

func (s *ChatService) ownedChat(ctx context.Context, userID, chatID uuid.UUID) (*domain.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, domain.ErrChatNotFound
	}
	return chat, nil
}

func shapeFor(expert, withImage bool) worker.CallShape {
	switch {
	case expert && withImage:
		return worker.ShapeExpertImage
	case expert:
		return worker.ShapeExpert
	case withImage:
		return worker.ShapeStandardImage
	default:
		return worker.ShapeStandard
	}
}

func draftsToMessages(chatID uuid.UUID, drafts []domain.MessageDraft, at time.Time) []domain.Message {
	msgs := make([]domain.Message, len(drafts))
	for i, d := range drafts {
		msgs[i] = domain.Message{
			ID:        uuid.New(),
			ChatID:    chatID,
			Sender:    d.Sender,
			Content:   d.Content,
			CreatedAt: at,
		}
	}
	return msgs
}
