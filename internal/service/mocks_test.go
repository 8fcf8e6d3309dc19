package service

import (
	"context"
	"sync"
	"time"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/agrilok/crop-assist/internal/worker"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockChatRepository mocks the ChatRepository interface
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	args := m.Called(ctx, chat)
	return args.Error(0)
}

func (m *MockChatRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chat), args.Error(1)
}

func (m *MockChatRepository) UpdateLanguage(ctx context.Context, id uuid.UUID, language string) error {
	args := m.Called(ctx, id, language)
	return args.Error(0)
}

func (m *MockChatRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockChatRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChatRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockMessageRepository mocks the MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Append(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageRepository) ListByChat(ctx context.Context, chatID uuid.UUID) ([]domain.Message, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) Replace(ctx context.Context, chatID uuid.UUID, messages []domain.Message) error {
	args := m.Called(ctx, chatID, messages)
	return args.Error(0)
}

func (m *MockMessageRepository) SetAttachmentRef(ctx context.Context, messageID, attachmentID uuid.UUID) error {
	args := m.Called(ctx, messageID, attachmentID)
	return args.Error(0)
}

// MockAttachmentRepository mocks the AttachmentRepository interface
type MockAttachmentRepository struct {
	mock.Mock
}

func (m *MockAttachmentRepository) Insert(ctx context.Context, attachment *domain.Attachment) error {
	args := m.Called(ctx, attachment)
	return args.Error(0)
}

func (m *MockAttachmentRepository) CountByChat(ctx context.Context, chatID uuid.UUID) (int64, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttachmentRepository) ExistsByChat(ctx context.Context, chatID uuid.UUID) (bool, error) {
	args := m.Called(ctx, chatID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAttachmentRepository) ListMetaByChat(ctx context.Context, chatID uuid.UUID) ([]domain.AttachmentMeta, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttachmentMeta), args.Error(1)
}

func (m *MockAttachmentRepository) GetByID(ctx context.Context, chatID, id uuid.UUID) (*domain.Attachment, error) {
	args := m.Called(ctx, chatID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attachment), args.Error(1)
}

func (m *MockAttachmentRepository) GetLatest(ctx context.Context, chatID uuid.UUID) (*domain.Attachment, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attachment), args.Error(1)
}

func (m *MockAttachmentRepository) DeleteByID(ctx context.Context, chatID, id uuid.UUID) error {
	args := m.Called(ctx, chatID, id)
	return args.Error(0)
}

func (m *MockAttachmentRepository) DeleteByChat(ctx context.Context, chatID uuid.UUID) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

// MockQuotaRepository mocks the QuotaRepository interface
type MockQuotaRepository struct {
	mock.Mock
}

func (m *MockQuotaRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.QuotaState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuotaState), args.Error(1)
}

func (m *MockQuotaRepository) Save(ctx context.Context, state *domain.QuotaState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockQuotaRepository) ExpertCallsSince(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockDispatcher mocks the worker.Dispatcher interface
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Invoke(ctx context.Context, req worker.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockTokenCache mocks the TokenCache interface
type MockTokenCache struct {
	mock.Mock
}

func (m *MockTokenCache) Get(ctx context.Context, chatID uuid.UUID) (string, error) {
	args := m.Called(ctx, chatID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenCache) Set(ctx context.Context, chatID uuid.UUID, token string) error {
	args := m.Called(ctx, chatID, token)
	return args.Error(0)
}

func (m *MockTokenCache) Invalidate(ctx context.Context, chatID uuid.UUID) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

// memQuotaRepository is an in-memory quota store for concurrency tests,
// where mock call expectations would be unwieldy.
type memQuotaRepository struct {
	mu     sync.Mutex
	states map[uuid.UUID]*domain.QuotaState
}

func newMemQuotaRepository() *memQuotaRepository {
	return &memQuotaRepository{states: make(map[uuid.UUID]*domain.QuotaState)}
}

func (r *memQuotaRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.QuotaState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return &domain.QuotaState{UserID: userID, LastReset: time.Now()}, nil
}

func (r *memQuotaRepository) Save(ctx context.Context, state *domain.QuotaState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *state
	r.states[state.UserID] = &cp
	return nil
}

func (r *memQuotaRepository) ExpertCallsSince(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, s := range r.states {
		if !s.LastReset.Before(cutoff) {
			total += int64(s.Count)
		}
	}
	return total, nil
}
