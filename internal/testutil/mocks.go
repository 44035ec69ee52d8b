// Package testutil provides shared mocks, fixtures and helpers for
// testing the social-chat gateway and mention pipeline.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"social-chat/internal/domain"
)

// Common test errors
var (
	ErrMockStore  = errors.New("mock: store unavailable")
	ErrMockBroker = errors.New("mock: broker unavailable")
)

// MockParticipantReader implements domain.ParticipantReader over an in-memory
// membership table. Every call is counted so tests can assert re-checks.
type MockParticipantReader struct {
	mu sync.RWMutex

	IsUserInChatFunc func(ctx context.Context, chatID, userID int64) (bool, error)

	Members map[int64]map[int64]bool
	calls   int
}

// NewMockParticipantReader creates a reader with no members
func NewMockParticipantReader() *MockParticipantReader {
	return &MockParticipantReader{Members: make(map[int64]map[int64]bool)}
}

// Add makes userID a participant of chatID
func (m *MockParticipantReader) Add(chatID, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Members[chatID] == nil {
		m.Members[chatID] = make(map[int64]bool)
	}
	m.Members[chatID][userID] = true
}

// Remove revokes userID's participation in chatID
func (m *MockParticipantReader) Remove(chatID, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Members[chatID], userID)
}

func (m *MockParticipantReader) IsUserInChat(ctx context.Context, chatID, userID int64) (bool, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.IsUserInChatFunc != nil {
		return m.IsUserInChatFunc(ctx, chatID, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Members[chatID][userID], nil
}

// Calls returns how many membership checks were made
func (m *MockParticipantReader) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// MockMessageStore implements domain.MessageStore and domain.ReadMarker in memory
type MockMessageStore struct {
	mu sync.RWMutex

	SaveFunc     func(ctx context.Context, chatID, senderID int64, receiverID *int64, body string) (*domain.Message, error)
	EditFunc     func(ctx context.Context, id, chatID, senderID int64, body string) (*domain.Message, error)
	DeleteFunc   func(ctx context.Context, id, chatID, senderID int64) (bool, error)
	MarkReadFunc func(ctx context.Context, id, chatID int64) error

	Messages map[int64]*domain.Message
	nextID   int64
	saves    int
}

// NewMockMessageStore creates an empty store
func NewMockMessageStore() *MockMessageStore {
	return &MockMessageStore{Messages: make(map[int64]*domain.Message)}
}

func (m *MockMessageStore) Save(ctx context.Context, chatID, senderID int64, receiverID *int64, body string) (*domain.Message, error) {
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()

	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, chatID, senderID, receiverID, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := time.Now().UTC()
	msg := &domain.Message{
		ID:         m.nextID,
		ChatID:     chatID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.Messages[msg.ID] = msg
	copied := *msg
	return &copied, nil
}

func (m *MockMessageStore) Edit(ctx context.Context, id, chatID, senderID int64, body string) (*domain.Message, error) {
	if m.EditFunc != nil {
		return m.EditFunc(ctx, id, chatID, senderID, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.Messages[id]
	if !ok || msg.ChatID != chatID || msg.SenderID != senderID {
		return nil, domain.ErrMessageNotFound
	}
	msg.Body = body
	msg.UpdatedAt = time.Now().UTC()
	copied := *msg
	return &copied, nil
}

func (m *MockMessageStore) Delete(ctx context.Context, id, chatID, senderID int64) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id, chatID, senderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.Messages[id]
	if !ok || msg.ChatID != chatID || msg.SenderID != senderID {
		return false, nil
	}
	delete(m.Messages, id)
	return true, nil
}

func (m *MockMessageStore) MarkRead(ctx context.Context, id, chatID int64) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, id, chatID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.Messages[id]
	if !ok || msg.ChatID != chatID {
		return domain.ErrMessageNotFound
	}
	now := time.Now().UTC()
	msg.IsRead = true
	msg.ReadAt = &now
	return nil
}

// SaveCalls returns how many times Save was invoked
func (m *MockMessageStore) SaveCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Get returns a copy of a stored message
func (m *MockMessageStore) Get(id int64) (*domain.Message, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.Messages[id]
	if !ok {
		return nil, false
	}
	copied := *msg
	return &copied, true
}

// MockUserLookup implements domain.UserLookup over a handle map
type MockUserLookup struct {
	mu sync.RWMutex

	FindByHandleFunc func(ctx context.Context, handle string) (*domain.User, error)

	Users map[string]*domain.User
}

// NewMockUserLookup creates a lookup holding the given users
func NewMockUserLookup(users ...*domain.User) *MockUserLookup {
	m := &MockUserLookup{Users: make(map[string]*domain.User)}
	for _, u := range users {
		m.Users[u.Handle] = u
	}
	return m
}

func (m *MockUserLookup) FindByHandle(ctx context.Context, handle string) (*domain.User, error) {
	if m.FindByHandleFunc != nil {
		return m.FindByHandleFunc(ctx, handle)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Users[handle], nil
}

// MockMentionRepository implements domain.MentionRepository in memory
type MockMentionRepository struct {
	mu sync.RWMutex

	CreateFunc func(ctx context.Context, mention *domain.Mention) error

	Mentions []*domain.Mention
	nextID   int64
}

// NewMockMentionRepository creates an empty repository
func NewMockMentionRepository() *MockMentionRepository {
	return &MockMentionRepository{}
}

func (m *MockMentionRepository) Create(ctx context.Context, mention *domain.Mention) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, mention)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	mention.ID = m.nextID
	if mention.CreatedAt.IsZero() {
		mention.CreatedAt = time.Now().UTC()
	}
	m.Mentions = append(m.Mentions, mention)
	return nil
}

// All returns the recorded mentions
func (m *MockMentionRepository) All() []*domain.Mention {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Mention{}, m.Mentions...)
}

// MockNotificationSender implements domain.NotificationSender and records events
type MockNotificationSender struct {
	mu sync.RWMutex

	PublishFunc func(ctx context.Context, event *domain.NotificationEvent) error

	Events []*domain.NotificationEvent
}

// NewMockNotificationSender creates a sender with no recorded events
func NewMockNotificationSender() *MockNotificationSender {
	return &MockNotificationSender{}
}

func (m *MockNotificationSender) Publish(ctx context.Context, event *domain.NotificationEvent) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

// Published returns all recorded events
func (m *MockNotificationSender) Published() []*domain.NotificationEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.NotificationEvent{}, m.Events...)
}

// Reset clears all recorded events
func (m *MockNotificationSender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = nil
}
