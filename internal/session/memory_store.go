package session

import (
	"context"
	"sort"
	"sync"
	"time"

	xerrors "github.com/africanwebguy/erpassist/internal/errors"
)

// MemoryStore 以内存方式保存会话，主要用于测试与单机部署。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Create 实现 Store 接口。
func (m *MemoryStore) Create(_ context.Context, user, title string) (*Session, error) {
	if user == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "会话用户不能为空")
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:            NewID(),
		User:          user,
		Title:         title,
		Status:        "Active",
		CreatedAt:     now,
		LastMessageAt: now,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return cloneSession(sess), nil
}

// Get 返回会话。
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, xerrors.New(CodeSessionNotFound, "会话不存在: "+id)
	}
	return cloneSession(sess), nil
}

// AppendMessage 向会话追加消息。
func (m *MemoryStore) AppendMessage(_ context.Context, id string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return xerrors.New(CodeSessionNotFound, "会话不存在: "+id)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	sess.Messages = append(sess.Messages, msg)
	sess.LastMessageAt = msg.Timestamp
	return nil
}

// ListByUser 返回用户的所有会话，按最近活跃倒序，不含消息体。
func (m *MemoryStore) ListByUser(_ context.Context, user string) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Session, 0)
	for _, sess := range m.sessions {
		if sess.User != user {
			continue
		}
		summary := *sess
		summary.Messages = nil
		results = append(results, summary)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].LastMessageAt.Equal(results[j].LastMessageAt) {
			return results[i].ID < results[j].ID
		}
		return results[i].LastMessageAt.After(results[j].LastMessageAt)
	})
	return results, nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

func cloneSession(sess *Session) *Session {
	clone := *sess
	clone.Messages = make([]Message, len(sess.Messages))
	copy(clone.Messages, sess.Messages)
	return &clone
}

var _ Store = (*MemoryStore)(nil)
