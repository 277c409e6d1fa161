// Package session 管理对话会话与消息历史。
// 历史窗口固定为最近十条消息，意图解析只消费这个窗口。
package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "github.com/africanwebguy/erpassist/internal/errors"
)

// HistoryWindow 是送入意图解析的消息条数上限。
const HistoryWindow = 10

// Role 表示消息的发送方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 是会话中的一条消息。助手消息可附带动作执行信息。
type Message struct {
	Role         Role      `json:"role"`
	Content      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	ActionTaken  string    `json:"action_taken,omitempty"`
	ActionResult string    `json:"action_result,omitempty"`
}

// Session 是一个对话会话。
type Session struct {
	ID            string    `json:"id"`
	User          string    `json:"user"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
	Messages      []Message `json:"messages"`
}

// Store 抽象会话的持久化后端。
type Store interface {
	// Create 创建新会话并返回会话 ID。
	Create(ctx context.Context, user, title string) (*Session, error)
	// Get 按 ID 返回会话。
	Get(ctx context.Context, id string) (*Session, error)
	// AppendMessage 向会话追加一条消息。
	AppendMessage(ctx context.Context, id string, msg Message) error
	// ListByUser 返回用户的所有会话（不含消息体），按最近活跃排序。
	ListByUser(ctx context.Context, user string) ([]Session, error)
	Close() error
}

// 会话相关错误码。
const (
	CodeSessionNotFound xerrors.Code = "SESSION_NOT_FOUND"
	CodeSessionStorage  xerrors.Code = "SESSION_STORAGE_FAILED"
)

func init() {
	xerrors.Register(CodeSessionNotFound, xerrors.Attributes{
		Message:   "chat session does not exist",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeSessionStorage, xerrors.Attributes{
		Message:   "session backend unavailable",
		Severity:  xerrors.SeverityCritical,
		Retryable: true,
		Alert:     true,
	})
}

// NewID 生成会话 ID。
func NewID() string {
	return uuid.NewString()
}

// TitleFromMessage 从首条消息派生会话标题，超长时按字符截断。
func TitleFromMessage(message string) string {
	message = strings.TrimSpace(message)
	const max = 50
	runes := []rune(message)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return message
}

// History 返回会话末尾的历史窗口。
func (s *Session) History() []Message {
	if s == nil || len(s.Messages) == 0 {
		return nil
	}
	if len(s.Messages) <= HistoryWindow {
		window := make([]Message, len(s.Messages))
		copy(window, s.Messages)
		return window
	}
	window := make([]Message, HistoryWindow)
	copy(window, s.Messages[len(s.Messages)-HistoryWindow:])
	return window
}
