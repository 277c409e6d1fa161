// Package audit 维护动作执行的审计轨迹。
// 审计写入永远是尽力而为：写入失败由调用方记录日志并继续，
// 不允许影响动作结果。
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/africanwebguy/erpassist/internal/action"
	xerrors "github.com/africanwebguy/erpassist/internal/errors"
)

// Status 表示一次执行在审计视角下的结局。
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
)

// Record 是一条审计记录。Result 与 ErrorMessage 互斥填写。
type Record struct {
	ID             string          `json:"id"`
	User           string          `json:"user"`
	ActionName     string          `json:"action_name"`
	ActionCategory action.Category `json:"action_category"`
	Status         Status          `json:"status"`
	Timestamp      time.Time       `json:"timestamp"`
	SessionID      string          `json:"session_id,omitempty"`
	Query          string          `json:"query,omitempty"`
	Result         string          `json:"result,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

// Sink 抽象审计记录的持久化后端。
type Sink interface {
	// Append 写入一条记录。实现方不得修改传入的记录。
	Append(ctx context.Context, record Record) error
	// QueryByUser 按用户查询最近的记录，时间倒序。
	QueryByUser(ctx context.Context, user string, limit int) ([]Record, error)
	// QueryByAction 按动作名查询最近的记录，时间倒序。
	QueryByAction(ctx context.Context, actionName string, limit int) ([]Record, error)
	Close() error
}

// CodeWriteFailed 标识审计写入失败。该错误只进日志与告警，不回传给用户。
const CodeWriteFailed xerrors.Code = "AUDIT_WRITE_FAILED"

func init() {
	xerrors.Register(CodeWriteFailed, xerrors.Attributes{
		Message:   "audit record could not be persisted",
		Severity:  xerrors.SeverityCritical,
		Retryable: true,
		Alert:     true,
	})
}

// NewRecord 为一次执行构造审计记录，填好 ID 与时间戳。
func NewRecord(user string, act action.Action, status Status, sessionID, query string) Record {
	return Record{
		ID:             uuid.NewString(),
		User:           user,
		ActionName:     act.Name,
		ActionCategory: act.Category,
		Status:         status,
		Timestamp:      time.Now().UTC(),
		SessionID:      sessionID,
		Query:          query,
	}
}

const defaultQueryLimit = 50

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultQueryLimit
	}
	return limit
}
