// Package intent 把自由文本消息解析为动作调用或纯文本回复。
// 解析器是分发层的黑盒依赖：它只建议动作，所有授权与确认门槛
// 由分发层强制执行。
package intent

import (
	"context"

	"github.com/africanwebguy/erpassist/internal/action"
	xerrors "github.com/africanwebguy/erpassist/internal/errors"
	"github.com/africanwebguy/erpassist/internal/session"
)

// Kind 表示一次解析的结论形态。
type Kind string

const (
	// KindText 表示模型直接给出文本回复。
	KindText Kind = "text"
	// KindActionCall 表示模型建议调用某个动作。
	KindActionCall Kind = "action_call"
)

// Request 是一次解析的输入：用户消息、角色、该用户可用的动作词表
// 以及会话历史窗口。
type Request struct {
	Message string
	User    action.Identity
	Actions []action.Action
	History []session.Message
}

// Resolution 是解析结果。Kind 为 KindActionCall 时 ActionName 与
// Arguments 有效，否则 Content 有效。
type Resolution struct {
	Kind       Kind
	Content    string
	ActionName string
	Arguments  map[string]any
}

// Resolver 抽象意图解析后端。
type Resolver interface {
	Resolve(ctx context.Context, req Request) (*Resolution, error)
}

// CodeResolveFailed 标识意图解析失败。
const CodeResolveFailed xerrors.Code = "INTENT_RESOLVE_FAILED"

func init() {
	xerrors.Register(CodeResolveFailed, xerrors.Attributes{
		Message:   "intent resolution backend failed",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
		Alert:     false,
	})
}
