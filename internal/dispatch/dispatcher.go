// Package dispatch 实现动作分发的协调状态机：
// 意图解析 -> 注册表查找 -> 权限检查 -> 确认门槛 -> 执行 -> 审计。
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/africanwebguy/erpassist/internal/action"
	"github.com/africanwebguy/erpassist/internal/audit"
	xerrors "github.com/africanwebguy/erpassist/internal/errors"
	"github.com/africanwebguy/erpassist/internal/guard"
	"github.com/africanwebguy/erpassist/internal/intent"
	"github.com/africanwebguy/erpassist/internal/observability/alerting"
	"github.com/africanwebguy/erpassist/internal/session"
	"github.com/africanwebguy/erpassist/pkg/logger"
)

const defaultResolveTimeout = 60 * time.Second

// Dispatcher 持有分发一次调用所需的全部组件。
// 所有依赖在构造时显式传入，不读取任何进程级单例。
type Dispatcher struct {
	registry *action.Registry
	guard    *guard.Guard
	executor *action.Executor
	resolver intent.Resolver

	sink           audit.Sink
	events         audit.Publisher
	alerts         alerting.Dispatcher
	resolveTimeout time.Duration
}

// Option 配置 Dispatcher 的可选依赖。
type Option func(*Dispatcher)

// WithAuditSink 配置审计后端。未配置时执行路径不落审计。
func WithAuditSink(sink audit.Sink) Option {
	return func(d *Dispatcher) { d.sink = sink }
}

// WithAuditEvents 配置审计事件通道。
func WithAuditEvents(events audit.Publisher) Option {
	return func(d *Dispatcher) { d.events = events }
}

// WithAlerts 配置告警分发器，审计写入失败时触发。
func WithAlerts(alerts alerting.Dispatcher) Option {
	return func(d *Dispatcher) { d.alerts = alerts }
}

// WithResolveTimeout 配置意图解析的超时时间。
func WithResolveTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.resolveTimeout = timeout
		}
	}
}

// New 创建 Dispatcher。
func New(registry *action.Registry, g *guard.Guard, executor *action.Executor, resolver intent.Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:       registry,
		guard:          g,
		executor:       executor,
		resolver:       resolver,
		resolveTimeout: defaultResolveTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Request 是一次分发的输入。History 应当已按会话窗口截断。
type Request struct {
	Message   string
	User      action.Identity
	SessionID string
	History   []session.Message
}

// Dispatch 处理一条用户消息。返回值永远非 nil：
// 解析为纯文本时直接返回文本结果；解析为动作调用时走确认门槛
// 与共享执行路径。所有失败都是结构化结果，不向调用方抛错。
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *action.Result {
	resolveCtx, cancel := context.WithTimeout(ctx, d.resolveTimeout)
	defer cancel()

	resolution, err := d.resolver.Resolve(resolveCtx, intent.Request{
		Message: req.Message,
		User:    req.User,
		Actions: d.registry.Available(req.User.Roles),
		History: req.History,
	})
	if err != nil {
		logger.L().Warn("意图解析失败",
			slog.String("user", req.User.Name),
			slog.String("session_id", req.SessionID),
			slog.Any("error", err),
		)
		return &action.Result{
			Success: false,
			Message: "处理请求时出现错误: " + err.Error(),
			Error:   string(intent.CodeResolveFailed),
			Type:    action.TypeError,
		}
	}

	if resolution.Kind != intent.KindActionCall {
		return action.Text(resolution.Content)
	}

	act, ok := d.registry.Get(resolution.ActionName)
	if !ok {
		return action.Failure(action.ErrNotRegistered, "动作不存在: "+resolution.ActionName)
	}

	// 确认门槛在权限检查之前：未授权用户也会看到动作描述。
	// 这是沿用的行为，权限在确认执行时强制检查。
	if act.NeedsConfirmation() {
		return d.confirmationProposal(act, resolution.Arguments)
	}

	return d.executeAction(ctx, act.Name, resolution.Arguments, req.User, req.SessionID)
}

// ConfirmAndExecute 是确认回传入口。无论动作是否带确认标记，
// 都直接进入共享执行路径；这是受门槛动作发生真实状态变更的唯一路径。
func (d *Dispatcher) ConfirmAndExecute(ctx context.Context, actionName string, params map[string]any, user action.Identity, sessionID string) *action.Result {
	return d.executeAction(ctx, actionName, params, user, sessionID)
}

func (d *Dispatcher) confirmationProposal(act action.Action, arguments map[string]any) *action.Result {
	if arguments == nil {
		arguments = map[string]any{}
	}
	description := act.Description
	if description == "" {
		description = act.Name
	}
	return &action.Result{
		Success: true,
		Message: "需要你确认后才能继续执行: " + description,
		Type:    action.TypeConfirmationRequired,
		Data: map[string]any{
			"actionName":    act.Name,
			"arguments":     arguments,
			"actionDetails": act,
		},
		Category: act.Category,
	}
}

// executeAction 是共享执行路径：查找、鉴权、执行、落审计。
// 审计写入是尽力而为，失败只记日志与告警，绝不改变已经算出的结果。
func (d *Dispatcher) executeAction(ctx context.Context, name string, params map[string]any, user action.Identity, sessionID string) *action.Result {
	act, ok := d.registry.Get(name)
	if !ok {
		return action.Failure(action.ErrNotRegistered, "动作不存在: "+name)
	}

	// 权限拒绝发生在执行器之前，不产生审计记录；
	// 只有到达执行器的调用才落审计。
	if !d.guard.CheckPermission(user, act) {
		denied := action.Failure(action.ErrPermissionDenied, "你没有执行该动作的权限")
		denied.Category = act.Category
		return denied
	}

	result := d.executor.Execute(ctx, act, params, user)
	d.recordAudit(ctx, user, act, sessionID, params, result)

	// Critical 风险动作执行失败需要告警，查询类失败不打扰值班。
	if !result.Success && act.RiskLevel == action.RiskCritical && d.alerts != nil {
		_ = d.alerts.Notify(ctx, alerting.Event{
			Code:       action.CodeHandlerExecution,
			Message:    result.Message,
			Severity:   xerrors.SeverityCritical,
			ActionName: act.Name,
			User:       user.Name,
			SessionID:  sessionID,
			OccurredAt: time.Now(),
		})
	}
	return result
}

func (d *Dispatcher) recordAudit(ctx context.Context, user action.Identity, act action.Action, sessionID string, params map[string]any, result *action.Result) {
	if d.sink == nil && d.events == nil {
		return
	}

	status := audit.StatusFailed
	if result.Success {
		status = audit.StatusSuccess
	}
	record := audit.NewRecord(user.Name, act, status, sessionID, marshalBestEffort(params))
	record.Result = marshalBestEffort(result.Data)
	record.ErrorMessage = result.Error

	if d.sink != nil {
		if err := d.sink.Append(ctx, record); err != nil {
			d.reportAuditFailure(ctx, record, err)
		}
	}
	if d.events != nil {
		if err := d.events.Publish(ctx, record); err != nil {
			logger.L().Warn("审计事件发布失败",
				slog.String("action", record.ActionName),
				slog.Any("error", err),
			)
		}
	}
}

// reportAuditFailure 让审计失败的吞掉行为显式可见：记审计日志、
// 打点告警，然后继续。
func (d *Dispatcher) reportAuditFailure(ctx context.Context, record audit.Record, err error) {
	logger.L().Error("审计写入失败，结果不受影响",
		slog.String("action", record.ActionName),
		slog.String("user", record.User),
		slog.String("session_id", record.SessionID),
		slog.Any("error", err),
	)
	logger.Audit().Error("audit append failed",
		slog.String("action", record.ActionName),
		slog.String("user", record.User),
		slog.Any("error", err),
	)
	if d.alerts != nil {
		_ = d.alerts.Notify(ctx, alerting.Event{
			Code:       audit.CodeWriteFailed,
			Message:    err.Error(),
			Severity:   xerrors.AttributesOf(audit.CodeWriteFailed).Severity,
			ActionName: record.ActionName,
			User:       record.User,
			SessionID:  record.SessionID,
			OccurredAt: time.Now(),
		})
	}
}

func marshalBestEffort(value any) string {
	if value == nil {
		return ""
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(encoded)
}
