// Package guard 实现动作分发前的授权检查。
// 判定只依赖角色交集与记录授权器，不掺入任何业务逻辑。
package guard

import (
	"context"
	"log/slog"

	"github.com/africanwebguy/erpassist/internal/action"
	"github.com/africanwebguy/erpassist/pkg/logger"
)

// RecordAuthorizer 抽象记录与字段级别的权限系统。动作处理函数在访问具体
// 业务记录时委托给它；守卫自身只做角色层判定。
type RecordAuthorizer interface {
	// HasRecordPermission 判断用户对某类记录（可选指定单条）是否具备
	// 指定操作类型的权限。
	HasRecordPermission(ctx context.Context, user action.Identity, recordType, recordName, permType string) (bool, error)
	// PermittedFields 返回用户在某类记录上可访问的字段子集。
	PermittedFields(ctx context.Context, user action.Identity, recordType string, fields []string) ([]string, error)
}

// Guard 在执行路径上强制执行动作的角色限制。
type Guard struct {
	records RecordAuthorizer
}

// New 创建权限守卫。records 可以为 nil，此时仅保留角色层判定。
func New(records RecordAuthorizer) *Guard {
	return &Guard{records: records}
}

// CheckPermission 判断用户是否可以执行该动作：
// 动作未配置角色限制时对所有人放行（包括零角色用户）；
// 否则要求用户角色与动作允许角色存在交集。
func (g *Guard) CheckPermission(user action.Identity, act action.Action) bool {
	allowed := act.AllowedFor(user.Roles)
	if !allowed {
		logger.L().Warn("权限检查未通过",
			slog.String("user", user.Name),
			slog.String("action", act.Name),
			slog.String("category", string(act.Category)),
		)
	}
	return allowed
}

// Records 返回记录授权器，未配置时返回放行一切的空实现。
func (g *Guard) Records() RecordAuthorizer {
	if g == nil || g.records == nil {
		return permitAll{}
	}
	return g.records
}

// permitAll 是未接入权限后端时的默认记录授权器。
type permitAll struct{}

func (permitAll) HasRecordPermission(_ context.Context, _ action.Identity, _, _, _ string) (bool, error) {
	return true, nil
}

func (permitAll) PermittedFields(_ context.Context, _ action.Identity, _ string, fields []string) ([]string, error) {
	return fields, nil
}
