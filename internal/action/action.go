package action

import (
	"encoding/json"
	"strings"

	xerrors "github.com/africanwebguy/erpassist/internal/errors"
)

// Category 表示动作的业务分类，决定确认门槛策略。
type Category string

const (
	CategoryQuery          Category = "QUERY"
	CategoryDraft          Category = "DRAFT"
	CategoryApprove        Category = "APPROVE"
	CategoryPost           Category = "POST"
	CategoryExecutePayroll Category = "EXECUTE_PAYROLL"
)

// RiskLevel 表示动作的风险等级。
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Identity 描述一次调用的主体：用户名与其角色集合。
type Identity struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// HasRole 判断主体是否拥有指定角色。
func (id Identity) HasRole(role string) bool {
	role = strings.TrimSpace(role)
	for _, r := range id.Roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

// Action 是目录中一条被允许执行的操作。注册表加载完成后不可变。
type Action struct {
	Name                 string          `json:"name" yaml:"name"`
	Category             Category        `json:"category" yaml:"category"`
	Module               string          `json:"module" yaml:"module"`
	Description          string          `json:"description" yaml:"description"`
	RiskLevel            RiskLevel       `json:"risk_level" yaml:"risk_level"`
	RequiresConfirmation bool            `json:"requires_confirmation" yaml:"requires_confirmation"`
	AllowedRoles         []string        `json:"allowed_roles" yaml:"allowed_roles"`
	Parameters           json.RawMessage `json:"parameters,omitempty" yaml:"-"`
	Handler              string          `json:"handler" yaml:"handler"`
	Enabled              bool            `json:"enabled" yaml:"enabled"`
}

// NeedsConfirmation 计算动作的有效确认要求。该属性是派生值而非存储值，
// 每次分发时重新计算：显式标记确认，或类别属于 POST / EXECUTE_PAYROLL。
func (a Action) NeedsConfirmation() bool {
	if a.RequiresConfirmation {
		return true
	}
	return a.Category == CategoryPost || a.Category == CategoryExecutePayroll
}

// AllowedFor 判断给定角色集合是否可以使用该动作。
// 未配置角色限制的动作对所有人开放，包括空角色集合。
func (a Action) AllowedFor(roles []string) bool {
	if len(a.AllowedRoles) == 0 {
		return true
	}
	for _, allowed := range a.AllowedRoles {
		for _, role := range roles {
			if strings.EqualFold(strings.TrimSpace(allowed), strings.TrimSpace(role)) {
				return true
			}
		}
	}
	return false
}

// 统一错误码，供目录加载与执行器内部错误流使用。
const (
	CodeCatalogLoad       xerrors.Code = "CATALOG_LOAD_FAILED"
	CodeHandlerResolution xerrors.Code = "HANDLER_RESOLUTION_FAILED"
	CodeHandlerExecution  xerrors.Code = "HANDLER_EXECUTION_FAILED"
)

func init() {
	xerrors.Register(CodeCatalogLoad, xerrors.Attributes{
		Message:   "failed to load action catalog",
		Severity:  xerrors.SeverityCritical,
		Retryable: true,
		Alert:     true,
	})
	xerrors.Register(CodeHandlerResolution, xerrors.Attributes{
		Message:   "handler reference cannot be resolved",
		Severity:  xerrors.SeverityWarning,
		Retryable: false,
		Alert:     true,
	})
	xerrors.Register(CodeHandlerExecution, xerrors.Attributes{
		Message:   "handler execution failed",
		Severity:  xerrors.SeverityWarning,
		Retryable: false,
		Alert:     false,
	})
}

// CloneParameters 返回参数映射的浅拷贝，避免处理函数修改调用方数据。
func CloneParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	cloned := make(map[string]any, len(params))
	for key, value := range params {
		cloned[key] = value
	}
	return cloned
}
