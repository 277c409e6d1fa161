package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/africanwebguy/erpassist/pkg/logger"
)

// Handler 是动作的具体实现。实现方必须自行校验参数；执行器只保证
// 调用本身成立。返回 error 时由执行器统一包装为失败结果。
type Handler func(ctx context.Context, params map[string]any, user Identity) (*Result, error)

// Executor 负责把注册的动作解析为处理函数并调用。
// 处理函数表在启动时一次性建立（动作 handler 引用 -> 具体实现），
// 不做任何运行期的字符串路径解析。
//
// Executor 自身不做授权判断：按约定它只会在权限检查通过之后被调用。
type Executor struct {
	handlers map[string]Handler
}

// NewExecutor 用处理函数表构造执行器。
func NewExecutor(handlers map[string]Handler) *Executor {
	table := make(map[string]Handler, len(handlers))
	for ref, handler := range handlers {
		ref = strings.TrimSpace(ref)
		if ref == "" || handler == nil {
			continue
		}
		table[ref] = handler
	}
	return &Executor{handlers: table}
}

// Resolves 判断动作的 handler 引用是否有对应实现，供启动自检使用。
func (e *Executor) Resolves(act Action) bool {
	if e == nil {
		return false
	}
	_, ok := e.handlers[strings.TrimSpace(act.Handler)]
	return ok
}

// Execute 调用动作的处理函数，并把所有异常收敛为结构化结果。
// 该方法从不向调用方抛出错误；解析失败、处理函数返回错误、
// 处理函数 panic 全部转换为 Success=false 的结果。
func (e *Executor) Execute(ctx context.Context, act Action, params map[string]any, user Identity) (result *Result) {
	if e == nil {
		return Failure(ErrHandlerResolution, "执行器未初始化")
	}

	ref := strings.TrimSpace(act.Handler)
	if ref == "" {
		return Failure(ErrHandlerResolution, fmt.Sprintf("动作 %s 未定义处理函数", act.Name))
	}
	handler, ok := e.handlers[ref]
	if !ok {
		logger.L().Error("处理函数未注册",
			slog.String("action", act.Name),
			slog.String("handler", ref),
		)
		return Failure(ErrHandlerResolution, fmt.Sprintf("处理函数未注册: %s", ref))
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.L().Error("处理函数 panic",
				slog.String("action", act.Name),
				slog.Any("panic", recovered),
			)
			result = Failure(ErrHandlerExecution, fmt.Sprintf("执行动作出错: %v", recovered))
			result.Category = act.Category
		}
	}()

	res, err := handler(ctx, CloneParameters(params), user)
	if err != nil {
		logger.L().Warn("处理函数执行失败",
			slog.String("action", act.Name),
			slog.String("user", user.Name),
			slog.Any("error", err),
		)
		failed := Failure(ErrHandlerExecution, fmt.Sprintf("执行动作出错: %v", err))
		failed.Category = act.Category
		return failed
	}
	if res == nil {
		failed := Failure(ErrHandlerExecution, fmt.Sprintf("动作 %s 未返回结果", act.Name))
		failed.Category = act.Category
		return failed
	}
	if res.Category == "" {
		res.Category = act.Category
	}
	return res
}
