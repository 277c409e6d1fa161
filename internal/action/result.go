package action

// ResultType 描述执行结果的展示形态。
type ResultType string

const (
	TypeText                 ResultType = "text"
	TypeTable                ResultType = "table"
	TypeDraft                ResultType = "draft"
	TypeAction               ResultType = "action"
	TypeConfirmationRequired ResultType = "confirmation_required"
	TypeError                ResultType = "error"
)

// 结果级错误码。分发面向调用方的所有失败都收敛为这些机器可读值，
// 不允许以未捕获错误的形式外泄。
const (
	ErrNotRegistered     = "NotRegistered"
	ErrPermissionDenied  = "PermissionDenied"
	ErrHandlerResolution = "HandlerResolutionError"
	ErrHandlerExecution  = "HandlerExecutionError"
	ErrValidation        = "ValidationError"
)

// Result 是一次动作执行（或失败）的统一结果形态。
// Error 仅在 Success 为 false 时出现。
type Result struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Type     ResultType     `json:"type"`
	Category Category       `json:"category,omitempty"`
}

// Failure 构造一个标准的失败结果。
func Failure(code, message string) *Result {
	return &Result{
		Success: false,
		Message: message,
		Error:   code,
		Type:    TypeError,
	}
}

// Text 构造一个纯文本结果，用于意图解析为自由回复的场景。
func Text(message string) *Result {
	return &Result{
		Success: true,
		Message: message,
		Type:    TypeText,
	}
}
