package auth

import (
	"log/slog"
	"net/http"
	"time"

	loggerpkg "github.com/africanwebguy/erpassist/pkg/logger"
)

// MiddlewareConfig 配置身份认证中间件的行为。
type MiddlewareConfig struct {
	// RequiredRoles 限定访问该端点所需的角色之一，为空则任何已认证主体可访问。
	// 动作级别的权限仍由分发层的守卫判断，这里只挡住整组端点。
	RequiredRoles []string
	// AuditEvent 指定记录审计日志时使用的事件名称。
	AuditEvent string
}

// Middleware 返回一个 HTTP 中间件，认证请求并把主体写入上下文。
// 关闭认证时直接放行，后续处理使用请求体中的用户名。
func (s *Service) Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s == nil || s.mode == ModeDisabled {
				next.ServeHTTP(w, r)
				return
			}
			// 认证请求。
			subject, err := s.AuthenticateRequest(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				status := http.StatusUnauthorized
				if err == ErrSubjectRevoked {
					status = http.StatusForbidden
				}
				http.Error(w, http.StatusText(status), status)
				s.auditLogger().Warn("access_denied",
					"path", r.URL.Path,
					"method", r.Method,
					"status", status,
					"error", err.Error(),
				)
				return
			}
			// 端点级角色检查。
			if len(cfg.RequiredRoles) > 0 && !hasAnyRole(subject, cfg.RequiredRoles) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				s.auditLogger().Warn("role_denied",
					"path", r.URL.Path,
					"method", r.Method,
					"user", subject.Username,
				)
				return
			}
			// 记录请求审计日志。
			start := time.Now()
			aw := &auditWriter{ResponseWriter: w, status: http.StatusOK}
			ctx := WithSubject(r.Context(), subject)
			next.ServeHTTP(aw, r.WithContext(ctx))
			event := cfg.AuditEvent
			if event == "" {
				event = r.URL.Path
			}
			s.auditLogger().Info("api_request",
				"event", event,
				"method", r.Method,
				"path", r.URL.Path,
				"status", aw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"user", subject.Username,
			)
		})
	}
}

func (s *Service) auditLogger() *slog.Logger {
	if s != nil && s.audit != nil {
		return s.audit
	}
	return loggerpkg.Audit()
}

func hasAnyRole(subject *Subject, roles []string) bool {
	for _, role := range roles {
		if subject.HasRole(role) {
			return true
		}
	}
	return false
}

// auditWriter 包装 http.ResponseWriter 以捕获响应状态码。
type auditWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader 捕获响应状态码并调用底层实现。
func (w *auditWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
