package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/africanwebguy/erpassist/internal/action"
	"github.com/africanwebguy/erpassist/internal/audit"
	"github.com/africanwebguy/erpassist/internal/auth"
	"github.com/africanwebguy/erpassist/internal/dispatch"
	xerrors "github.com/africanwebguy/erpassist/internal/errors"
	"github.com/africanwebguy/erpassist/internal/session"
)

// Server 负责暴露 REST 接口，供外部驱动助手对话与动作执行。
type Server struct {
	addr       string
	dispatcher *dispatch.Dispatcher
	sessions   session.Store
	sink       audit.Sink
	authsvc    *auth.Service
	auditRoles []string
}

// NewServer 构造 API 服务实例。sink 可以为 nil，此时审计查询端点返回 404。
func NewServer(addr string, dispatcher *dispatch.Dispatcher, sessions session.Store, sink audit.Sink, authsvc *auth.Service) *Server {
	return &Server{
		addr:       addr,
		dispatcher: dispatcher,
		sessions:   sessions,
		sink:       sink,
		authsvc:    authsvc,
		auditRoles: []string{"System Manager"},
	}
}

// Handler 组装全部路由。认证中间件覆盖对话与审计端点，
// 令牌签发端点保持公开。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	guarded := s.authsvc.Middleware(auth.MiddlewareConfig{})
	mux.Handle("/api/v1/chat/messages", guarded(http.HandlerFunc(s.handleChatMessage)))
	mux.Handle("/api/v1/chat/confirm", guarded(http.HandlerFunc(s.handleConfirm)))
	mux.Handle("/api/v1/chat/sessions", guarded(http.HandlerFunc(s.handleSessions)))
	mux.Handle("/api/v1/chat/sessions/", guarded(http.HandlerFunc(s.handleSessionMessages)))
	mux.Handle("/api/v1/audit", s.authsvc.Middleware(auth.MiddlewareConfig{
		RequiredRoles: s.auditRoles,
		AuditEvent:    "audit_query",
	})(http.HandlerFunc(s.handleAuditQuery)))
	mux.HandleFunc("/api/v1/auth/token", s.handleToken)
	return mux
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 启动服务器并监听关闭信号。
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// chatMessageRequest 是发送消息端点的请求体。
// 认证关闭时 user/roles 字段生效，便于本地开发。
type chatMessageRequest struct {
	SessionID string   `json:"session_id"`
	Message   string   `json:"message"`
	User      string   `json:"user,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// chatMessageResponse 把会话 ID 和分发结果一起返回。
type chatMessageResponse struct {
	SessionID string         `json:"session_id"`
	Response  *action.Result `json:"response"`
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message 不能为空", http.StatusBadRequest)
		return
	}
	identity, ok := s.callerIdentity(r, req.User, req.Roles)
	if !ok {
		http.Error(w, "无法确定调用者身份", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sess, err := s.loadOrCreateSession(ctx, req.SessionID, identity.Name, req.Message)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	// 历史窗口取自追加当前消息之前的会话内容，
	// 当前消息单独作为本轮输入传给解析器。
	history := sess.History()
	userMsg := session.Message{Role: session.RoleUser, Content: req.Message, Timestamp: time.Now().UTC()}
	if err := s.sessions.AppendMessage(ctx, sess.ID, userMsg); err != nil {
		writeSessionError(w, err)
		return
	}

	result := s.dispatcher.Dispatch(ctx, dispatch.Request{
		Message:   req.Message,
		User:      identity,
		SessionID: sess.ID,
		History:   history,
	})

	s.appendAssistantMessage(ctx, sess.ID, "", result)
	writeJSON(w, http.StatusOK, chatMessageResponse{SessionID: sess.ID, Response: result})
}

// confirmRequest 是确认回传端点的请求体。
type confirmRequest struct {
	SessionID  string         `json:"session_id"`
	ActionName string         `json:"action_name"`
	Parameters map[string]any `json:"parameters"`
	User       string         `json:"user,omitempty"`
	Roles      []string       `json:"roles,omitempty"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ActionName) == "" {
		http.Error(w, "action_name 不能为空", http.StatusBadRequest)
		return
	}
	identity, ok := s.callerIdentity(r, req.User, req.Roles)
	if !ok {
		http.Error(w, "无法确定调用者身份", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID != "" {
		sess, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		if sess.User != identity.Name {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
	}

	result := s.dispatcher.ConfirmAndExecute(ctx, req.ActionName, req.Parameters, identity, sessionID)
	if sessionID != "" {
		s.appendAssistantMessage(ctx, sessionID, req.ActionName, result)
	}
	writeJSON(w, http.StatusOK, chatMessageResponse{SessionID: sessionID, Response: result})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	identity, ok := s.callerIdentity(r, r.URL.Query().Get("user"), nil)
	if !ok {
		http.Error(w, "无法确定调用者身份", http.StatusBadRequest)
		return
	}
	sessions, err := s.sessions.ListByUser(r.Context(), identity.Name)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleSessionMessages 处理 /api/v1/chat/sessions/{id}/messages。
// 只有会话属主能读取消息记录。
func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/chat/sessions/")
	sessionID, tail, found := strings.Cut(rest, "/")
	if !found || tail != "messages" || sessionID == "" {
		http.NotFound(w, r)
		return
	}
	identity, ok := s.callerIdentity(r, r.URL.Query().Get("user"), nil)
	if !ok {
		http.Error(w, "无法确定调用者身份", http.StatusBadRequest)
		return
	}
	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if sess.User != identity.Name {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, sess.Messages)
}

func (s *Server) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.sink == nil {
		http.Error(w, "审计后端未配置", http.StatusNotFound)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var (
		records []audit.Record
		err     error
	)
	switch {
	case r.URL.Query().Get("user") != "":
		records, err = s.sink.QueryByUser(r.Context(), r.URL.Query().Get("user"), limit)
	case r.URL.Query().Get("action") != "":
		records, err = s.sink.QueryByAction(r.Context(), r.URL.Query().Get("action"), limit)
	default:
		http.Error(w, "需要 user 或 action 查询参数", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []audit.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	var req auth.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "请求体解析失败", http.StatusBadRequest)
		return
	}
	pair, err := s.authsvc.Authenticate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDisabled):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrSubjectRevoked):
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		case errors.Is(err, auth.ErrUnsupportedGrant):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// callerIdentity 解析本次请求的调用者身份。
// 认证开启时来自令牌主体；关闭时使用请求提供的用户名与角色。
func (s *Server) callerIdentity(r *http.Request, fallbackUser string, fallbackRoles []string) (action.Identity, bool) {
	if subject := auth.SubjectFromContext(r.Context()); subject != nil {
		return subject.Identity(), true
	}
	user := strings.TrimSpace(fallbackUser)
	if user == "" {
		return action.Identity{}, false
	}
	return action.Identity{Name: user, Roles: fallbackRoles}, true
}

func (s *Server) loadOrCreateSession(ctx context.Context, sessionID, user, firstMessage string) (*session.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return s.sessions.Create(ctx, user, session.TitleFromMessage(firstMessage))
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.User != user {
		return nil, errForbidden
	}
	return sess, nil
}

// appendAssistantMessage 把分发结果作为助手消息写回会话。
// 写入失败不影响已经返回的结果，处理方式与审计一致。
func (s *Server) appendAssistantMessage(ctx context.Context, sessionID, actionName string, result *action.Result) {
	msg := session.Message{
		Role:        session.RoleAssistant,
		Content:     result.Message,
		Timestamp:   time.Now().UTC(),
		ActionTaken: actionName,
	}
	if result.Type != action.TypeText {
		if encoded, err := json.Marshal(result); err == nil {
			msg.ActionResult = string(encoded)
		}
	}
	_ = s.sessions.AppendMessage(ctx, sessionID, msg)
}

var errForbidden = errors.New("session belongs to another user")

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errForbidden):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case xerrors.CodeOf(err) == session.CodeSessionNotFound:
		http.Error(w, "会话不存在", http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
