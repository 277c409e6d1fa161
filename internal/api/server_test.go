package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/africanwebguy/erpassist/internal/action"
	"github.com/africanwebguy/erpassist/internal/audit"
	"github.com/africanwebguy/erpassist/internal/auth"
	"github.com/africanwebguy/erpassist/internal/dispatch"
	"github.com/africanwebguy/erpassist/internal/guard"
	"github.com/africanwebguy/erpassist/internal/intent"
	"github.com/africanwebguy/erpassist/internal/session"
)

type scriptedResolver struct {
	resolution *intent.Resolution
}

func (s *scriptedResolver) Resolve(_ context.Context, _ intent.Request) (*intent.Resolution, error) {
	return s.resolution, nil
}

func newTestServer(t *testing.T, resolver intent.Resolver) (*Server, *audit.MemorySink, session.Store) {
	t.Helper()

	catalog := action.NewMemoryCatalog([]action.Action{
		{
			Name:         "view_leads_summary",
			Category:     action.CategoryQuery,
			Module:       "CRM",
			RiskLevel:    action.RiskLow,
			AllowedRoles: []string{"Sales User", "System Manager"},
			Handler:      "crm.get_leads_summary",
			Enabled:      true,
		},
		{
			Name:                 "create_sales_order_draft",
			Category:             action.CategoryDraft,
			Module:               "Selling",
			RiskLevel:            action.RiskMedium,
			RequiresConfirmation: true,
			AllowedRoles:         []string{"Sales User", "System Manager"},
			Handler:              "selling.create_sales_order_draft",
			Enabled:              true,
		},
	})
	registry, err := action.NewRegistry(context.Background(), catalog)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}

	executor := action.NewExecutor(map[string]action.Handler{
		"crm.get_leads_summary": func(_ context.Context, _ map[string]any, _ action.Identity) (*action.Result, error) {
			return &action.Result{Success: true, Message: "12 leads", Type: action.TypeTable}, nil
		},
		"selling.create_sales_order_draft": func(_ context.Context, _ map[string]any, _ action.Identity) (*action.Result, error) {
			return &action.Result{Success: true, Message: "draft created", Type: action.TypeDraft}, nil
		},
	})

	sink := audit.NewMemorySink()
	dispatcher := dispatch.New(registry, guard.New(nil), executor, resolver, dispatch.WithAuditSink(sink))
	sessions := session.NewMemoryStore()
	authsvc, err := auth.NewService(auth.Config{Mode: auth.ModeDisabled}, nil)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	return NewServer(":0", dispatcher, sessions, sink, authsvc), sink, sessions
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatMessageCreatesSessionAndExecutes(t *testing.T) {
	server, sink, sessions := newTestServer(t, &scriptedResolver{resolution: &intent.Resolution{
		Kind:       intent.KindActionCall,
		ActionName: "view_leads_summary",
		Arguments:  map[string]any{"limit": 10},
	}})
	handler := server.Handler()

	rec := postJSON(t, handler, "/api/v1/chat/messages", chatMessageRequest{
		Message: "show me my leads",
		User:    "alice",
		Roles:   []string{"Sales User"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got chatMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if !got.Response.Success || got.Response.Type != action.TypeTable {
		t.Fatalf("unexpected result: %+v", got.Response)
	}

	sess, err := sessions.Get(context.Background(), got.SessionID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("expected user and assistant messages, got %d", len(sess.Messages))
	}
	if sess.Messages[0].Role != session.RoleUser || sess.Messages[1].Role != session.RoleAssistant {
		t.Fatalf("unexpected roles: %+v", sess.Messages)
	}

	records, err := sink.QueryByUser(context.Background(), "alice", 10)
	if err != nil {
		t.Fatalf("query audit: %v", err)
	}
	if len(records) != 1 || records[0].ActionName != "view_leads_summary" {
		t.Fatalf("unexpected audit records: %+v", records)
	}
}

func TestChatMessageConfirmationRoundTrip(t *testing.T) {
	server, sink, _ := newTestServer(t, &scriptedResolver{resolution: &intent.Resolution{
		Kind:       intent.KindActionCall,
		ActionName: "create_sales_order_draft",
		Arguments:  map[string]any{"customer": "Acme Corp"},
	}})
	handler := server.Handler()

	rec := postJSON(t, handler, "/api/v1/chat/messages", chatMessageRequest{
		Message: "create a sales order for Acme",
		User:    "alice",
		Roles:   []string{"Sales User"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var proposal chatMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &proposal); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if proposal.Response.Type != action.TypeConfirmationRequired {
		t.Fatalf("expected confirmation proposal, got %+v", proposal.Response)
	}
	if sink.Len() != 0 {
		t.Fatalf("proposal must not be audited, got %d records", sink.Len())
	}

	rec = postJSON(t, handler, "/api/v1/chat/confirm", confirmRequest{
		SessionID:  proposal.SessionID,
		ActionName: "create_sales_order_draft",
		Parameters: map[string]any{"customer": "Acme Corp"},
		User:       "alice",
		Roles:      []string{"Sales User"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %s", rec.Code, rec.Body.String())
	}
	var confirmed chatMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &confirmed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !confirmed.Response.Success || confirmed.Response.Type != action.TypeDraft {
		t.Fatalf("unexpected confirmed result: %+v", confirmed.Response)
	}
	if sink.Len() != 1 {
		t.Fatalf("confirmed execution must audit exactly once, got %d", sink.Len())
	}
}

func TestChatMessageValidation(t *testing.T) {
	server, _, _ := newTestServer(t, &scriptedResolver{resolution: &intent.Resolution{Kind: intent.KindText, Content: "hi"}})
	handler := server.Handler()

	t.Run("empty message", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/v1/chat/messages", chatMessageRequest{User: "alice"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing user without auth", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/v1/chat/messages", chatMessageRequest{Message: "hello"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("invalid method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/messages", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})
}

func TestSessionTranscriptOwnership(t *testing.T) {
	server, _, sessions := newTestServer(t, &scriptedResolver{resolution: &intent.Resolution{Kind: intent.KindText, Content: "hi"}})
	handler := server.Handler()

	sess, err := sessions.Create(context.Background(), "alice", "greeting")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := sessions.AppendMessage(context.Background(), sess.ID, session.Message{
		Role: session.RoleUser, Content: "hello",
	}); err != nil {
		t.Fatalf("append message: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions/"+sess.ID+"/messages?user=alice", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var messages []session.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &messages); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "hello" {
		t.Fatalf("unexpected transcript: %+v", messages)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions/"+sess.ID+"/messages?user=mallory", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign owner, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions/missing/messages?user=alice", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rec.Code)
	}
}

func TestAuditQueryEndpoint(t *testing.T) {
	server, sink, _ := newTestServer(t, &scriptedResolver{resolution: &intent.Resolution{Kind: intent.KindText, Content: "hi"}})
	handler := server.Handler()

	record := audit.NewRecord("alice", action.Action{Name: "view_leads_summary", Category: action.CategoryQuery},
		audit.StatusSuccess, "s1", `{"limit":10}`)
	if err := sink.Append(context.Background(), record); err != nil {
		t.Fatalf("append record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit?user=alice", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var records []audit.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 1 || records[0].User != "alice" {
		t.Fatalf("unexpected records: %+v", records)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without filters, got %d", rec.Code)
	}
}

func TestTokenEndpointWithJWTMode(t *testing.T) {
	server, _, _ := newTestServer(t, &scriptedResolver{resolution: &intent.Resolution{Kind: intent.KindText, Content: "hi"}})
	store, err := auth.NewMemoryStore([]auth.Seed{
		{Username: "alice", Password: "s3cret", Roles: []string{"Sales User"}},
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	server.authsvc, err = auth.NewService(auth.Config{
		Mode: auth.ModeJWT,
		JWT:  auth.JWTOptions{Secret: "test-secret"},
	}, store)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	handler := server.Handler()

	rec := postJSON(t, handler, "/api/v1/auth/token", auth.TokenRequest{Username: "alice", Password: "s3cret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %s", rec.Code, rec.Body.String())
	}
	var pair auth.TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatal("expected access token")
	}

	rec = postJSON(t, handler, "/api/v1/auth/token", auth.TokenRequest{Username: "alice", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	// 带令牌访问受保护端点。
	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status with token: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/chat/sessions", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}
