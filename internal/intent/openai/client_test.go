package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/africanwebguy/erpassist/internal/action"
	"github.com/africanwebguy/erpassist/internal/intent"
	"github.com/africanwebguy/erpassist/internal/session"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error when api key is missing")
	}
}

func sampleRequest() intent.Request {
	return intent.Request{
		Message: "show me a summary of leads",
		User:    action.Identity{Name: "alice@example.com", Roles: []string{"Sales User"}},
		Actions: []action.Action{
			{
				Name:        "view_leads_summary",
				Category:    action.CategoryQuery,
				Module:      "CRM",
				Description: "View summary of leads",
			},
		},
		History: []session.Message{
			{Role: session.RoleUser, Content: "hi"},
			{Role: session.RoleAssistant, Content: "hello, how can I help?"},
		},
	}
}

func TestResolveTextReply(t *testing.T) {
	var captured struct {
		Authorization string
		Body          map[string]any
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Authorization = r.Header.Get("Authorization")
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&captured.Body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "You have 12 open leads."}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	res, err := client.Resolve(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != intent.KindText || res.Content != "You have 12 open leads." {
		t.Fatalf("unexpected resolution: %+v", res)
	}

	if !strings.HasPrefix(captured.Authorization, "Bearer ") {
		t.Fatalf("authorization header missing: %q", captured.Authorization)
	}
	if captured.Body["function_call"] != "auto" {
		t.Fatalf("function_call should be auto when actions are available")
	}
	functions, ok := captured.Body["functions"].([]any)
	if !ok || len(functions) != 1 {
		t.Fatalf("expected one function definition, got %v", captured.Body["functions"])
	}
	messages, ok := captured.Body["messages"].([]any)
	if !ok || len(messages) != 4 {
		t.Fatalf("expected system + history + user messages, got %v", captured.Body["messages"])
	}
}

func TestResolveFunctionCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"function_call": map[string]any{
							"name":      "view_leads_summary",
							"arguments": `{"limit": 5}`,
						},
					},
				},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	res, err := client.Resolve(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != intent.KindActionCall || res.ActionName != "view_leads_summary" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if res.Arguments["limit"] != float64(5) {
		t.Fatalf("unexpected arguments: %+v", res.Arguments)
	}
}

func TestResolveMalformedArguments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"function_call": map[string]any{
							"name":      "view_leads_summary",
							"arguments": `{not valid json`,
						},
					},
				},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	res, err := client.Resolve(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != intent.KindActionCall || len(res.Arguments) != 0 {
		t.Fatalf("malformed arguments should resolve to empty map, got %+v", res)
	}
}

func TestResolveHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	if _, err := client.Resolve(context.Background(), sampleRequest()); err == nil {
		t.Fatalf("expected error when http status is not success")
	}
}
