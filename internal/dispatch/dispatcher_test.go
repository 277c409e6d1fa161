package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/africanwebguy/erpassist/internal/action"
	"github.com/africanwebguy/erpassist/internal/audit"
	"github.com/africanwebguy/erpassist/internal/guard"
	"github.com/africanwebguy/erpassist/internal/intent"
)

type stubResolver struct {
	resolution *intent.Resolution
	err        error
}

func (s *stubResolver) Resolve(_ context.Context, _ intent.Request) (*intent.Resolution, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resolution, nil
}

type failingSink struct {
	attempts atomic.Int32
}

func (f *failingSink) Append(_ context.Context, _ audit.Record) error {
	f.attempts.Add(1)
	return errors.New("audit backend down")
}

func (f *failingSink) QueryByUser(_ context.Context, _ string, _ int) ([]audit.Record, error) {
	return nil, nil
}

func (f *failingSink) QueryByAction(_ context.Context, _ string, _ int) ([]audit.Record, error) {
	return nil, nil
}

func (f *failingSink) Close() error { return nil }

type fixture struct {
	dispatcher *Dispatcher
	sink       *audit.MemorySink
	calls      map[string]*atomic.Int32
}

func newFixture(t *testing.T, resolver intent.Resolver, opts ...Option) *fixture {
	t.Helper()

	calls := map[string]*atomic.Int32{
		"crm.get_leads_summary":            {},
		"selling.create_sales_order_draft": {},
		"payroll.execute_payroll":          {},
	}
	counting := func(ref string, reply *action.Result) action.Handler {
		return func(_ context.Context, _ map[string]any, _ action.Identity) (*action.Result, error) {
			calls[ref].Add(1)
			return reply, nil
		}
	}

	catalog := action.NewMemoryCatalog([]action.Action{
		{
			Name:         "view_leads_summary",
			Category:     action.CategoryQuery,
			Module:       "CRM",
			Description:  "View summary of leads",
			RiskLevel:    action.RiskLow,
			AllowedRoles: []string{"Sales User", "Sales Manager", "System Manager"},
			Handler:      "crm.get_leads_summary",
			Enabled:      true,
		},
		{
			Name:                 "create_sales_order_draft",
			Category:             action.CategoryDraft,
			Module:               "Selling",
			Description:          "Create a draft sales order",
			RiskLevel:            action.RiskMedium,
			RequiresConfirmation: true,
			AllowedRoles:         []string{"Sales User", "Sales Manager", "System Manager"},
			Handler:              "selling.create_sales_order_draft",
			Enabled:              true,
		},
		{
			Name:         "execute_payroll",
			Category:     action.CategoryExecutePayroll,
			Module:       "Payroll",
			Description:  "Execute payroll for a period",
			RiskLevel:    action.RiskCritical,
			AllowedRoles: []string{"HR Manager", "System Manager"},
			Handler:      "payroll.execute_payroll",
			Enabled:      true,
		},
	})
	registry, err := action.NewRegistry(context.Background(), catalog)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}

	executor := action.NewExecutor(map[string]action.Handler{
		"crm.get_leads_summary": counting("crm.get_leads_summary",
			&action.Result{Success: true, Message: "12 leads", Type: action.TypeTable}),
		"selling.create_sales_order_draft": counting("selling.create_sales_order_draft",
			&action.Result{Success: true, Message: "draft created", Type: action.TypeDraft}),
		"payroll.execute_payroll": counting("payroll.execute_payroll",
			&action.Result{Success: true, Message: "payroll executed", Type: action.TypeAction}),
	})

	sink := audit.NewMemorySink()
	baseOpts := append([]Option{WithAuditSink(sink)}, opts...)
	return &fixture{
		dispatcher: New(registry, guard.New(nil), executor, resolver, baseOpts...),
		sink:       sink,
		calls:      calls,
	}
}

func actionCall(name string, args map[string]any) *stubResolver {
	return &stubResolver{resolution: &intent.Resolution{
		Kind:       intent.KindActionCall,
		ActionName: name,
		Arguments:  args,
	}}
}

// 场景 A：有权限的查询动作直接执行，处理函数恰好调用一次。
func TestDispatchQueryActionExecutesDirectly(t *testing.T) {
	fx := newFixture(t, actionCall("view_leads_summary", map[string]any{"limit": 10}))
	user := action.Identity{Name: "alice", Roles: []string{"Sales User"}}

	res := fx.dispatcher.Dispatch(context.Background(), Request{Message: "show leads", User: user, SessionID: "s1"})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Category != action.CategoryQuery {
		t.Fatalf("expected QUERY category, got %q", res.Category)
	}
	if got := fx.calls["crm.get_leads_summary"].Load(); got != 1 {
		t.Fatalf("handler must run exactly once, ran %d times", got)
	}
	records, _ := fx.sink.QueryByUser(context.Background(), "alice", 10)
	if len(records) != 1 || records[0].Status != audit.StatusSuccess {
		t.Fatalf("expected one success audit record, got %+v", records)
	}
}

// 场景 B：角色不满足时返回 PermissionDenied，处理函数零调用。
func TestDispatchPermissionDenied(t *testing.T) {
	fx := newFixture(t, actionCall("execute_payroll", nil))
	user := action.Identity{Name: "bob", Roles: []string{"Sales User"}}

	res := fx.dispatcher.Dispatch(context.Background(), Request{Message: "run payroll now", User: user, SessionID: "s1"})
	// 带确认门槛的动作先收到确认提议，权限在确认时检查。
	if res.Type != action.TypeConfirmationRequired {
		t.Fatalf("expected confirmation proposal, got %+v", res)
	}

	confirmed := fx.dispatcher.ConfirmAndExecute(context.Background(), "execute_payroll", nil, user, "s1")
	if confirmed.Success || confirmed.Error != action.ErrPermissionDenied {
		t.Fatalf("expected PermissionDenied, got %+v", confirmed)
	}
	if got := fx.calls["payroll.execute_payroll"].Load(); got != 0 {
		t.Fatalf("handler must not run, ran %d times", got)
	}
}

func TestDispatchPermissionDeniedWithoutConfirmationGate(t *testing.T) {
	fx := newFixture(t, actionCall("view_leads_summary", nil))
	user := action.Identity{Name: "eve", Roles: []string{"Support Team"}}

	res := fx.dispatcher.Dispatch(context.Background(), Request{Message: "show leads", User: user, SessionID: "s1"})
	if res.Success || res.Error != action.ErrPermissionDenied {
		t.Fatalf("expected PermissionDenied, got %+v", res)
	}
	if got := fx.calls["crm.get_leads_summary"].Load(); got != 0 {
		t.Fatalf("handler must not run, ran %d times", got)
	}
}

// 场景 C：带确认标记的动作第一次只返回确认提议；确认回传后执行一次并产生一条审计。
func TestDispatchConfirmationGate(t *testing.T) {
	args := map[string]any{"customer": "ACME", "item": "Widget"}
	fx := newFixture(t, actionCall("create_sales_order_draft", args))
	user := action.Identity{Name: "alice", Roles: []string{"Sales User"}}

	proposal := fx.dispatcher.Dispatch(context.Background(), Request{Message: "create an order for ACME", User: user, SessionID: "s1"})
	if proposal.Type != action.TypeConfirmationRequired {
		t.Fatalf("expected confirmation_required, got %+v", proposal)
	}
	if got := fx.calls["selling.create_sales_order_draft"].Load(); got != 0 {
		t.Fatalf("proposal must not invoke the handler, ran %d times", got)
	}
	echoed, ok := proposal.Data["arguments"].(map[string]any)
	if !ok || echoed["customer"] != "ACME" {
		t.Fatalf("proposal must echo arguments, got %+v", proposal.Data)
	}
	if proposal.Data["actionName"] != "create_sales_order_draft" {
		t.Fatalf("proposal must carry the action name, got %+v", proposal.Data)
	}
	if fx.sink.Len() != 0 {
		t.Fatalf("proposal must not produce an audit record")
	}

	confirmed := fx.dispatcher.ConfirmAndExecute(context.Background(), "create_sales_order_draft", args, user, "s1")
	if !confirmed.Success {
		t.Fatalf("expected success after confirmation, got %+v", confirmed)
	}
	if got := fx.calls["selling.create_sales_order_draft"].Load(); got != 1 {
		t.Fatalf("handler must run exactly once after confirmation, ran %d times", got)
	}
	if fx.sink.Len() != 1 {
		t.Fatalf("confirmed execution must produce exactly one audit record, got %d", fx.sink.Len())
	}
}

// 场景 D：未注册动作返回 NotRegistered。
func TestDispatchUnknownAction(t *testing.T) {
	fx := newFixture(t, actionCall("does_not_exist", nil))
	user := action.Identity{Name: "alice", Roles: []string{"System Manager"}}

	res := fx.dispatcher.Dispatch(context.Background(), Request{Message: "do the thing", User: user, SessionID: "s1"})
	if res.Success || res.Error != action.ErrNotRegistered {
		t.Fatalf("expected NotRegistered, got %+v", res)
	}

	confirmed := fx.dispatcher.ConfirmAndExecute(context.Background(), "does_not_exist", nil, user, "s1")
	if confirmed.Success || confirmed.Error != action.ErrNotRegistered {
		t.Fatalf("expected NotRegistered on confirm path, got %+v", confirmed)
	}
}

func TestDispatchPlainTextReply(t *testing.T) {
	fx := newFixture(t, &stubResolver{resolution: &intent.Resolution{
		Kind:    intent.KindText,
		Content: "Hello! How can I help you today?",
	}})
	user := action.Identity{Name: "alice", Roles: []string{"Sales User"}}

	res := fx.dispatcher.Dispatch(context.Background(), Request{Message: "hi", User: user, SessionID: "s1"})
	if !res.Success || res.Type != action.TypeText {
		t.Fatalf("expected text result, got %+v", res)
	}
	if fx.sink.Len() != 0 {
		t.Fatalf("plain text reply must not produce an audit record")
	}
}

func TestDispatchResolverFailure(t *testing.T) {
	fx := newFixture(t, &stubResolver{err: errors.New("model unavailable")})
	user := action.Identity{Name: "alice", Roles: []string{"Sales User"}}

	res := fx.dispatcher.Dispatch(context.Background(), Request{Message: "hi", User: user, SessionID: "s1"})
	if res.Success || res.Type != action.TypeError {
		t.Fatalf("resolver failure must yield an error result, got %+v", res)
	}
}

// 审计后端持续失败时，调用方拿到的结果不受任何影响。
func TestDispatchAuditFailureDoesNotChangeResult(t *testing.T) {
	sink := &failingSink{}
	calls := &atomic.Int32{}

	catalog := action.NewMemoryCatalog([]action.Action{{
		Name:         "view_leads_summary",
		Category:     action.CategoryQuery,
		AllowedRoles: []string{"Sales User"},
		Handler:      "crm.get_leads_summary",
		Enabled:      true,
	}})
	registry, err := action.NewRegistry(context.Background(), catalog)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	executor := action.NewExecutor(map[string]action.Handler{
		"crm.get_leads_summary": func(_ context.Context, _ map[string]any, _ action.Identity) (*action.Result, error) {
			calls.Add(1)
			return &action.Result{Success: true, Message: "12 leads", Type: action.TypeTable}, nil
		},
	})
	d := New(registry, guard.New(nil), executor, actionCall("view_leads_summary", nil), WithAuditSink(sink))

	user := action.Identity{Name: "alice", Roles: []string{"Sales User"}}
	res := d.Dispatch(context.Background(), Request{Message: "show leads", User: user, SessionID: "s1"})
	if !res.Success || res.Message != "12 leads" {
		t.Fatalf("audit failure must not alter the result, got %+v", res)
	}
	if calls.Load() != 1 {
		t.Fatalf("handler must still run exactly once, ran %d times", calls.Load())
	}
	if sink.attempts.Load() != 1 {
		t.Fatalf("audit append must have been attempted, attempts=%d", sink.attempts.Load())
	}
}

func TestAvailableActionsDeterministic(t *testing.T) {
	fx := newFixture(t, &stubResolver{resolution: &intent.Resolution{Kind: intent.KindText, Content: "ok"}})
	roles := []string{"Sales User"}

	first := fx.dispatcher.registry.Available(roles)
	second := fx.dispatcher.registry.Available(roles)
	if len(first) != len(second) {
		t.Fatalf("available actions must be stable: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Fatalf("ordering must be deterministic: %s vs %s", first[i].Name, second[i].Name)
		}
	}
}
