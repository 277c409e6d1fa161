package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/africanwebguy/erpassist/internal/action"
)

func sampleRecord(user, actionName string, status Status, at time.Time) Record {
	rec := NewRecord(user, action.Action{Name: actionName, Category: action.CategoryQuery}, status, "sess-1", "show leads")
	rec.Timestamp = at
	return rec
}

func TestNewRecordFillsIdentityFields(t *testing.T) {
	act := action.Action{Name: "execute_payroll", Category: action.CategoryExecutePayroll}
	rec := NewRecord("hr@example.com", act, StatusFailed, "sess-9", "run payroll")

	if rec.ID == "" {
		t.Fatalf("record ID must be generated")
	}
	if rec.Timestamp.IsZero() {
		t.Fatalf("timestamp must be set")
	}
	if rec.ActionName != "execute_payroll" || rec.ActionCategory != action.CategoryExecutePayroll {
		t.Fatalf("unexpected action fields: %+v", rec)
	}
	if rec.Status != StatusFailed || rec.SessionID != "sess-9" || rec.Query != "run payroll" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestMemorySinkQueries(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		rec := sampleRecord("alice", "view_leads_summary", StatusSuccess, base.Add(time.Duration(i)*time.Second))
		if err := sink.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := sink.Append(ctx, sampleRecord("bob", "view_leads_summary", StatusFailed, base)); err != nil {
		t.Fatalf("append: %v", err)
	}

	byUser, err := sink.QueryByUser(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("query by user: %v", err)
	}
	if len(byUser) != 2 {
		t.Fatalf("expected 2 records, got %d", len(byUser))
	}
	if byUser[0].Timestamp.Before(byUser[1].Timestamp) {
		t.Fatalf("records must come back newest first")
	}

	byAction, err := sink.QueryByAction(ctx, "view_leads_summary", 0)
	if err != nil {
		t.Fatalf("query by action: %v", err)
	}
	if len(byAction) != 4 {
		t.Fatalf("expected 4 records, got %d", len(byAction))
	}

	none, err := sink.QueryByUser(ctx, "nobody", 10)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no records, got %v err=%v", none, err)
	}
}

func TestFileSinkPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "log.jsonl")
	ctx := context.Background()

	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := sink.Append(ctx, sampleRecord("alice", "view_leads_summary", StatusSuccess, time.Now().UTC())); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := sink.Append(ctx, sampleRecord("alice", "execute_payroll", StatusFailed, time.Now().UTC())); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	records, err := reopened.QueryByUser(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 persisted records, got %d", len(records))
	}

	byAction, err := reopened.QueryByAction(ctx, "execute_payroll", 10)
	if err != nil || len(byAction) != 1 {
		t.Fatalf("expected 1 payroll record, got %v err=%v", byAction, err)
	}
	if byAction[0].Status != StatusFailed {
		t.Fatalf("status lost on reload: %+v", byAction[0])
	}
}

func TestFileSinkAppendAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sink.Append(context.Background(), sampleRecord("a", "b", StatusSuccess, time.Now())); err == nil {
		t.Fatalf("append after close must fail")
	}
}
