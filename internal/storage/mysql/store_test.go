package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/africanwebguy/erpassist/internal/audit"
	xerrors "github.com/africanwebguy/erpassist/internal/errors"
	"github.com/africanwebguy/erpassist/internal/handlers"
)

func TestRunMigrationsAppliesAllFilesOnce(t *testing.T) {
	t.Parallel()

	ops := []sqlOp{
		execOp(`CREATE TABLE IF NOT EXISTS schema_migrations (
        version VARCHAR(32) NOT NULL PRIMARY KEY,
        applied_at BIGINT NOT NULL
)`),
		queryOp(`SELECT version FROM schema_migrations`, rowsData{columns: []string{"version"}}),
	}
	for _, name := range []string{"0001_create_action_catalog.sql", "0002_create_audit_log.sql", "0003_create_records.sql"} {
		for _, stmt := range migrationStatements(t, name) {
			ops = append(ops, beginOp(), execOp(stmt),
				execOp(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`), commitOp())
		}
	}

	db, drv := newMockDB(t, ops)
	defer drv.assertConsumed(t)
	defer db.Close()

	if err := runMigrations(context.Background(), db); err != nil {
		t.Fatalf("run migrations failed: %v", err)
	}
}

func TestRunMigrationsSkipsAppliedVersions(t *testing.T) {
	t.Parallel()

	applied := rowsData{
		columns: []string{"version"},
		values:  [][]driver.Value{{"0001"}, {"0002"}, {"0003"}},
	}
	db, drv := newMockDB(t, []sqlOp{
		execOp(`CREATE TABLE IF NOT EXISTS schema_migrations (
        version VARCHAR(32) NOT NULL PRIMARY KEY,
        applied_at BIGINT NOT NULL
)`),
		queryOp(`SELECT version FROM schema_migrations`, applied),
	})
	defer drv.assertConsumed(t)
	defer db.Close()

	if err := runMigrations(context.Background(), db); err != nil {
		t.Fatalf("run migrations failed: %v", err)
	}
}

func TestAuditStoreAppendAndQuery(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC().Truncate(time.Second)
	rows := rowsData{
		columns: []string{"id", "user", "action_name", "action_category", "status",
			"timestamp", "session_id", "query", "result", "error_message"},
		values: [][]driver.Value{{
			"rec-1", "alice", "view_leads_summary", "QUERY", "Success",
			now.UnixNano(), "s1", `{"limit":10}`, `{"count":12}`, "",
		}},
	}

	db, drv := newMockDB(t, []sqlOp{
		execOp(`INSERT INTO erpassist_audit_log
        (id, user, action_name, action_category, status, timestamp, session_id, query, result, error_message)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		queryOp(`SELECT id, user, action_name, action_category, status, timestamp,
        session_id, query, result, error_message
        FROM erpassist_audit_log WHERE user = ? ORDER BY timestamp DESC LIMIT ?`, rows),
	})
	defer drv.assertConsumed(t)
	defer db.Close()

	store := &AuditStore{db: db}
	record := audit.Record{
		ID: "rec-1", User: "alice", ActionName: "view_leads_summary",
		ActionCategory: "QUERY", Status: audit.StatusSuccess,
		Timestamp: now, SessionID: "s1",
	}
	if err := store.Append(context.Background(), record); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	records, err := store.QueryByUser(context.Background(), "alice", 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.ID != "rec-1" || got.Status != audit.StatusSuccess || !got.Timestamp.Equal(now) {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Query != `{"limit":10}` || got.Result != `{"count":12}` {
		t.Fatalf("unexpected payloads: %+v", got)
	}
}

func TestCatalogStoreActionsJoinsRoles(t *testing.T) {
	t.Parallel()

	roles := rowsData{
		columns: []string{"action_name", "role"},
		values: [][]driver.Value{
			{"execute_payroll", "HR Manager"},
			{"execute_payroll", "System Manager"},
		},
	}
	actions := rowsData{
		columns: []string{"action_name", "action_category", "module", "description",
			"risk_level", "requires_confirmation", "parameters", "handler_ref", "enabled"},
		values: [][]driver.Value{
			{"execute_payroll", "EXECUTE_PAYROLL", "Payroll", "Execute payroll",
				"Critical", false, `{"type":"object"}`, "payroll.execute_payroll", true},
			{"view_leads_summary", "QUERY", "CRM", nil, "Low", false, nil, "crm.get_leads_summary", true},
		},
	}

	db, drv := newMockDB(t, []sqlOp{
		queryOp(`SELECT action_name, role FROM erpassist_action_roles`, roles),
		queryOp(`SELECT action_name, action_category, module, description,
        risk_level, requires_confirmation, parameters, handler_ref, enabled
        FROM erpassist_actions`, actions),
	})
	defer drv.assertConsumed(t)
	defer db.Close()

	store := &CatalogStore{db: db}
	entries, err := store.Actions(context.Background())
	if err != nil {
		t.Fatalf("load actions failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	payroll := entries[0]
	if payroll.Name != "execute_payroll" || len(payroll.AllowedRoles) != 2 {
		t.Fatalf("roles not joined: %+v", payroll)
	}
	if string(payroll.Parameters) != `{"type":"object"}` {
		t.Fatalf("parameters not carried: %s", payroll.Parameters)
	}
	leads := entries[1]
	if leads.Description != "" || len(leads.AllowedRoles) != 0 {
		t.Fatalf("unexpected unrestricted entry: %+v", leads)
	}
}

func TestRecordBackendInsertConflictAndGet(t *testing.T) {
	t.Parallel()

	db, drv := newMockDB(t, []sqlOp{
		execOpResult(`INSERT IGNORE INTO erpassist_records (record_type, name, fields, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)`, mockResult{rowsAffected: 0}),
		queryOp(`SELECT fields FROM erpassist_records WHERE record_type = ? AND name = ?`,
			rowsData{columns: []string{"fields"}}),
		queryOp(`SELECT fields FROM erpassist_records WHERE record_type = ? AND name = ?`,
			rowsData{columns: []string{"fields"}, values: [][]driver.Value{{`{"name":"LEAD-0001","status":"Open"}`}}}),
	})
	defer drv.assertConsumed(t)
	defer db.Close()

	backend := &RecordBackend{db: db}

	_, err := backend.Insert(context.Background(), "Lead", map[string]any{"name": "LEAD-0001"})
	if xerrors.CodeOf(err) != handlers.CodeRecordConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := backend.Get(context.Background(), "Lead", "missing"); xerrors.CodeOf(err) != handlers.CodeRecordNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	record, err := backend.Get(context.Background(), "Lead", "LEAD-0001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if record["status"] != "Open" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func migrationStatements(t *testing.T, name string) []string {
	t.Helper()
	content, err := embeddedMigrations.ReadFile(name)
	if err != nil {
		t.Fatalf("read migration %s: %v", name, err)
	}
	statements := splitSQLStatements(string(content))
	if len(statements) == 0 {
		t.Fatalf("no statements in migration %s", name)
	}
	return statements
}

type opType int

const (
	opExec opType = iota
	opQuery
	opBegin
	opCommit
	opRollback
)

type sqlOp struct {
	typ    opType
	query  string
	result mockResult
	rows   rowsData
}

type mockResult struct {
	lastInsertID int64
	rowsAffected int64
}

func (r mockResult) LastInsertId() (int64, error) { return r.lastInsertID, nil }
func (r mockResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type rowsData struct {
	columns []string
	values  [][]driver.Value
}

func execOp(query string) sqlOp {
	return sqlOp{typ: opExec, query: query, result: mockResult{rowsAffected: 1}}
}

func execOpResult(query string, result mockResult) sqlOp {
	return sqlOp{typ: opExec, query: query, result: result}
}

func queryOp(query string, rows rowsData) sqlOp {
	return sqlOp{typ: opQuery, query: query, rows: rows}
}

func beginOp() sqlOp  { return sqlOp{typ: opBegin} }
func commitOp() sqlOp { return sqlOp{typ: opCommit} }

// queueDriver 按既定顺序消费 SQL 操作，任何偏差都会让测试失败。
type queueDriver struct {
	ops []sqlOp
	idx atomic.Int32
}

var driverSeq atomic.Int32

func newMockDB(t *testing.T, ops []sqlOp) (*sql.DB, *queueDriver) {
	t.Helper()

	drv := &queueDriver{ops: ops}
	name := fmt.Sprintf("mock-mysql-%d", driverSeq.Add(1))
	sql.Register(name, drv)

	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("open mock db failed: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, drv
}

func (d *queueDriver) assertConsumed(t *testing.T) {
	t.Helper()
	if int(d.idx.Load()) != len(d.ops) {
		t.Fatalf("not all operations consumed: %d/%d", d.idx.Load(), len(d.ops))
	}
}

func (d *queueDriver) next(expected opType, query string) (*sqlOp, error) {
	idx := int(d.idx.Load())
	if idx >= len(d.ops) {
		return nil, fmt.Errorf("unexpected operation: %v", expected)
	}
	op := &d.ops[idx]
	if op.typ != expected {
		return nil, fmt.Errorf("expected operation %v at %d, got %v", op.typ, idx, expected)
	}
	d.idx.Add(1)
	if op.query != "" && normalizeSQL(op.query) != normalizeSQL(query) {
		return nil, fmt.Errorf("unexpected query. want %q got %q", normalizeSQL(op.query), normalizeSQL(query))
	}
	return op, nil
}

func (d *queueDriver) Open(string) (driver.Conn, error) {
	return &mockConn{driver: d}, nil
}

type mockConn struct {
	driver *queueDriver
}

func (c *mockConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported: %s", query)
}

func (c *mockConn) Close() error { return nil }

func (c *mockConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *mockConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if _, err := c.driver.next(opBegin, ""); err != nil {
		return nil, err
	}
	return &mockTx{driver: c.driver}, nil
}

func (c *mockConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	op, err := c.driver.next(opExec, query)
	if err != nil {
		return nil, err
	}
	return op.result, nil
}

func (c *mockConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	op, err := c.driver.next(opQuery, query)
	if err != nil {
		return nil, err
	}
	return &mockRows{columns: op.rows.columns, values: op.rows.values}, nil
}

func (c *mockConn) Ping(context.Context) error { return nil }

type mockTx struct {
	driver *queueDriver
}

func (t *mockTx) Commit() error {
	_, err := t.driver.next(opCommit, "")
	return err
}

func (t *mockTx) Rollback() error {
	_, err := t.driver.next(opRollback, "")
	return err
}

type mockRows struct {
	columns []string
	values  [][]driver.Value
	idx     int
}

func (r *mockRows) Columns() []string { return r.columns }
func (r *mockRows) Close() error      { return nil }

func (r *mockRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}

func normalizeSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
