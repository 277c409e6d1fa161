package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/africanwebguy/erpassist/internal/audit"
)

// AuditStore 把审计记录写入 MySQL，实现 audit.Sink。
// 记录只追加，不提供更新或删除。
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore 建立连接并执行迁移。
func NewAuditStore(ctx context.Context, cfg Config) (*AuditStore, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &AuditStore{db: db}, nil
}

// Append 实现 Sink 接口。
func (s *AuditStore) Append(ctx context.Context, record audit.Record) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO erpassist_audit_log
        (id, user, action_name, action_category, status, timestamp, session_id, query, result, error_message)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.User, record.ActionName, record.ActionCategory, record.Status,
		record.Timestamp.UnixNano(), record.SessionID, record.Query, record.Result, record.ErrorMessage)
	if err != nil {
		return fmt.Errorf("写入审计记录失败: %w", err)
	}
	return nil
}

// QueryByUser 返回指定用户最近的记录，时间倒序。
func (s *AuditStore) QueryByUser(ctx context.Context, user string, limit int) ([]audit.Record, error) {
	return s.query(ctx, `SELECT id, user, action_name, action_category, status, timestamp,
        session_id, query, result, error_message
        FROM erpassist_audit_log WHERE user = ? ORDER BY timestamp DESC LIMIT ?`, user, limit)
}

// QueryByAction 返回指定动作最近的记录，时间倒序。
func (s *AuditStore) QueryByAction(ctx context.Context, actionName string, limit int) ([]audit.Record, error) {
	return s.query(ctx, `SELECT id, user, action_name, action_category, status, timestamp,
        session_id, query, result, error_message
        FROM erpassist_audit_log WHERE action_name = ? ORDER BY timestamp DESC LIMIT ?`, actionName, limit)
}

func (s *AuditStore) query(ctx context.Context, stmt, key string, limit int) ([]audit.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, stmt, key, limit)
	if err != nil {
		return nil, fmt.Errorf("查询审计记录失败: %w", err)
	}
	defer rows.Close()

	var records []audit.Record
	for rows.Next() {
		var (
			record    audit.Record
			timestamp int64
			query     sql.NullString
			result    sql.NullString
			errMsg    sql.NullString
		)
		if err := rows.Scan(&record.ID, &record.User, &record.ActionName, &record.ActionCategory,
			&record.Status, &timestamp, &record.SessionID, &query, &result, &errMsg); err != nil {
			return nil, fmt.Errorf("解析审计记录失败: %w", err)
		}
		record.Timestamp = time.Unix(0, timestamp).UTC()
		record.Query = query.String
		record.Result = result.String
		record.ErrorMessage = errMsg.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历审计记录失败: %w", err)
	}
	return records, nil
}

// Close 关闭数据库连接。
func (s *AuditStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ audit.Sink = (*AuditStore)(nil)
