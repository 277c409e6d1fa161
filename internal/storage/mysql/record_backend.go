package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "github.com/africanwebguy/erpassist/internal/errors"
	"github.com/africanwebguy/erpassist/internal/handlers"
)

// RecordBackend 把业务记录以 JSON 文档形式存进 MySQL，实现 handlers.Backend。
// 过滤条件是 Go 函数，无法下推，List 读取整个记录类型后在内存过滤。
type RecordBackend struct {
	db *sql.DB
}

// NewRecordBackend 建立连接并执行迁移。
func NewRecordBackend(ctx context.Context, cfg Config) (*RecordBackend, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &RecordBackend{db: db}, nil
}

// List 返回匹配的记录，按名称排序保证结果确定。
func (b *RecordBackend) List(ctx context.Context, recordType string, filter handlers.Filter) ([]map[string]any, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT fields FROM erpassist_records WHERE record_type = ? ORDER BY name`, recordType)
	if err != nil {
		return nil, fmt.Errorf("查询业务记录失败: %w", err)
	}
	defer rows.Close()

	var results []map[string]any
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("解析业务记录失败: %w", err)
		}
		record := make(map[string]any)
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("反序列化业务记录失败: %w", err)
		}
		if filter != nil && !filter(record) {
			continue
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历业务记录失败: %w", err)
	}
	return results, nil
}

// Get 返回指定记录。
func (b *RecordBackend) Get(ctx context.Context, recordType, name string) (map[string]any, error) {
	var raw []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT fields FROM erpassist_records WHERE record_type = ? AND name = ?`, recordType, name).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, xerrors.New(handlers.CodeRecordNotFound, recordType+" 不存在: "+name)
	}
	if err != nil {
		return nil, fmt.Errorf("查询业务记录失败: %w", err)
	}
	record := make(map[string]any)
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("反序列化业务记录失败: %w", err)
	}
	return record, nil
}

// Insert 写入记录，未提供 name 字段时自动生成。返回记录名。
func (b *RecordBackend) Insert(ctx context.Context, recordType string, record map[string]any) (string, error) {
	name, _ := record["name"].(string)
	if strings.TrimSpace(name) == "" {
		name = recordType + "-" + uuid.NewString()[:8]
	}
	stored := make(map[string]any, len(record)+1)
	for key, value := range record {
		stored[key] = value
	}
	stored["name"] = name

	encoded, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("序列化业务记录失败: %w", err)
	}
	now := time.Now().Unix()
	result, err := b.db.ExecContext(ctx,
		`INSERT IGNORE INTO erpassist_records (record_type, name, fields, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)`, recordType, name, encoded, now, now)
	if err != nil {
		return "", fmt.Errorf("写入业务记录失败: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err == nil && inserted == 0 {
		return "", xerrors.New(handlers.CodeRecordConflict, recordType+" 已存在: "+name)
	}
	return name, nil
}

// Update 更新指定记录的字段，读改写在单个事务内完成。
func (b *RecordBackend) Update(ctx context.Context, recordType, name string, fields map[string]any) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启记录更新事务失败: %w", err)
	}

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT fields FROM erpassist_records WHERE record_type = ? AND name = ? FOR UPDATE`,
		recordType, name).Scan(&raw)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return xerrors.New(handlers.CodeRecordNotFound, recordType+" 不存在: "+name)
	}
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("查询业务记录失败: %w", err)
	}

	record := make(map[string]any)
	if err := json.Unmarshal(raw, &record); err != nil {
		tx.Rollback()
		return fmt.Errorf("反序列化业务记录失败: %w", err)
	}
	for key, value := range fields {
		record[key] = value
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("序列化业务记录失败: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE erpassist_records SET fields = ?, updated_at = ? WHERE record_type = ? AND name = ?`,
		encoded, time.Now().Unix(), recordType, name); err != nil {
		tx.Rollback()
		return fmt.Errorf("更新业务记录失败: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交记录更新事务失败: %w", err)
	}
	return nil
}

// Close 关闭数据库连接。
func (b *RecordBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

var _ handlers.Backend = (*RecordBackend)(nil)
