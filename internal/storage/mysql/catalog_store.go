package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/africanwebguy/erpassist/internal/action"
)

// CatalogStore 从 MySQL 读取动作目录：动作主表加角色关联表。
// 实现 action.CatalogSource。
type CatalogStore struct {
	db *sql.DB
}

// NewCatalogStore 建立连接并执行迁移。
func NewCatalogStore(ctx context.Context, cfg Config) (*CatalogStore, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &CatalogStore{db: db}, nil
}

// Actions 返回目录全量快照，包括每条动作的角色列表。
func (s *CatalogStore) Actions(ctx context.Context) ([]action.Action, error) {
	roles, err := s.loadRoles(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT action_name, action_category, module, description,
        risk_level, requires_confirmation, parameters, handler_ref, enabled
        FROM erpassist_actions`)
	if err != nil {
		return nil, fmt.Errorf("查询动作目录失败: %w", err)
	}
	defer rows.Close()

	var entries []action.Action
	for rows.Next() {
		var (
			entry       action.Action
			description sql.NullString
			parameters  sql.NullString
		)
		if err := rows.Scan(&entry.Name, &entry.Category, &entry.Module, &description,
			&entry.RiskLevel, &entry.RequiresConfirmation, &parameters, &entry.Handler, &entry.Enabled); err != nil {
			return nil, fmt.Errorf("解析动作目录失败: %w", err)
		}
		entry.Description = description.String
		if parameters.Valid && parameters.String != "" {
			entry.Parameters = json.RawMessage(parameters.String)
		}
		entry.AllowedRoles = roles[entry.Name]
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历动作目录失败: %w", err)
	}
	return entries, nil
}

func (s *CatalogStore) loadRoles(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT action_name, role FROM erpassist_action_roles`)
	if err != nil {
		return nil, fmt.Errorf("查询动作角色失败: %w", err)
	}
	defer rows.Close()

	roles := make(map[string][]string)
	for rows.Next() {
		var actionName, role string
		if err := rows.Scan(&actionName, &role); err != nil {
			return nil, fmt.Errorf("解析动作角色失败: %w", err)
		}
		roles[actionName] = append(roles[actionName], role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历动作角色失败: %w", err)
	}
	return roles, nil
}

// Install 把一组动作写入目录表，已存在的条目跳过。
// 供安装流程导入内置目录使用。
func (s *CatalogStore) Install(ctx context.Context, entries []action.Action) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启目录导入事务失败: %w", err)
	}

	for _, entry := range entries {
		var parameters any
		if len(entry.Parameters) > 0 {
			parameters = string(entry.Parameters)
		}
		result, err := tx.ExecContext(ctx, `INSERT IGNORE INTO erpassist_actions
            (action_name, action_category, module, description, risk_level, requires_confirmation, parameters, handler_ref, enabled)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.Name, entry.Category, entry.Module, entry.Description,
			entry.RiskLevel, entry.RequiresConfirmation, parameters, entry.Handler, entry.Enabled)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("导入动作 %s 失败: %w", entry.Name, err)
		}
		inserted, err := result.RowsAffected()
		if err != nil || inserted == 0 {
			continue
		}
		for _, role := range entry.AllowedRoles {
			if _, err := tx.ExecContext(ctx, `INSERT IGNORE INTO erpassist_action_roles (action_name, role) VALUES (?, ?)`,
				entry.Name, role); err != nil {
				tx.Rollback()
				return fmt.Errorf("导入动作角色失败: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交目录导入事务失败: %w", err)
	}
	return nil
}

// Close 关闭数据库连接。
func (s *CatalogStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ action.CatalogSource = (*CatalogStore)(nil)
