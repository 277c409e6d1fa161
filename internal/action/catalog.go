package action

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MemoryCatalog 以内存切片作为目录来源，主要用于测试与开发环境。
type MemoryCatalog struct {
	entries []Action
}

// NewMemoryCatalog 创建内存目录来源。
func NewMemoryCatalog(entries []Action) *MemoryCatalog {
	cloned := make([]Action, len(entries))
	copy(cloned, entries)
	return &MemoryCatalog{entries: cloned}
}

// Actions 返回目录快照。
func (c *MemoryCatalog) Actions(_ context.Context) ([]Action, error) {
	snapshot := make([]Action, len(c.entries))
	copy(snapshot, c.entries)
	return snapshot, nil
}

// FileCatalog 从 YAML 文件加载动作目录，供不接数据库的部署使用。
type FileCatalog struct {
	path string
}

// NewFileCatalog 创建文件目录来源。
func NewFileCatalog(path string) *FileCatalog {
	return &FileCatalog{path: path}
}

// yamlAction 是目录文件中一条动作的反序列化形态。
// parameters 字段是描述参数结构的自由映射，转存为 JSON 供意图解析使用。
type yamlAction struct {
	Name                 string         `yaml:"name"`
	Category             Category       `yaml:"category"`
	Module               string         `yaml:"module"`
	Description          string         `yaml:"description"`
	RiskLevel            RiskLevel      `yaml:"risk_level"`
	RequiresConfirmation bool           `yaml:"requires_confirmation"`
	AllowedRoles         []string       `yaml:"allowed_roles"`
	Parameters           map[string]any `yaml:"parameters"`
	Handler              string         `yaml:"handler"`
	Enabled              *bool          `yaml:"enabled"`
}

type yamlCatalog struct {
	Actions []yamlAction `yaml:"actions"`
}

// Actions 解析目录文件并返回全部条目。
func (c *FileCatalog) Actions(_ context.Context) ([]Action, error) {
	content, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("读取目录文件失败: %w", err)
	}

	var doc yamlCatalog
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("解析目录文件失败: %w", err)
	}

	entries := make([]Action, 0, len(doc.Actions))
	for _, raw := range doc.Actions {
		entry := Action{
			Name:                 raw.Name,
			Category:             raw.Category,
			Module:               raw.Module,
			Description:          raw.Description,
			RiskLevel:            raw.RiskLevel,
			RequiresConfirmation: raw.RequiresConfirmation,
			AllowedRoles:         append([]string(nil), raw.AllowedRoles...),
			Handler:              raw.Handler,
			// 目录文件中未写 enabled 的条目默认启用。
			Enabled: raw.Enabled == nil || *raw.Enabled,
		}
		if len(raw.Parameters) > 0 {
			encoded, err := json.Marshal(raw.Parameters)
			if err != nil {
				return nil, fmt.Errorf("序列化动作 %s 的参数描述失败: %w", raw.Name, err)
			}
			entry.Parameters = encoded
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
