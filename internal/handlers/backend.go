// Package handlers 提供默认动作目录对应的处理函数实现。
// 处理函数通过 Backend 访问业务记录，通过记录授权器做记录级鉴权；
// 角色层授权在分发层已经完成。
package handlers

import (
	"context"
	"sort"
	"strconv"
	"sync"

	xerrors "github.com/africanwebguy/erpassist/internal/errors"
)

// Filter 是记录查询的匹配条件，nil 表示匹配所有。
type Filter func(record map[string]any) bool

// Backend 抽象业务记录的存取。记录以记录类型分组，字段自由。
type Backend interface {
	List(ctx context.Context, recordType string, filter Filter) ([]map[string]any, error)
	Get(ctx context.Context, recordType, name string) (map[string]any, error)
	Insert(ctx context.Context, recordType string, record map[string]any) (string, error)
	Update(ctx context.Context, recordType, name string, fields map[string]any) error
}

// 记录后端错误码。
const (
	CodeRecordNotFound xerrors.Code = "RECORD_NOT_FOUND"
	CodeRecordConflict xerrors.Code = "RECORD_CONFLICT"
)

func init() {
	xerrors.Register(CodeRecordNotFound, xerrors.Attributes{
		Message:   "business record does not exist",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodeRecordConflict, xerrors.Attributes{
		Message:   "business record already exists",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
}

// MemoryBackend 以内存保存业务记录，供开发环境与测试使用。
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]map[string]map[string]any
	seq     int
}

// NewMemoryBackend 创建空的内存后端。
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]map[string]map[string]any)}
}

// List 返回匹配的记录快照，按名称排序保证结果确定。
func (m *MemoryBackend) List(_ context.Context, recordType string, filter Filter) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	group := m.records[recordType]
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]map[string]any, 0, len(names))
	for _, name := range names {
		record := cloneRecord(group[name])
		if filter != nil && !filter(record) {
			continue
		}
		results = append(results, record)
	}
	return results, nil
}

// Get 返回指定记录。
func (m *MemoryBackend) Get(_ context.Context, recordType, name string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[recordType][name]
	if !ok {
		return nil, xerrors.New(CodeRecordNotFound, recordType+" 不存在: "+name)
	}
	return cloneRecord(record), nil
}

// Insert 写入记录，未提供 name 字段时自动生成。返回记录名。
func (m *MemoryBackend) Insert(_ context.Context, recordType string, record map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.records[recordType] == nil {
		m.records[recordType] = make(map[string]map[string]any)
	}
	name, _ := record["name"].(string)
	if name == "" {
		m.seq++
		name = recordType + "-" + strconv.Itoa(m.seq)
	}
	if _, ok := m.records[recordType][name]; ok {
		return "", xerrors.New(CodeRecordConflict, recordType+" 已存在: "+name)
	}
	stored := cloneRecord(record)
	stored["name"] = name
	m.records[recordType][name] = stored
	return name, nil
}

// Update 更新指定记录的字段。
func (m *MemoryBackend) Update(_ context.Context, recordType, name string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[recordType][name]
	if !ok {
		return xerrors.New(CodeRecordNotFound, recordType+" 不存在: "+name)
	}
	for key, value := range fields {
		record[key] = value
	}
	return nil
}

func cloneRecord(record map[string]any) map[string]any {
	clone := make(map[string]any, len(record))
	for key, value := range record {
		clone[key] = value
	}
	return clone
}

var _ Backend = (*MemoryBackend)(nil)
