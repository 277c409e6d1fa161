package audit

import (
	"context"
	"sort"
	"sync"
)

// MemorySink 以内存方式保存审计记录，主要用于测试与开发环境。
type MemorySink struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemorySink 创建 MemorySink。
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append 实现 Sink 接口。
func (m *MemorySink) Append(_ context.Context, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

// QueryByUser 返回指定用户最近的记录。
func (m *MemorySink) QueryByUser(_ context.Context, user string, limit int) ([]Record, error) {
	return m.query(func(r Record) bool { return r.User == user }, limit), nil
}

// QueryByAction 返回指定动作最近的记录。
func (m *MemorySink) QueryByAction(_ context.Context, actionName string, limit int) ([]Record, error) {
	return m.query(func(r Record) bool { return r.ActionName == actionName }, limit), nil
}

func (m *MemorySink) query(match func(Record) bool, limit int) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = normalizeLimit(limit)
	results := make([]Record, 0, limit)
	for _, record := range m.records {
		if match(record) {
			results = append(results, record)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Len 返回已写入的记录数量，供测试使用。
func (m *MemorySink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close 对内存后端无需操作。
func (m *MemorySink) Close() error {
	return nil
}

var _ Sink = (*MemorySink)(nil)
