package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink 把审计记录以 JSON 行追加到本地文件，重启后可继续查询。
// 适合不接数据库的单机部署。
type FileSink struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	records []Record
}

// NewFileSink 打开（必要时创建）审计文件并加载已有记录。
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("审计文件路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建审计目录失败: %w", err)
	}

	records, err := loadRecords(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开审计文件失败: %w", err)
	}
	return &FileSink{path: path, file: file, records: records}, nil
}

func loadRecords(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取审计文件失败: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record Record
		// 跳过损坏的行，保留其余记录可用。
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("扫描审计文件失败: %w", err)
	}
	return records, nil
}

// Append 实现 Sink 接口。
func (f *FileSink) Append(_ context.Context, record Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return fmt.Errorf("审计文件已关闭")
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化审计记录失败: %w", err)
	}
	if _, err := f.file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("写入审计记录失败: %w", err)
	}
	f.records = append(f.records, record)
	return nil
}

// QueryByUser 返回指定用户最近的记录。
func (f *FileSink) QueryByUser(_ context.Context, user string, limit int) ([]Record, error) {
	return f.query(func(r Record) bool { return r.User == user }, limit), nil
}

// QueryByAction 返回指定动作最近的记录。
func (f *FileSink) QueryByAction(_ context.Context, actionName string, limit int) ([]Record, error) {
	return f.query(func(r Record) bool { return r.ActionName == actionName }, limit), nil
}

func (f *FileSink) query(match func(Record) bool, limit int) []Record {
	f.mu.Lock()
	defer f.mu.Unlock()

	limit = normalizeLimit(limit)
	results := make([]Record, 0, limit)
	for i := len(f.records) - 1; i >= 0 && len(results) < limit; i-- {
		if match(f.records[i]) {
			results = append(results, f.records[i])
		}
	}
	return results
}

// Close 关闭底层文件。
func (f *FileSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

var _ Sink = (*FileSink)(nil)
