package action

import (
	"context"
	"sort"
	"strings"

	xerrors "github.com/africanwebguy/erpassist/internal/errors"
)

// CatalogSource 抽象动作目录的外部来源。实现方负责返回目录的全量快照，
// 包括每条动作附带的角色列表；注册表只在加载阶段访问来源。
type CatalogSource interface {
	Actions(ctx context.Context) ([]Action, error)
}

// Registry 是动作白名单的内存索引。Load 成功之后内容不再变化，
// 并发读取无需加锁；重新加载目录意味着构造一个新的 Registry。
type Registry struct {
	actions map[string]Action
	names   []string
}

// NewRegistry 从目录来源加载注册表。禁用的动作在此处即被剔除，
// 而非仅仅隐藏。仅当来源不可达时返回错误。
func NewRegistry(ctx context.Context, source CatalogSource) (*Registry, error) {
	if source == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置动作目录来源")
	}
	entries, err := source.Actions(ctx)
	if err != nil {
		return nil, xerrors.Wrap(CodeCatalogLoad, err, "加载动作目录失败")
	}

	actions := make(map[string]Action, len(entries))
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		if name == "" || !entry.Enabled {
			continue
		}
		entry.Name = name
		actions[name] = entry
	}

	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{actions: actions, names: names}, nil
}

// Get 按名称查找动作。
func (r *Registry) Get(name string) (Action, bool) {
	if r == nil {
		return Action{}, false
	}
	act, ok := r.actions[strings.TrimSpace(name)]
	return act, ok
}

// All 返回已加载的全部动作，按名称排序，不做角色过滤。
// 角色受限的动作 Available 会按调用者角色剔除，遍历整个目录时用这里。
func (r *Registry) All() []Action {
	if r == nil {
		return nil
	}
	all := make([]Action, 0, len(r.names))
	for _, name := range r.names {
		all = append(all, r.actions[name])
	}
	return all
}

// Available 返回给定角色集合可用的所有动作，按名称排序，
// 对相同输入的结果是确定的。
func (r *Registry) Available(roles []string) []Action {
	if r == nil {
		return nil
	}
	available := make([]Action, 0, len(r.names))
	for _, name := range r.names {
		act := r.actions[name]
		if act.AllowedFor(roles) {
			available = append(available, act)
		}
	}
	return available
}

// IsAllowed 判断名称对应的动作是否对给定角色可用。未知动作返回 false。
func (r *Registry) IsAllowed(name string, roles []string) bool {
	act, ok := r.Get(name)
	if !ok {
		return false
	}
	return act.AllowedFor(roles)
}

// Len 返回已加载的动作数量。
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.actions)
}
