package registry

import (
	"sort"

	"github.com/uniyakcom/herald/core"
)

// Exact 返回精确事件名的 bucket 快照（按优先级降序，调用方不得修改）
func (s *Store) Exact(name string) []*core.Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buckets[name]
}

// insertByPriority 生成插入 l 后的新 bucket（CoW）
// 插入位置为第一个优先级更低的元素之前，同优先级保持注册顺序
func insertByPriority(bucket []*core.Listener, l *core.Listener) []*core.Listener {
	p := l.Options.Priority
	i := sort.Search(len(bucket), func(i int) bool {
		return bucket[i].Options.Priority < p
	})
	out := make([]*core.Listener, 0, len(bucket)+1)
	out = append(out, bucket[:i]...)
	out = append(out, l)
	out = append(out, bucket[i:]...)
	return out
}

// removeFromBucket 生成移除 id 后的新 bucket（CoW）
func removeFromBucket(bucket []*core.Listener, id string) []*core.Listener {
	out := make([]*core.Listener, 0, len(bucket))
	for _, l := range bucket {
		if l.ID != id {
			out = append(out, l)
		}
	}
	return out
}
