package registry

import "github.com/uniyakcom/herald/core"

// groupIndex 二级索引：group → 事件名 → listener ID
// 只保存 ID，不持有 listener；group 在最后一个成员移除时删除
type groupIndex struct {
	sets  map[string]*groupSet
	order []string // group 首次注册顺序
}

type groupSet struct {
	ids   map[string][]string // 事件名 → ID（注册顺序）
	names []string            // 事件名首次注册顺序
	size  int
}

func newGroupIndex() *groupIndex {
	return &groupIndex{sets: make(map[string]*groupSet)}
}

func (g *groupIndex) add(group, event, id string) {
	set, ok := g.sets[group]
	if !ok {
		set = &groupSet{ids: make(map[string][]string)}
		g.sets[group] = set
		g.order = append(g.order, group)
	}
	if _, ok := set.ids[event]; !ok {
		set.names = append(set.names, event)
	}
	set.ids[event] = append(set.ids[event], id)
	set.size++
}

func (g *groupIndex) remove(group, event, id string) {
	set, ok := g.sets[group]
	if !ok {
		return
	}
	ids := set.ids[event]
	for i, x := range ids {
		if x != id {
			continue
		}
		next := make([]string, 0, len(ids)-1)
		next = append(next, ids[:i]...)
		set.ids[event] = append(next, ids[i+1:]...)
		set.size--
		break
	}
	if len(set.ids[event]) == 0 {
		delete(set.ids, event)
		set.names = without(set.names, event)
	}
	if set.size == 0 {
		delete(g.sets, group)
		g.order = without(g.order, group)
	}
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// Batch EmitGroup 中一个事件名对应的成员
type Batch struct {
	Event     string
	Listeners []*core.Listener
}

// GroupAt 返回在 name 上注册了精确 listener 的所有 group 成员
// （group 按首次注册顺序，组内按注册顺序）
func (s *Store) GroupAt(name string) []*core.Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.Listener
	for _, group := range s.groups.order {
		ids := s.groups.sets[group].ids[name]
		if len(ids) == 0 {
			continue
		}
		for _, l := range s.resolveLocked(ids) {
			if !l.IsPattern() {
				out = append(out, l)
			}
		}
	}
	return out
}

// Group 返回 group 的全部成员，按事件名分批
func (s *Store) Group(group string) []Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.groups.sets[group]
	if !ok {
		return nil
	}
	out := make([]Batch, 0, len(set.names))
	for _, name := range set.names {
		if ls := s.resolveLocked(set.ids[name]); len(ls) > 0 {
			out = append(out, Batch{Event: name, Listeners: ls})
		}
	}
	return out
}

// GroupsOf 返回在 event 上有成员的 group
func (s *Store) GroupsOf(event string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, group := range s.groups.order {
		if len(s.groups.sets[group].ids[event]) > 0 {
			out = append(out, group)
		}
	}
	return out
}
