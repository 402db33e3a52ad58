package registry

import "github.com/uniyakcom/herald/core"

// patternIndex pattern listener 索引（注册顺序，不做优先级排序）
type patternIndex struct {
	list   []*core.Listener // CoW，分发路径直接持有快照
	counts map[string]int   // pattern → listener 数（容量判断用）
}

func newPatternIndex() *patternIndex {
	return &patternIndex{counts: make(map[string]int)}
}

func (p *patternIndex) add(l *core.Listener) {
	next := make([]*core.Listener, 0, len(p.list)+1)
	next = append(next, p.list...)
	p.list = append(next, l)
	p.counts[l.Event]++
}

func (p *patternIndex) remove(l *core.Listener) {
	next := make([]*core.Listener, 0, len(p.list))
	for _, x := range p.list {
		if x.ID != l.ID {
			next = append(next, x)
		}
	}
	if len(next) == len(p.list) {
		return
	}
	p.list = next
	if p.counts[l.Event]--; p.counts[l.Event] <= 0 {
		delete(p.counts, l.Event)
	}
}

func (p *patternIndex) count(pattern string) int {
	return p.counts[pattern]
}

func (p *patternIndex) distinct() int {
	return len(p.counts)
}

func (p *patternIndex) keys() []string {
	out := make([]string, 0, len(p.counts))
	for k := range p.counts {
		out = append(out, k)
	}
	return out
}

func (p *patternIndex) byPattern(pattern string) []*core.Listener {
	var out []*core.Listener
	for _, l := range p.list {
		if l.Event == pattern {
			out = append(out, l)
		}
	}
	return out
}

// Patterns 返回全部 pattern listener 快照（注册顺序，调用方不得修改）
func (s *Store) Patterns() []*core.Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.patterns.list
}
