package registry

import "github.com/uniyakcom/herald/core"

// Info 事件名（或 pattern）的快照
func (s *Store) Info(event string) core.EventInfo {
	s.mu.RLock()
	ls := s.listenersOfLocked(event)
	s.mu.RUnlock()

	info := core.EventInfo{
		Name:          event,
		Pattern:       core.IsPattern(event),
		ListenerCount: len(ls),
		Listeners:     make([]core.ListenerInfo, 0, len(ls)),
		Groups:        s.GroupsOf(event),
	}
	for _, l := range ls {
		info.Listeners = append(info.Listeners, l.Info())
	}
	return info
}

// Counts 各索引的规模（DebugInfo 使用）
func (s *Store) Counts() (events, patterns, groups map[string]int, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events = make(map[string]int, len(s.buckets))
	for k, b := range s.buckets {
		events[k] = len(b)
	}
	patterns = make(map[string]int, len(s.patterns.counts))
	for k, n := range s.patterns.counts {
		patterns[k] = n
	}
	groups = make(map[string]int, len(s.groups.sets))
	for k, set := range s.groups.sets {
		groups[k] = set.size
	}
	return events, patterns, groups, len(s.byID)
}
