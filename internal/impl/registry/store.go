// Package registry 提供 listener / pattern / group 三个索引
//
// 三个索引共用一把 RWMutex，保证分组 listener 在主索引与 group 索引中同时增删。
// 主索引的 bucket 切片采用 CoW（Copy-on-Write）：发布后不再原地修改，
// 分发路径拿到的切片即为快照，遍历期间的 once 移除不会跳过或重复访问兄弟 listener。
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/uniyakcom/herald/core"
)

// Store listener 注册表
type Store struct {
	mu sync.RWMutex

	buckets  map[string][]*core.Listener // 精确事件名 → 按优先级降序
	patterns *patternIndex
	groups   *groupIndex
	byID     map[string]*core.Listener
}

// New 创建空注册表
func New() *Store {
	return &Store{
		buckets:  make(map[string][]*core.Listener),
		patterns: newPatternIndex(),
		groups:   newGroupIndex(),
		byID:     make(map[string]*core.Listener),
	}
}

// Add 插入 listener
//
// 目标 bucket 已达 maxListeners 时：force=false 返回 ErrMaxListenersExceeded；
// force=true 先淘汰该 bucket 中存活超过 maxAge 的 listener，然后照常插入。
// 返回被淘汰的 listener（调用方负责统计/日志）。
func (s *Store) Add(l *core.Listener, maxListeners int, maxAge time.Duration, now time.Time) ([]*core.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []*core.Listener
	if maxListeners > 0 && s.countLocked(l) >= maxListeners {
		if !l.Options.Force {
			return nil, core.ErrMaxListenersExceeded
		}
		evicted = s.evictStaleLocked(l.Event, now.Add(-maxAge), maxAge > 0)
	}

	if l.IsPattern() {
		s.patterns.add(l)
	} else {
		s.buckets[l.Event] = insertByPriority(s.buckets[l.Event], l)
	}
	s.byID[l.ID] = l
	if l.Options.Group != "" {
		s.groups.add(l.Options.Group, l.Event, l.ID)
	}
	return evicted, nil
}

// Remove 按 ID 移除，仅实际移除时返回 true（once 分发以此做原子抢占）
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok {
		return false
	}
	s.removeLocked(l)
	return true
}

// RemoveEvent 按事件名（或 pattern）+ 可选 ID 移除；id 为空时移除该名下全部
func (s *Store) RemoveEvent(event, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		l, ok := s.byID[id]
		if !ok || l.Event != event {
			return 0
		}
		s.removeLocked(l)
		return 1
	}

	victims := s.listenersOfLocked(event)
	for _, l := range victims {
		s.removeLocked(l)
	}
	return len(victims)
}

// RemoveHandler 移除该事件名下所有使用 h 的 listener
func (s *Store) RemoveHandler(event string, h core.Handler) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.listenersOfLocked(event) {
		if l.SameHandler(h) {
			s.removeLocked(l)
			n++
		}
	}
	return n
}

// Clear 清空全部索引（所有 listener 置为非 active）
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.byID)
	for _, l := range s.byID {
		l.Deactivate()
	}
	s.buckets = make(map[string][]*core.Listener)
	s.patterns = newPatternIndex()
	s.groups = newGroupIndex()
	s.byID = make(map[string]*core.Listener)
	return n
}

// Keys 所有 bucket 键（精确事件名 + pattern），字典序
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.buckets)+s.patterns.distinct())
	for k := range s.buckets {
		keys = append(keys, k)
	}
	keys = append(keys, s.patterns.keys()...)
	sort.Strings(keys)
	return keys
}

// EvictStale 淘汰给定 bucket 中 CreatedAt 早于 cutoff 的 listener
func (s *Store) EvictStale(keys []string, cutoff time.Time) []*core.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.Listener
	for _, k := range keys {
		out = append(out, s.evictStaleLocked(k, cutoff, true)...)
	}
	return out
}

func (s *Store) countLocked(l *core.Listener) int {
	if l.IsPattern() {
		return s.patterns.count(l.Event)
	}
	return len(s.buckets[l.Event])
}

// listenersOfLocked 返回事件名（或 pattern）下的 listener 副本
func (s *Store) listenersOfLocked(event string) []*core.Listener {
	if core.IsPattern(event) {
		return s.patterns.byPattern(event)
	}
	bucket := s.buckets[event]
	out := make([]*core.Listener, len(bucket))
	copy(out, bucket)
	return out
}

func (s *Store) evictStaleLocked(event string, cutoff time.Time, enabled bool) []*core.Listener {
	if !enabled {
		return nil
	}
	var stale []*core.Listener
	for _, l := range s.listenersOfLocked(event) {
		if l.CreatedAt.Before(cutoff) {
			stale = append(stale, l)
		}
	}
	for _, l := range stale {
		s.removeLocked(l)
	}
	return stale
}

// removeLocked 从全部索引中移除（主索引与 group 索引同时进行）
func (s *Store) removeLocked(l *core.Listener) {
	l.Deactivate()
	delete(s.byID, l.ID)
	if l.IsPattern() {
		s.patterns.remove(l)
	} else {
		s.buckets[l.Event] = removeFromBucket(s.buckets[l.Event], l.ID)
		if len(s.buckets[l.Event]) == 0 {
			delete(s.buckets, l.Event)
		}
	}
	if l.Options.Group != "" {
		s.groups.remove(l.Options.Group, l.Event, l.ID)
	}
}

// resolveLocked ID 列表 → listener（跳过已移除的）
func (s *Store) resolveLocked(ids []string) []*core.Listener {
	out := make([]*core.Listener, 0, len(ids))
	for _, id := range ids {
		if l, ok := s.byID[id]; ok {
			out = append(out, l)
		}
	}
	return out
}
