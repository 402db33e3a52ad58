package core

import (
	"sync"
	"time"
)

// ListenerInfo listener 只读快照
type ListenerInfo struct {
	CreatedAt time.Time     `json:"createdAt"`
	ID        string        `json:"id"`
	Event     string        `json:"event"`
	Group     string        `json:"group,omitempty"`
	Timeout   time.Duration `json:"timeout"`
	Priority  int           `json:"priority"`
	Once      bool          `json:"once,omitempty"`
	Async     bool          `json:"async,omitempty"`
	Pattern   bool          `json:"pattern,omitempty"`
}

// EventInfo 单个事件名（或 pattern）的快照
type EventInfo struct {
	Name          string         `json:"name"`
	Listeners     []ListenerInfo `json:"listeners"`
	Groups        []string       `json:"groups,omitempty"`
	ListenerCount int            `json:"listenerCount"`
	Pattern       bool           `json:"pattern,omitempty"`
}

// HistoryEntry 一次发射的不可变快照（仅 TraceEvents 开启时记录）
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	Name      string    `json:"name"`
	Path      []string  `json:"path"`
	Trace     []string  `json:"trace,omitempty"` // 调用点 "func file:line"
}

// Stats 运行时统计
type Stats struct {
	Emitted  int64 `json:"emitted"`  // Emit/EmitGroup 调用次数
	Vetoed   int64 `json:"vetoed"`   // 被中间件否决的次数
	Invoked  int64 `json:"invoked"`  // listener 调用次数
	Failed   int64 `json:"failed"`   // listener 失败次数（含 panic，不含超时）
	TimedOut int64 `json:"timedOut"` // 异步超时次数
	Panics   int64 `json:"panics"`   // handler panic 次数
	Evicted  int64 `json:"evicted"`  // cleanup 淘汰的 listener 数

	Pool PoolStats `json:"pool"`
}

// PoolStats 异步 worker 池状态
type PoolStats struct {
	Running  int   `json:"running"`  // 执行中的 worker
	Capacity int   `json:"capacity"` // 池容量
	Overflow int64 `json:"overflow"` // 池满时退化为独立 goroutine 的次数（累计，不随 Clear 清零）
}

// DebugInfo 全局诊断快照
type DebugInfo struct {
	Events         map[string]int `json:"events"`   // 事件名 → listener 数
	Patterns       map[string]int `json:"patterns"` // pattern → listener 数
	Groups         map[string]int `json:"groups"`   // group → 成员数
	History        []HistoryEntry `json:"history,omitempty"`
	Stats          Stats          `json:"stats"`
	TotalListeners int            `json:"totalListeners"`
	Middleware     int            `json:"middleware"`
}

// SystemClock 使用 time.Now
type SystemClock struct{}

// Now 实现 Clock
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock 手动推进的时钟（测试用）
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock 创建起始于 start 的手动时钟
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now 实现 Clock
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance 推进时钟
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
