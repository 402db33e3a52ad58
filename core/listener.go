package core

import (
	"reflect"
	"sync/atomic"
	"time"
)

// Listener 已注册的处理器（由 registry 独占持有，group 索引只保存 ID）
type Listener struct {
	Handler   Handler
	Matcher   *Matcher // 仅 pattern listener 非 nil
	CreatedAt time.Time
	ID        string
	Event     string // 精确事件名或 pattern
	Options   Options

	fn     uintptr // handler 函数指针，OffHandler 按此比对
	active atomic.Bool
}

// NewListener 创建处于 active 状态的 listener
func NewListener(id, event string, h Handler, opts Options, now time.Time) *Listener {
	l := &Listener{
		Handler:   h,
		CreatedAt: now,
		ID:        id,
		Event:     event,
		Options:   opts,
		fn:        HandlerPointer(h),
	}
	if IsPattern(event) {
		l.Matcher = CompileMatcher(event)
	}
	l.active.Store(true)
	return l
}

// HandlerPointer 取 handler 的函数指针（同一函数字面量的闭包共享同一指针）
func HandlerPointer(h Handler) uintptr {
	if h == nil {
		return 0
	}
	return reflect.ValueOf(h).Pointer()
}

// SameHandler handler 身份比对
func (l *Listener) SameHandler(h Handler) bool {
	return h != nil && l.fn == HandlerPointer(h)
}

// Active 是否仍处于 active 状态
func (l *Listener) Active() bool {
	return l.active.Load()
}

// Deactivate 标记移除，仅首次调用返回 true（状态不可逆）
func (l *Listener) Deactivate() bool {
	return l.active.CompareAndSwap(true, false)
}

// IsPattern 是否为 pattern listener
func (l *Listener) IsPattern() bool {
	return l.Matcher != nil
}

// Age 相对 now 的存活时间
func (l *Listener) Age(now time.Time) time.Duration {
	return now.Sub(l.CreatedAt)
}

// Info 只读快照
func (l *Listener) Info() ListenerInfo {
	return ListenerInfo{
		ID:        l.ID,
		Event:     l.Event,
		Group:     l.Options.Group,
		Priority:  l.Options.Priority,
		Once:      l.Options.Once,
		Async:     l.Options.Async,
		Pattern:   l.IsPattern(),
		Timeout:   l.Options.Timeout,
		CreatedAt: l.CreatedAt,
	}
}

// Subscription 取消订阅句柄（重复调用 Unsubscribe 为空操作）
type Subscription struct {
	off   func() bool
	id    string
	event string
	done  atomic.Bool
}

// NewSubscription 创建句柄，off 负责从 registry 中移除该 listener
func NewSubscription(id, event string, off func() bool) *Subscription {
	return &Subscription{off: off, id: id, event: event}
}

// ID listener 标识
func (s *Subscription) ID() string { return s.id }

// Event 订阅的事件名或 pattern
func (s *Subscription) Event() string { return s.event }

// Unsubscribe 移除该 listener，仅首次且确实移除时返回 true
func (s *Subscription) Unsubscribe() bool {
	if s == nil || !s.done.CompareAndSwap(false, true) {
		return false
	}
	return s.off()
}
