// Package core 提供事件总线核心接口定义
package core

import (
	"context"
	"sync/atomic"
	"time"
)

// Event 发射上下文（每次 Emit 创建一次，调用返回后丢弃）
//
// Name/Payload/Path 在分发期间只读；标志位为原子操作，
// 异步 listener 可在 worker goroutine 中安全调用 StopPropagation 等方法。
type Event struct {
	Payload   any       // 业务负载
	Metadata  Metadata  // 中间件写入的元数据（分发开始后只读）
	Name      string    // 原始事件名（EmitGroup 时为 group 名）
	Group     string    // 非空表示由 EmitGroup 发起
	Path      []string  // 层级路径（最具体在前）
	Timestamp time.Time // 创建时间

	ctx   context.Context
	level atomic.Pointer[string]

	stopped   atomic.Bool // stopPropagation
	halted    atomic.Bool // stopImmediatePropagation
	prevented atomic.Bool // preventDefault
}

// NewEvent 创建发射上下文，ctx 为 nil 时使用 context.Background()
func NewEvent(ctx context.Context, name string, payload any, now time.Time) *Event {
	if ctx == nil {
		ctx = context.Background()
	}
	e := &Event{
		Payload:   payload,
		Metadata:  make(Metadata),
		Name:      name,
		Path:      Path(name),
		Timestamp: now,
		ctx:       ctx,
	}
	e.SetLevel(name)
	return e
}

// NewGroupEvent 创建 EmitGroup 的发射上下文，Path 为 group 内的事件名（首次注册顺序）
func NewGroupEvent(ctx context.Context, group string, names []string, payload any, now time.Time) *Event {
	e := NewEvent(ctx, group, payload, now)
	e.Group = group
	e.Path = names
	return e
}

// Context 返回事件关联的 context
func (e *Event) Context() context.Context {
	return e.ctx
}

// SetContext 替换事件 context（仅在 BeforeEmit 中调用，分发开始后不可再改）
func (e *Event) SetContext(ctx context.Context) {
	if ctx != nil {
		e.ctx = ctx
	}
}

// Level 当前正在分发的层级名
func (e *Event) Level() string {
	if p := e.level.Load(); p != nil {
		return *p
	}
	return e.Name
}

// SetLevel 由分发管线在进入新层级前调用
func (e *Event) SetLevel(level string) {
	e.level.Store(&level)
}

// StopPropagation 阻止进入下一个（更宽泛的）层级
func (e *Event) StopPropagation() {
	e.stopped.Store(true)
}

// StopImmediatePropagation 终止当前层级剩余的同步调用（含 group 阶段），并隐含 StopPropagation
func (e *Event) StopImmediatePropagation() {
	e.halted.Store(true)
	e.stopped.Store(true)
}

// PreventDefault 标记默认行为被取消（由调用方自行解释）
func (e *Event) PreventDefault() {
	e.prevented.Store(true)
}

// PropagationStopped 是否已调用 StopPropagation
func (e *Event) PropagationStopped() bool { return e.stopped.Load() }

// ImmediatePropagationStopped 是否已调用 StopImmediatePropagation
func (e *Event) ImmediatePropagationStopped() bool { return e.halted.Load() }

// DefaultPrevented 是否已调用 PreventDefault
func (e *Event) DefaultPrevented() bool { return e.prevented.Load() }

// Handler 事件处理器
//
// 返回普通值 → 同步结果直接进入结果列表；
// 返回 Future → 视为异步结果，与 listener 超时竞速。
type Handler func(ctx context.Context, e *Event) (any, error)

// Reporter 统一错误上报（所有失败都汇集到这里，不向 Emit/On 调用方抛出）
type Reporter func(err *Error)

// Clock 时间源（cleanup 与 listener 年龄计算使用，测试中可替换）
type Clock interface {
	Now() time.Time
}

// Middleware 发射中间件
//
// BeforeEmit 返回 false 时中止本次发射；AfterEmit 观察最终结果。
type Middleware interface {
	BeforeEmit(e *Event) bool
	AfterEmit(e *Event, results []any)
}

// VetoObserver 可选接口：BeforeEmit 已放行的中间件在后续中间件否决本次发射时收到 OnVeto，
// 此时不会再有 AfterEmit
type VetoObserver interface {
	OnVeto(e *Event)
}

// MiddlewareFunc 普通函数形式的中间件，等价于只有 BeforeEmit
type MiddlewareFunc func(e *Event) bool

// BeforeEmit 实现 Middleware
func (f MiddlewareFunc) BeforeEmit(e *Event) bool { return f(e) }

// AfterEmit 实现 Middleware（空操作）
func (f MiddlewareFunc) AfterEmit(*Event, []any) {}

// Hooks 具名钩子形式的中间件，nil 字段视为未设置
type Hooks struct {
	Before func(e *Event) bool
	After  func(e *Event, results []any)
	Veto   func(e *Event)
}

// BeforeEmit 实现 Middleware
func (h Hooks) BeforeEmit(e *Event) bool {
	if h.Before == nil {
		return true
	}
	return h.Before(e)
}

// AfterEmit 实现 Middleware
func (h Hooks) AfterEmit(e *Event, results []any) {
	if h.After != nil {
		h.After(e, results)
	}
}

// OnVeto 实现 VetoObserver
func (h Hooks) OnVeto(e *Event) {
	if h.Veto != nil {
		h.Veto(e)
	}
}

// Bus 事件总线接口
type Bus interface {
	// On 订阅事件（名称含 * ? + | 时按 pattern 注册），失败返回 nil 与错误
	On(event string, handler Handler, opts ...Option) (*Subscription, error)

	// Once 等价于 On + AsOnce()
	Once(event string, handler Handler, opts ...Option) (*Subscription, error)

	// Off 取消订阅；id 为空时移除该事件名下全部 listener
	Off(event, id string) bool

	// OffHandler 按 handler 身份取消订阅。身份为函数指针：同一函数字面量创建的
	// 闭包彼此相等，会被一并移除；只需移除单个 listener 时用 Off(event, id)
	OffHandler(event string, handler Handler) bool

	// Emit 发射事件，返回同步结果与已完成的异步结果
	Emit(ctx context.Context, event string, payload any) []any

	// EmitGroup 只调用指定 group 内的 listener
	EmitGroup(ctx context.Context, group string, payload any) []any

	// Use 注册中间件，返回自身便于链式调用
	Use(m Middleware) Bus

	// EventInfo 单个事件名（或 pattern）的快照
	EventInfo(event string) EventInfo

	// DebugInfo 全局诊断快照
	DebugInfo() DebugInfo

	// Stats 运行时统计
	Stats() Stats

	// Sweep 立即执行一轮清理，返回被移除的 listener 数
	Sweep() int

	// Clear 移除全部订阅、group、中间件与历史
	Clear()

	// Destroy Clear 并停止后台清理与 worker 池，之后的调用均为空操作
	Destroy()
}
