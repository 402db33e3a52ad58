package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/uniyakcom/herald/core"
	"github.com/uniyakcom/herald/internal/impl/cleanup"
	"github.com/uniyakcom/herald/internal/impl/history"
	"github.com/uniyakcom/herald/internal/impl/registry"
	"github.com/uniyakcom/herald/internal/support/wpool"
)

// Bus 层级事件总线
//
// 注册表、中间件链与 history 各自加锁；分发期间不持有任何锁，
// handler 内可以安全地嵌套 On/Off/Emit。
type Bus struct {
	store     *registry.Store
	pool      *wpool.Pool
	tracer    *history.Tracer // TraceEvents=false 时为 nil
	scheduler *cleanup.Scheduler
	stats     *counters

	mu         sync.Mutex
	middleware atomic.Pointer[[]core.Middleware] // CoW

	cfg       Config
	destroyed atomic.Bool
}

// New 使用配置创建总线并启动清理调度
func New(cfg *Config) (*Bus, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.normalize()

	b := &Bus{
		store: registry.New(),
		stats: newCounters(),
		cfg:   c,
	}
	empty := []core.Middleware{}
	b.middleware.Store(&empty)

	pool, err := wpool.New(c.PoolSize, func(r any) {
		c.Logger.Error("herald: worker panic escaped", "panic", r)
	})
	if err != nil {
		return nil, err
	}
	b.pool = pool

	if c.TraceEvents {
		b.tracer = history.New(c.HistorySize, c.HistoryMaxAge, c.Clock)
	}

	var trimmer cleanup.Trimmer
	if b.tracer != nil {
		trimmer = b.tracer
	}
	b.scheduler = cleanup.New(c.Cleanup, b.store, trimmer, c.Clock, c.Logger, b.onEvict)
	if err := b.scheduler.Start(); err != nil {
		_ = pool.Release(0)
		return nil, err
	}

	c.Logger.Debug("herald: bus created",
		"maxListeners", c.MaxListeners, "asyncTimeout", c.AsyncTimeout,
		"trace", c.TraceEvents, "cleanup", c.Cleanup.Enabled, "pool", pool.Cap())
	return b, nil
}

// On 订阅事件或 pattern
func (b *Bus) On(event string, handler core.Handler, opts ...core.Option) (*core.Subscription, error) {
	o := core.BuildOptions(b.cfg.AsyncTimeout, opts...)

	if b.destroyed.Load() {
		return nil, b.reject(core.KindValidation, event, &o, core.ErrBusDestroyed)
	}
	if err := core.ValidateName(event); err != nil {
		return nil, b.reject(core.KindValidation, event, &o, err)
	}
	if handler == nil {
		return nil, b.reject(core.KindValidation, event, &o, core.ErrNilHandler)
	}

	now := b.cfg.Clock.Now()
	l := core.NewListener(uuid.NewString(), event, handler, o, now)
	evicted, err := b.store.Add(l, b.cfg.MaxListeners, b.cfg.Cleanup.MaxAge, now)
	if len(evicted) > 0 {
		b.onEvict(evicted)
	}
	if err != nil {
		return nil, b.reject(core.KindCapacity, event, &o, err)
	}

	id := l.ID
	return core.NewSubscription(id, event, func() bool {
		return b.store.Remove(id)
	}), nil
}

// Once 订阅一次
func (b *Bus) Once(event string, handler core.Handler, opts ...core.Option) (*core.Subscription, error) {
	return b.On(event, handler, append(opts, core.AsOnce())...)
}

// Off 按 ID 取消订阅，id 为空时移除该事件名（或 pattern）下全部 listener
func (b *Bus) Off(event, id string) bool {
	if b.destroyed.Load() {
		return false
	}
	return b.store.RemoveEvent(event, id) > 0
}

// OffHandler 按 handler 身份取消订阅
func (b *Bus) OffHandler(event string, handler core.Handler) bool {
	if b.destroyed.Load() || handler == nil {
		return false
	}
	return b.store.RemoveHandler(event, handler) > 0
}

// Emit 发射事件，逐层分发并返回结果
func (b *Bus) Emit(ctx context.Context, event string, payload any) []any {
	results := []any{}
	if b.destroyed.Load() {
		return results
	}
	b.stats.emitted.Inc()

	if err := core.ValidateName(event); err != nil {
		b.report(core.NewError(core.KindEmit, event, "", nil, err))
		return results
	}

	e := core.NewEvent(ctx, event, payload, b.cfg.Clock.Now())
	if !b.before(e) {
		b.stats.vetoed.Inc()
		return results
	}
	if b.tracer != nil {
		b.tracer.Record(e, 1)
	}

	for _, level := range e.Path {
		if e.PropagationStopped() {
			break
		}
		e.SetLevel(level)
		results = b.dispatchLevel(e, level, results)
	}

	b.after(e, results)
	return results
}

// EmitGroup 只调用 group 成员，按事件名首次注册顺序逐个处理
func (b *Bus) EmitGroup(ctx context.Context, group string, payload any) []any {
	results := []any{}
	if b.destroyed.Load() {
		return results
	}
	b.stats.emitted.Inc()

	if group == "" {
		b.report(core.NewError(core.KindEmit, group, "", nil, core.ErrEmptyEventName))
		return results
	}

	batches := b.store.Group(group)
	names := make([]string, len(batches))
	for i, batch := range batches {
		names[i] = batch.Event
	}

	e := core.NewGroupEvent(ctx, group, names, payload, b.cfg.Clock.Now())
	if !b.before(e) {
		b.stats.vetoed.Inc()
		return results
	}
	if b.tracer != nil {
		b.tracer.Record(e, 1)
	}

	for _, batch := range batches {
		if e.PropagationStopped() {
			break
		}
		e.SetLevel(batch.Event)
		lv := b.newLevel(e)
		for _, l := range batch.Listeners {
			if e.ImmediatePropagationStopped() {
				break
			}
			results = lv.invoke(l, results)
		}
		results = lv.await(results)
	}

	b.after(e, results)
	return results
}

// Sweep 立即执行一次清理 tick
func (b *Bus) Sweep() int {
	if b.destroyed.Load() {
		return 0
	}
	return b.scheduler.Tick()
}

// Clear 移除全部订阅、中间件与历史，并清零统计
func (b *Bus) Clear() {
	n := b.store.Clear()
	b.mu.Lock()
	empty := []core.Middleware{}
	b.middleware.Store(&empty)
	b.mu.Unlock()
	if b.tracer != nil {
		b.tracer.Reset()
	}
	b.stats.reset()
	b.cfg.Logger.Debug("herald: bus cleared", "listeners", n)
}

// Destroy 停止清理调度与 worker 池并清空状态，之后的调用均为空操作
func (b *Bus) Destroy() {
	if !b.destroyed.CompareAndSwap(false, true) {
		return
	}
	b.scheduler.Stop(b.cfg.DrainTimeout)
	b.Clear()
	if err := b.pool.Release(b.cfg.DrainTimeout); err != nil {
		b.cfg.Logger.Warn("herald: worker pool drain timed out", "error", err)
	}
	b.cfg.Logger.Debug("herald: bus destroyed")
}

// reject 上报订阅失败并返回同一错误
func (b *Bus) reject(kind core.Kind, event string, opts *core.Options, err error) error {
	e := core.NewError(kind, event, "", opts, err)
	b.report(e)
	return e
}

// onEvict 统计被淘汰的 listener（强制插入与 cleanup 共用）
func (b *Bus) onEvict(evicted []*core.Listener) {
	b.stats.evicted.Add(int64(len(evicted)))
	for _, l := range evicted {
		b.cfg.Logger.Debug("herald: listener evicted",
			"id", l.ID, "event", l.Event, "age", l.Age(b.cfg.Clock.Now()))
	}
}

// report 错误统一出口：Reporter 优先，否则写日志
func (b *Bus) report(err *core.Error) {
	if b.cfg.Reporter != nil {
		defer func() {
			if r := recover(); r != nil {
				b.cfg.Logger.Error("herald: reporter panic", "panic", r, "error", err)
			}
		}()
		b.cfg.Reporter(err)
		return
	}
	attrs := []any{"kind", err.Kind.String(), "event", err.Event, "error", err.Err}
	if err.ListenerID != "" {
		attrs = append(attrs, "listener", err.ListenerID)
	}
	if err.Kind == core.KindTimeout {
		b.cfg.Logger.Warn("herald: listener timed out", attrs...)
		return
	}
	b.cfg.Logger.Error("herald: "+err.Kind.String(), attrs...)
}

var _ core.Bus = (*Bus)(nil)
