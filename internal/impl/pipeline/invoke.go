package pipeline

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/uniyakcom/herald/core"
)

// dispatchLevel 处理一个层级：pattern → 精确 bucket（跳过分组成员）→ group，最后等待本层异步结果
func (b *Bus) dispatchLevel(e *core.Event, level string, results []any) []any {
	lv := b.newLevel(e)

	for _, l := range b.store.Patterns() {
		if e.ImmediatePropagationStopped() {
			break
		}
		if l.Matcher.Match(level) {
			results = lv.invoke(l, results)
		}
	}

	for _, l := range b.store.Exact(level) {
		if e.ImmediatePropagationStopped() {
			break
		}
		if l.Options.Group == "" {
			results = lv.invoke(l, results)
		}
	}

	for _, l := range b.store.GroupAt(level) {
		if e.ImmediatePropagationStopped() {
			break
		}
		results = lv.invoke(l, results)
	}

	return lv.await(results)
}

// level 单个层级的调用状态（仅由发射 goroutine 访问）
type level struct {
	bus     *Bus
	e       *core.Event
	pending []*pending
}

// pending 已排队的异步结果
type pending struct {
	l      *core.Listener
	ctx    context.Context
	cancel context.CancelFunc
	done   <-chan struct{}
	result func() (any, error)
}

func (b *Bus) newLevel(e *core.Event) *level {
	return &level{bus: b, e: e}
}

// invoke 调用一个 listener：once 先移除再调用；同步值直接追加，
// Async listener 与返回 Future 的 handler 进入本层等待队列
func (lv *level) invoke(l *core.Listener, results []any) []any {
	if !l.Active() {
		return results
	}
	b := lv.bus
	if l.Options.Once && !b.store.Remove(l.ID) {
		return results // 已被其他发射抢先移除
	}
	b.stats.invoked.Inc()

	if l.Options.Async {
		lv.pending = append(lv.pending, b.submit(lv.e, l))
		return results
	}

	v, err := b.attempt(lv.e.Context(), lv.e, l, time.Now().Add(l.Options.Timeout))
	if err != nil {
		b.fail(lv.e, l, core.KindListener, err)
		return results
	}
	if f, ok := v.(core.Future); ok {
		lv.pending = append(lv.pending, b.race(lv.e, l, f))
		return results
	}
	return append(results, v)
}

// await 按排队顺序收集本层异步结果；失败与超时上报后剔除
func (lv *level) await(results []any) []any {
	for _, p := range lv.pending {
		v, err := p.wait()
		if err == nil {
			results = append(results, v)
			continue
		}
		kind := core.KindListener
		if errors.Is(err, core.ErrAsyncTimeout) {
			kind = core.KindTimeout
		}
		lv.bus.fail(lv.e, p.l, kind, err)
	}
	lv.pending = nil
	return results
}

// wait 等待结果或超时；二者同时就绪时以结果为准
func (p *pending) wait() (any, error) {
	defer p.cancel()
	select {
	case <-p.done:
		return p.result()
	case <-p.ctx.Done():
		select {
		case <-p.done:
			return p.result()
		default:
		}
		if errors.Is(p.ctx.Err(), context.DeadlineExceeded) {
			return nil, core.ErrAsyncTimeout
		}
		return nil, p.ctx.Err()
	}
}

// submit 在 worker 池中执行 Async listener，超时从排队时刻开始计算
func (b *Bus) submit(e *core.Event, l *core.Listener) *pending {
	ctx, cancel := context.WithTimeout(e.Context(), l.Options.Timeout)
	done := make(chan struct{})
	var val any
	var err error

	b.pool.Submit(func() {
		defer close(done)
		deadline, _ := ctx.Deadline()
		val, err = b.attempt(ctx, e, l, deadline)
		if err != nil {
			// handler 因自身 deadline 返回时按超时处理
			if errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = core.ErrAsyncTimeout
			}
			return
		}
		if f, ok := val.(core.Future); ok {
			select {
			case <-f.Done():
				val, err = f.Result()
			case <-ctx.Done():
				val, err = nil, core.ErrAsyncTimeout
			}
		}
	})

	return &pending{
		l:      l,
		ctx:    ctx,
		cancel: cancel,
		done:   done,
		result: func() (any, error) { return val, err },
	}
}

// race 同步 handler 返回的 Future 与 listener 超时竞速
func (b *Bus) race(e *core.Event, l *core.Listener, f core.Future) *pending {
	ctx, cancel := context.WithTimeout(e.Context(), l.Options.Timeout)
	return &pending{
		l:      l,
		ctx:    ctx,
		cancel: cancel,
		done:   f.Done(),
		result: f.Result,
	}
}

// attempt 调用 handler，错误与 panic 在 MaxRetries 次数内立即重试（超过 deadline 后不再重试）
func (b *Bus) attempt(ctx context.Context, e *core.Event, l *core.Listener, deadline time.Time) (v any, err error) {
	for i := 0; i < l.Options.MaxRetries; i++ {
		if i > 0 {
			if ctx.Err() != nil || (!deadline.IsZero() && time.Now().After(deadline)) {
				break
			}
			b.cfg.Logger.Debug("herald: retrying listener",
				"event", e.Name, "listener", l.ID, "attempt", i+1, "error", err)
		}
		v, err = b.call(ctx, e, l)
		if err == nil {
			return v, nil
		}
	}
	return nil, err
}

// call 单次调用，panic 转为 PanicError
func (b *Bus) call(ctx context.Context, e *core.Event, l *core.Listener) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.stats.panics.Inc()
			v, err = nil, &core.PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return l.Handler(ctx, e)
}

// fail 统计并上报 listener 失败，随后调用 listener 自身的 OnError
func (b *Bus) fail(e *core.Event, l *core.Listener, kind core.Kind, err error) {
	if kind == core.KindTimeout {
		b.stats.timedOut.Inc()
	} else {
		b.stats.failed.Inc()
	}
	opts := l.Options
	report := core.NewError(kind, e.Name, l.ID, &opts, err)
	b.report(report)

	if l.Options.OnError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.cfg.Logger.Error("herald: listener error callback panic", "listener", l.ID, "panic", r)
		}
	}()
	l.Options.OnError(report)
}
