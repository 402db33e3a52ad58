package pipeline

import (
	"fmt"

	"github.com/uniyakcom/herald/core"
)

// Use 追加中间件（nil 忽略），返回自身便于链式调用
func (b *Bus) Use(m core.Middleware) core.Bus {
	if m == nil || b.destroyed.Load() {
		return b
	}
	b.mu.Lock()
	old := *b.middleware.Load()
	next := make([]core.Middleware, 0, len(old)+1)
	next = append(next, old...)
	next = append(next, m)
	b.middleware.Store(&next)
	b.mu.Unlock()
	return b
}

// before 按注册顺序执行 BeforeEmit，任一返回 false 即中止，并通知此前已放行的中间件；
// panic 上报后视为放行
func (b *Bus) before(e *core.Event) bool {
	chain := *b.middleware.Load()
	for i, m := range chain {
		if !b.safeBefore(m, e) {
			for _, prev := range chain[:i] {
				if o, ok := prev.(core.VetoObserver); ok {
					b.safeVeto(o, e)
				}
			}
			return false
		}
	}
	return true
}

func (b *Bus) safeVeto(o core.VetoObserver, e *core.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.report(core.NewError(core.KindMiddleware, e.Name, "", nil, fmt.Errorf("on veto: %w", panicErr(r))))
		}
	}()
	o.OnVeto(e)
}

func (b *Bus) safeBefore(m core.Middleware, e *core.Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.report(core.NewError(core.KindMiddleware, e.Name, "", nil, fmt.Errorf("before emit: %w", panicErr(r))))
			ok = true
		}
	}()
	return m.BeforeEmit(e)
}

// after 按注册顺序执行 AfterEmit
func (b *Bus) after(e *core.Event, results []any) {
	for _, m := range *b.middleware.Load() {
		b.safeAfter(m, e, results)
	}
}

func (b *Bus) safeAfter(m core.Middleware, e *core.Event, results []any) {
	defer func() {
		if r := recover(); r != nil {
			b.report(core.NewError(core.KindMiddleware, e.Name, "", nil, fmt.Errorf("after emit: %w", panicErr(r))))
		}
	}()
	m.AfterEmit(e, results)
}

func panicErr(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &core.PanicError{Value: r}
}
