package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniyakcom/herald/core"
)

// reports 线程安全的 Reporter 收集器
type reports struct {
	mu   sync.Mutex
	errs []*core.Error
}

func (r *reports) add(err *core.Error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *reports) all() []*core.Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*core.Error(nil), r.errs...)
}

func (r *reports) kinds() []core.Kind {
	var out []core.Kind
	for _, e := range r.all() {
		out = append(out, e.Kind)
	}
	return out
}

func newBus(t *testing.T, mutate ...func(*Config)) (*Bus, *reports) {
	t.Helper()
	rep := &reports{}
	cfg := DefaultConfig()
	cfg.Reporter = rep.add
	for _, m := range mutate {
		m(cfg)
	}
	b, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(b.Destroy)
	return b, rep
}

// value 返回固定值的 handler
func value(v any) core.Handler {
	return func(context.Context, *core.Event) (any, error) { return v, nil }
}

// record 追加调用记录并返回 v
func record(mu *sync.Mutex, log *[]string, tag string) core.Handler {
	return func(context.Context, *core.Event) (any, error) {
		mu.Lock()
		*log = append(*log, tag)
		mu.Unlock()
		return tag, nil
	}
}

func mustOn(t *testing.T, b *Bus, event string, h core.Handler, opts ...core.Option) *core.Subscription {
	t.Helper()
	sub, err := b.On(event, h, opts...)
	require.NoError(t, err)
	require.NotNil(t, sub)
	return sub
}

func TestHierarchyOrdering(t *testing.T) {
	b, _ := newBus(t)
	var mu sync.Mutex
	var log []string
	mustOn(t, b, "a", record(&mu, &log, "a"))
	mustOn(t, b, "a.b", record(&mu, &log, "a.b"))

	results := b.Emit(context.Background(), "a.b.c", nil)
	assert.Equal(t, []any{"a.b", "a"}, results)
	assert.Equal(t, []string{"a.b", "a"}, log)
}

func TestPriorityOrdering(t *testing.T) {
	b, _ := newBus(t)
	mustOn(t, b, "x", value("Q"), core.WithPriority(1))
	mustOn(t, b, "x", value("P"), core.WithPriority(10))
	mustOn(t, b, "x", value("R"), core.WithPriority(1))

	assert.Equal(t, []any{"P", "Q", "R"}, b.Emit(context.Background(), "x", struct{}{}))
}

func TestOnceSemantics(t *testing.T) {
	b, _ := newBus(t)
	var calls atomic.Int32
	_, err := b.Once("y", func(context.Context, *core.Event) (any, error) {
		calls.Add(1)
		return "cb", nil
	})
	require.NoError(t, err)
	mustOn(t, b, "y", value("other"))

	assert.Equal(t, []any{"cb", "other"}, b.Emit(context.Background(), "y", nil))
	assert.Equal(t, []any{"other"}, b.Emit(context.Background(), "y", nil))
	assert.Equal(t, int32(1), calls.Load())
}

func TestOnceSelfRemovalDoesNotSkipSiblings(t *testing.T) {
	b, _ := newBus(t)
	var mu sync.Mutex
	var log []string
	for _, tag := range []string{"1", "2", "3"} {
		mustOn(t, b, "z", record(&mu, &log, tag), core.AsOnce())
	}
	mustOn(t, b, "z", record(&mu, &log, "4"))

	b.Emit(context.Background(), "z", nil)
	assert.Equal(t, []string{"1", "2", "3", "4"}, log)
	assert.Equal(t, 1, b.EventInfo("z").ListenerCount)
}

func TestGlobMatching(t *testing.T) {
	b, _ := newBus(t)
	var calls atomic.Int32
	mustOn(t, b, "user.*", func(context.Context, *core.Event) (any, error) {
		calls.Add(1)
		return "p", nil
	})

	assert.Equal(t, []any{"p"}, b.Emit(context.Background(), "user.created", nil))
	assert.Equal(t, int32(1), calls.Load())

	assert.Empty(t, b.Emit(context.Background(), "order.created", nil))
	assert.Equal(t, int32(1), calls.Load())
}

func TestPatternInvokedPerMatchingLevel(t *testing.T) {
	b, _ := newBus(t)
	var levels []string
	mustOn(t, b, "user.*", func(_ context.Context, e *core.Event) (any, error) {
		levels = append(levels, e.Level())
		return nil, nil
	})
	b.Emit(context.Background(), "user.created.profile", nil)
	assert.Equal(t, []string{"user.created.profile", "user.created"}, levels)
}

func TestOncePatternRemovedOnFirstMatch(t *testing.T) {
	b, _ := newBus(t)
	var calls atomic.Int32
	mustOn(t, b, "user.*", func(context.Context, *core.Event) (any, error) {
		calls.Add(1)
		return nil, nil
	}, core.AsOnce())

	b.Emit(context.Background(), "user.created.profile", nil)
	b.Emit(context.Background(), "user.created", nil)
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, b.EventInfo("user.*").ListenerCount)
}

func TestPatternsBeforeExactBeforeGroups(t *testing.T) {
	b, _ := newBus(t)
	var mu sync.Mutex
	var log []string
	mustOn(t, b, "k", record(&mu, &log, "group"), core.InGroup("g"), core.WithPriority(100))
	mustOn(t, b, "k", record(&mu, &log, "exact"))
	mustOn(t, b, "k*", record(&mu, &log, "pattern"))

	assert.Equal(t, []any{"pattern", "exact", "group"}, b.Emit(context.Background(), "k", nil))
	assert.Equal(t, []string{"pattern", "exact", "group"}, log, "grouped listener fires once, in the group phase")
}

func TestGroupIsolation(t *testing.T) {
	b, _ := newBus(t)
	var a1, b1 atomic.Int32
	mustOn(t, b, "sync.save", func(context.Context, *core.Event) (any, error) {
		a1.Add(1)
		return "a1", nil
	}, core.InGroup("A"))
	mustOn(t, b, "sync.save", func(context.Context, *core.Event) (any, error) {
		b1.Add(1)
		return "b1", nil
	}, core.InGroup("B"))

	assert.Equal(t, []any{"a1"}, b.EmitGroup(context.Background(), "A", "data"))
	assert.Equal(t, int32(1), a1.Load())
	assert.Equal(t, int32(0), b1.Load())

	assert.Equal(t, []any{"a1", "b1"}, b.Emit(context.Background(), "sync.save", "data"))
	assert.Equal(t, int32(2), a1.Load())
	assert.Equal(t, int32(1), b1.Load())
}

func TestEmitGroupAcrossNames(t *testing.T) {
	b, _ := newBus(t)
	var levels []string
	h := func(_ context.Context, e *core.Event) (any, error) {
		levels = append(levels, e.Level())
		assert.Equal(t, "batch", e.Group)
		return e.Level(), nil
	}
	mustOn(t, b, "cart.save", h, core.InGroup("batch"))
	mustOn(t, b, "profile.save", h, core.InGroup("batch"))
	mustOn(t, b, "cart.save", value("ungrouped"))

	results := b.EmitGroup(context.Background(), "batch", nil)
	assert.Equal(t, []any{"cart.save", "profile.save"}, results)
	assert.Equal(t, []string{"cart.save", "profile.save"}, levels)
	assert.Empty(t, b.EmitGroup(context.Background(), "missing", nil))
}

func TestTimeoutIsolation(t *testing.T) {
	b, rep := newBus(t)
	mustOn(t, b, "slow", func(ctx context.Context, _ *core.Event) (any, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, core.AsAsync(), core.WithTimeout(20*time.Millisecond))
	mustOn(t, b, "slow", value("sync"))

	start := time.Now()
	results := b.Emit(context.Background(), "slow", nil)
	assert.Equal(t, []any{"sync"}, results)
	assert.Less(t, time.Since(start), 45*time.Millisecond)

	require.Equal(t, []core.Kind{core.KindTimeout}, rep.kinds())
	assert.ErrorIs(t, rep.all()[0], core.ErrAsyncTimeout)
	assert.Equal(t, int64(1), b.Stats().TimedOut)
}

func TestAsyncResultsAwaitedPerLevel(t *testing.T) {
	b, _ := newBus(t)
	var mu sync.Mutex
	var log []string
	mustOn(t, b, "a.b", func(context.Context, *core.Event) (any, error) {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		log = append(log, "a.b async")
		mu.Unlock()
		return "async", nil
	}, core.AsAsync())
	mustOn(t, b, "a.b", record(&mu, &log, "a.b sync"))
	mustOn(t, b, "a", record(&mu, &log, "a"))

	results := b.Emit(context.Background(), "a.b", nil)
	assert.Equal(t, []any{"a.b sync", "async", "a"}, results)
	assert.Equal(t, []string{"a.b sync", "a.b async", "a"}, log)
}

func TestFutureResult(t *testing.T) {
	b, rep := newBus(t)
	mustOn(t, b, "f", func(context.Context, *core.Event) (any, error) {
		return core.Go(func() (any, error) { return "done", nil }), nil
	})
	mustOn(t, b, "f", func(context.Context, *core.Event) (any, error) {
		return core.Rejected(errors.New("nope")), nil
	})
	mustOn(t, b, "f", func(context.Context, *core.Event) (any, error) {
		return core.Go(func() (any, error) {
			time.Sleep(50 * time.Millisecond)
			return "late", nil
		}), nil
	}, core.WithTimeout(10*time.Millisecond))

	assert.Equal(t, []any{"done"}, b.Emit(context.Background(), "f", nil))
	assert.ElementsMatch(t, []core.Kind{core.KindListener, core.KindTimeout}, rep.kinds())
}

func TestListenerErrorIsolation(t *testing.T) {
	b, rep := newBus(t)
	var seen atomic.Pointer[core.Error]
	mustOn(t, b, "e", func(context.Context, *core.Event) (any, error) {
		return nil, errors.New("bad")
	}, core.WithErrorHandler(func(err *core.Error) { seen.Store(err) }), core.WithPriority(2))
	mustOn(t, b, "e", func(context.Context, *core.Event) (any, error) {
		panic("boom")
	}, core.WithPriority(1))
	mustOn(t, b, "e", value("ok"))

	assert.Equal(t, []any{"ok"}, b.Emit(context.Background(), "e", nil))

	errs := rep.all()
	require.Len(t, errs, 2)
	assert.Equal(t, core.KindListener, errs[0].Kind)
	assert.Equal(t, "e", errs[0].Event)
	assert.NotEmpty(t, errs[0].ListenerID)
	require.NotNil(t, errs[0].Options)
	assert.Equal(t, 2, errs[0].Options.Priority)
	assert.ErrorIs(t, errs[1], core.ErrHandlerPanic)

	require.NotNil(t, seen.Load())
	assert.Same(t, errs[0], seen.Load())

	st := b.Stats()
	assert.Equal(t, int64(2), st.Failed)
	assert.Equal(t, int64(1), st.Panics)
}

func TestPoolStats(t *testing.T) {
	b, _ := newBus(t, func(c *Config) { c.PoolSize = 1 })
	release := make(chan struct{})
	blocked := func(context.Context, *core.Event) (any, error) {
		<-release
		return "done", nil
	}
	mustOn(t, b, "p", blocked, core.AsAsync())
	mustOn(t, b, "p", blocked, core.AsAsync())

	assert.Equal(t, 1, b.Stats().Pool.Capacity)

	out := make(chan []any, 1)
	go func() { out <- b.Emit(context.Background(), "p", nil) }()
	assert.Eventually(t, func() bool {
		st := b.Stats().Pool
		return st.Running == 1 && st.Overflow == 1
	}, 2*time.Second, 5*time.Millisecond, "second task should overflow the single worker")

	close(release)
	assert.Equal(t, []any{"done", "done"}, <-out)
	assert.Equal(t, int64(1), b.DebugInfo().Stats.Pool.Overflow)
}

func TestRetries(t *testing.T) {
	b, rep := newBus(t)
	var attempts atomic.Int32
	mustOn(t, b, "r", func(context.Context, *core.Event) (any, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}, core.WithMaxRetries(3))

	assert.Equal(t, []any{"ok"}, b.Emit(context.Background(), "r", nil))
	assert.Equal(t, int32(3), attempts.Load())
	assert.Empty(t, rep.all())

	var asyncAttempts atomic.Int32
	mustOn(t, b, "ra", func(context.Context, *core.Event) (any, error) {
		asyncAttempts.Add(1)
		return nil, errors.New("persistent")
	}, core.AsAsync(), core.WithMaxRetries(2))
	assert.Empty(t, b.Emit(context.Background(), "ra", nil))
	assert.Equal(t, int32(2), asyncAttempts.Load())
	assert.Equal(t, []core.Kind{core.KindListener}, rep.kinds())
}

func TestCapacityCap(t *testing.T) {
	clock := core.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	b, rep := newBus(t, func(c *Config) {
		c.MaxListeners = 2
		c.Clock = clock
		c.Cleanup.MaxAge = time.Minute
	})

	mustOn(t, b, "c", value(1))
	clock.Advance(2 * time.Minute)
	mustOn(t, b, "c", value(2))

	sub, err := b.On("c", value(3))
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, core.ErrMaxListenersExceeded)
	assert.Equal(t, 2, b.EventInfo("c").ListenerCount)
	assert.Equal(t, []core.Kind{core.KindCapacity}, rep.kinds())

	sub, err = b.On("c", value(4), core.Forced())
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, []any{2, 4}, b.Emit(context.Background(), "c", nil))
	assert.Equal(t, int64(1), b.Stats().Evicted)
}

func TestCleanupEviction(t *testing.T) {
	clock := core.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	b, _ := newBus(t, func(c *Config) {
		c.Clock = clock
		c.Cleanup.MaxAge = 30 * time.Minute
	})

	mustOn(t, b, "old", value(1))
	mustOn(t, b, "old.*", value(2))
	clock.Advance(31 * time.Minute)
	mustOn(t, b, "fresh", value(3))

	assert.Equal(t, 2, b.Sweep())
	assert.Zero(t, b.EventInfo("old").ListenerCount)
	assert.Zero(t, b.EventInfo("old.*").ListenerCount)
	assert.Equal(t, 1, b.EventInfo("fresh").ListenerCount)
	assert.Equal(t, int64(2), b.Stats().Evicted)
}

func TestIdempotentUnsubscribe(t *testing.T) {
	b, _ := newBus(t)
	sub := mustOn(t, b, "u", value(1), core.InGroup("g"))
	assert.True(t, sub.Unsubscribe())
	assert.False(t, sub.Unsubscribe())
	assert.Empty(t, b.Emit(context.Background(), "u", nil))
	assert.Empty(t, b.DebugInfo().Groups)
}

func TestOff(t *testing.T) {
	b, _ := newBus(t)
	s1 := mustOn(t, b, "o", value(1))
	mustOn(t, b, "o", value(2), core.InGroup("g"))

	assert.False(t, b.Off("missing", ""))
	assert.False(t, b.Off("o", "missing"))
	assert.True(t, b.Off("o", s1.ID()))
	assert.False(t, s1.Unsubscribe(), "already removed by Off")
	assert.True(t, b.Off("o", ""))
	assert.Empty(t, b.DebugInfo().Events)
	assert.Empty(t, b.DebugInfo().Groups)

	h := value(3)
	mustOn(t, b, "h", h)
	assert.True(t, b.OffHandler("h", h))
	assert.False(t, b.OffHandler("h", h))
}

func TestOffHandlerMatchesFunctionLiteral(t *testing.T) {
	b, _ := newBus(t)
	// value(1) 与 value(2) 来自同一函数字面量，身份相同
	s1 := mustOn(t, b, "lit", value(1))
	mustOn(t, b, "lit", value(2))
	mustOn(t, b, "lit", func(context.Context, *core.Event) (any, error) { return 3, nil })

	assert.True(t, b.Off("lit", s1.ID()), "Off by id removes only that listener")
	assert.ElementsMatch(t, []any{2, 3}, b.Emit(context.Background(), "lit", nil))

	assert.True(t, b.OffHandler("lit", value(99)))
	assert.Equal(t, []any{3}, b.Emit(context.Background(), "lit", nil))
}

func TestValidation(t *testing.T) {
	b, rep := newBus(t)
	for _, name := range []string{"", ".a", "a.", "a..b"} {
		sub, err := b.On(name, value(1))
		assert.Nil(t, sub)
		assert.Error(t, err)
	}
	sub, err := b.On("ok", nil)
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, core.ErrNilHandler)

	for _, k := range rep.kinds() {
		assert.Equal(t, core.KindValidation, k)
	}

	assert.Empty(t, b.Emit(context.Background(), "a..b", nil))
	kinds := rep.kinds()
	assert.Equal(t, core.KindEmit, kinds[len(kinds)-1])
}

func TestStopPropagation(t *testing.T) {
	b, _ := newBus(t)
	var mu sync.Mutex
	var log []string
	mustOn(t, b, "s.t", func(_ context.Context, e *core.Event) (any, error) {
		e.StopPropagation()
		return "first", nil
	}, core.WithPriority(1))
	mustOn(t, b, "s.t", record(&mu, &log, "sibling"))
	mustOn(t, b, "s", record(&mu, &log, "parent"))

	assert.Equal(t, []any{"first", "sibling"}, b.Emit(context.Background(), "s.t", nil))
	assert.Equal(t, []string{"sibling"}, log, "stop propagation is checked between levels only")
}

func TestStopImmediatePropagation(t *testing.T) {
	b, _ := newBus(t)
	var mu sync.Mutex
	var log []string
	mustOn(t, b, "s.t", func(_ context.Context, e *core.Event) (any, error) {
		e.StopImmediatePropagation()
		return "first", nil
	}, core.WithPriority(1))
	mustOn(t, b, "s.t", record(&mu, &log, "sibling"))
	mustOn(t, b, "s.t", record(&mu, &log, "grouped"), core.InGroup("g"))
	mustOn(t, b, "s", record(&mu, &log, "parent"))

	assert.Equal(t, []any{"first"}, b.Emit(context.Background(), "s.t", nil))
	assert.Empty(t, log)
}

func TestMiddleware(t *testing.T) {
	b, rep := newBus(t)
	var order []string
	b.Use(core.MiddlewareFunc(func(e *core.Event) bool {
		order = append(order, "plain")
		e.Metadata.Set("seen", "1")
		return true
	})).Use(core.Hooks{
		Before: func(e *core.Event) bool {
			order = append(order, "before")
			return e.Name != "blocked"
		},
		After: func(e *core.Event, results []any) {
			order = append(order, "after")
		},
	}).Use(nil)

	var meta string
	mustOn(t, b, "m", func(_ context.Context, e *core.Event) (any, error) {
		meta = e.Metadata.Get("seen")
		return 1, nil
	})
	mustOn(t, b, "blocked", value(1))

	assert.Equal(t, []any{1}, b.Emit(context.Background(), "m", nil))
	assert.Equal(t, "1", meta)
	assert.Equal(t, []string{"plain", "before", "after"}, order)

	order = nil
	assert.Empty(t, b.Emit(context.Background(), "blocked", nil))
	assert.Equal(t, []string{"plain", "before"}, order)
	assert.Equal(t, int64(1), b.Stats().Vetoed)
	assert.Empty(t, rep.all())
	assert.Equal(t, 2, b.DebugInfo().Middleware)
}

func TestVetoNotifiesEarlierMiddleware(t *testing.T) {
	b, rep := newBus(t)
	var order []string
	b.Use(core.Hooks{
		After: func(*core.Event, []any) { order = append(order, "first.after") },
		Veto:  func(e *core.Event) { order = append(order, "first.veto:"+e.Name) },
	}).Use(core.Hooks{
		Veto: func(*core.Event) { panic("veto hook") },
	}).Use(core.MiddlewareFunc(func(e *core.Event) bool {
		return e.Name != "blocked"
	})).Use(core.Hooks{
		Veto: func(*core.Event) { order = append(order, "late.veto") },
	})
	mustOn(t, b, "blocked", value(1))

	assert.Empty(t, b.Emit(context.Background(), "blocked", nil))
	assert.Equal(t, []string{"first.veto:blocked"}, order, "only middleware that ran BeforeEmit is notified")
	assert.Equal(t, []core.Kind{core.KindMiddleware}, rep.kinds())

	order = nil
	b.Emit(context.Background(), "open", nil)
	assert.Equal(t, []string{"first.after"}, order)
}

func TestMiddlewarePanicDoesNotVeto(t *testing.T) {
	b, rep := newBus(t)
	var ran atomic.Bool
	b.Use(core.MiddlewareFunc(func(*core.Event) bool { panic("mw") }))
	b.Use(core.Hooks{After: func(*core.Event, []any) { panic("after") }})
	b.Use(core.MiddlewareFunc(func(*core.Event) bool {
		ran.Store(true)
		return true
	}))
	mustOn(t, b, "p", value(1))

	assert.Equal(t, []any{1}, b.Emit(context.Background(), "p", nil))
	assert.True(t, ran.Load())
	assert.Equal(t, []core.Kind{core.KindMiddleware, core.KindMiddleware}, rep.kinds())
}

func TestNestedEmit(t *testing.T) {
	b, _ := newBus(t)
	mustOn(t, b, "inner", value("inner"))
	mustOn(t, b, "outer", func(ctx context.Context, _ *core.Event) (any, error) {
		return b.Emit(ctx, "inner", nil), nil
	})
	mustOn(t, b, "outer.async", func(ctx context.Context, _ *core.Event) (any, error) {
		return b.Emit(ctx, "inner", nil), nil
	}, core.AsAsync())

	assert.Equal(t, []any{[]any{"inner"}}, b.Emit(context.Background(), "outer", nil))
	assert.Equal(t, []any{[]any{"inner"}, []any{"inner"}}, b.Emit(context.Background(), "outer.async", nil))
}

func TestSubscribeDuringEmit(t *testing.T) {
	b, _ := newBus(t)
	mustOn(t, b, "d", func(context.Context, *core.Event) (any, error) {
		_, err := b.On("d", value("late"))
		return "first", err
	})
	assert.Equal(t, []any{"first"}, b.Emit(context.Background(), "d", nil), "snapshot excludes listeners added mid-emit")
	assert.Len(t, b.Emit(context.Background(), "d", nil), 2)
}

func TestHistory(t *testing.T) {
	clock := core.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	b, _ := newBus(t, func(c *Config) {
		c.TraceEvents = true
		c.HistorySize = 2
		c.HistoryMaxAge = time.Minute
		c.Clock = clock
	})
	b.Emit(context.Background(), "h.1", "p1")
	b.Emit(context.Background(), "h.2", "p2")
	b.Emit(context.Background(), "h.3", "p3")

	hist := b.DebugInfo().History
	require.Len(t, hist, 2)
	assert.Equal(t, "h.2", hist[0].Name)
	assert.Equal(t, "h.3", hist[1].Name)
	assert.Equal(t, []string{"h.3", "h"}, hist[1].Path)
	assert.NotEmpty(t, hist[1].Trace)

	clock.Advance(2 * time.Minute)
	b.Sweep()
	assert.Empty(t, b.DebugInfo().History)
}

func TestHistoryDisabled(t *testing.T) {
	b, _ := newBus(t)
	b.Emit(context.Background(), "h", nil)
	assert.Nil(t, b.DebugInfo().History)
}

func TestDebugInfo(t *testing.T) {
	b, _ := newBus(t)
	mustOn(t, b, "a", value(1), core.InGroup("g"))
	mustOn(t, b, "a", value(2))
	mustOn(t, b, "a.*", value(3))
	b.Use(core.MiddlewareFunc(func(*core.Event) bool { return true }))
	b.Emit(context.Background(), "a", nil)

	info := b.DebugInfo()
	assert.Equal(t, map[string]int{"a": 2}, info.Events)
	assert.Equal(t, map[string]int{"a.*": 1}, info.Patterns)
	assert.Equal(t, map[string]int{"g": 1}, info.Groups)
	assert.Equal(t, 3, info.TotalListeners)
	assert.Equal(t, int64(1), info.Stats.Emitted)
	assert.Equal(t, int64(2), info.Stats.Invoked)

	ev := b.EventInfo("a")
	assert.Equal(t, 2, ev.ListenerCount)
	assert.Equal(t, []string{"g"}, ev.Groups)
	assert.True(t, b.EventInfo("a.*").Pattern)
}

func TestClearAndDestroy(t *testing.T) {
	b, _ := newBus(t)
	mustOn(t, b, "x", value(1))
	b.Use(core.MiddlewareFunc(func(*core.Event) bool { return false }))
	b.Clear()
	assert.Zero(t, b.DebugInfo().TotalListeners)
	assert.Zero(t, b.DebugInfo().Middleware)

	mustOn(t, b, "x", value(2))
	assert.Equal(t, []any{2}, b.Emit(context.Background(), "x", nil))

	b.Destroy()
	b.Destroy()
	assert.Empty(t, b.Emit(context.Background(), "x", nil))
	sub, err := b.On("x", value(3))
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, core.ErrBusDestroyed)
	assert.False(t, b.Off("x", ""))
	assert.Zero(t, b.Sweep())
}

func TestContextPassedToListeners(t *testing.T) {
	type key struct{}
	b, _ := newBus(t)
	b.Use(core.MiddlewareFunc(func(e *core.Event) bool {
		e.SetContext(context.WithValue(e.Context(), key{}, "mw"))
		return true
	}))
	var syncVal, asyncVal atomic.Value
	mustOn(t, b, "c", func(ctx context.Context, _ *core.Event) (any, error) {
		syncVal.Store(ctx.Value(key{}))
		return nil, nil
	})
	mustOn(t, b, "c", func(ctx context.Context, _ *core.Event) (any, error) {
		asyncVal.Store(ctx.Value(key{}))
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil, nil
	}, core.AsAsync())

	assert.Len(t, b.Emit(context.Background(), "c", nil), 2)
	assert.Equal(t, "mw", syncVal.Load())
	assert.Equal(t, "mw", asyncVal.Load())
}

func TestConcurrentEmitAndSubscribe(t *testing.T) {
	b, _ := newBus(t)
	var invoked atomic.Int64
	h := func(context.Context, *core.Event) (any, error) {
		invoked.Add(1)
		return nil, nil
	}
	mustOn(t, b, "c.*", h)
	mustOn(t, b, "c.x", h, core.AsAsync())

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b.Emit(context.Background(), "c.x", i)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				sub, err := b.On("c.x", h, core.AsOnce())
				if err == nil && i%2 == 0 {
					sub.Unsubscribe()
				}
			}
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, invoked.Load(), int64(8*200*2))
}
