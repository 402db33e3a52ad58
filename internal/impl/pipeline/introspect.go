package pipeline

import (
	"github.com/uniyakcom/herald/core"
	"github.com/uniyakcom/herald/util"
)

// counters 运行时统计
type counters struct {
	emitted  *util.PerCPUCounter
	vetoed   *util.PerCPUCounter
	invoked  *util.PerCPUCounter
	failed   *util.PerCPUCounter
	timedOut *util.PerCPUCounter
	panics   *util.PerCPUCounter
	evicted  *util.PerCPUCounter
}

func newCounters() *counters {
	return &counters{
		emitted:  util.NewPerCPUCounter(),
		vetoed:   util.NewPerCPUCounter(),
		invoked:  util.NewPerCPUCounter(),
		failed:   util.NewPerCPUCounter(),
		timedOut: util.NewPerCPUCounter(),
		panics:   util.NewPerCPUCounter(),
		evicted:  util.NewPerCPUCounter(),
	}
}

func (c *counters) snapshot() core.Stats {
	return core.Stats{
		Emitted:  c.emitted.Read(),
		Vetoed:   c.vetoed.Read(),
		Invoked:  c.invoked.Read(),
		Failed:   c.failed.Read(),
		TimedOut: c.timedOut.Read(),
		Panics:   c.panics.Read(),
		Evicted:  c.evicted.Read(),
	}
}

func (c *counters) reset() {
	for _, x := range []*util.PerCPUCounter{c.emitted, c.vetoed, c.invoked, c.failed, c.timedOut, c.panics, c.evicted} {
		x.Reset()
	}
}

// Stats 返回运行时统计
func (b *Bus) Stats() core.Stats {
	st := b.stats.snapshot()
	st.Pool = core.PoolStats{
		Running:  b.pool.Running(),
		Capacity: b.pool.Cap(),
		Overflow: b.pool.Overflow(),
	}
	return st
}

// EventInfo 单个事件名（或 pattern）的快照
func (b *Bus) EventInfo(event string) core.EventInfo {
	return b.store.Info(event)
}

// DebugInfo 全局诊断快照
func (b *Bus) DebugInfo() core.DebugInfo {
	events, patterns, groups, total := b.store.Counts()
	info := core.DebugInfo{
		Events:         events,
		Patterns:       patterns,
		Groups:         groups,
		Stats:          b.Stats(),
		TotalListeners: total,
		Middleware:     len(*b.middleware.Load()),
	}
	if b.tracer != nil {
		info.History = b.tracer.Entries()
	}
	return info
}
