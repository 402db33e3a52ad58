// Package history 记录最近的发射快照（诊断用）
package history

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/uniyakcom/herald/core"
	"github.com/uniyakcom/herald/internal/support/ring"
)

// maxFrames 每条记录保留的调用点帧数
const maxFrames = 8

// internalPrefix 调用栈中属于总线自身的函数前缀（不计入 Trace）
const internalPrefix = "github.com/uniyakcom/herald/internal/"

// Tracer 有界历史记录，按条数与存活时间双重约束
type Tracer struct {
	ring   *ring.Ring[core.HistoryEntry]
	clock  core.Clock
	maxAge time.Duration
}

// New 创建 Tracer。maxAge <= 0 表示不按时间裁剪
func New(size int, maxAge time.Duration, clock core.Clock) *Tracer {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Tracer{
		ring:   ring.New[core.HistoryEntry](size),
		clock:  clock,
		maxAge: maxAge,
	}
}

// Record 保存 e 的不可变快照，skip 为需跳过的调用者层数（不含 Record 自身）
func (t *Tracer) Record(e *core.Event, skip int) {
	path := make([]string, len(e.Path))
	copy(path, e.Path)
	t.ring.Push(core.HistoryEntry{
		Timestamp: e.Timestamp,
		Payload:   e.Payload,
		Metadata:  e.Metadata.Copy(),
		Name:      e.Name,
		Path:      path,
		Trace:     callers(skip + 2),
	})
}

// Entries 历史快照（最旧在前）
func (t *Tracer) Entries() []core.HistoryEntry {
	return t.ring.Snapshot()
}

// Len 当前记录数
func (t *Tracer) Len() int {
	return t.ring.Len()
}

// Trim 移除超过 maxAge 的记录，返回移除条数
func (t *Tracer) Trim() int {
	if t.maxAge <= 0 {
		return 0
	}
	cutoff := t.clock.Now().Add(-t.maxAge)
	return t.ring.DropWhile(func(h core.HistoryEntry) bool {
		return h.Timestamp.Before(cutoff)
	})
}

// Reset 清空
func (t *Tracer) Reset() {
	t.ring.Reset()
}

func callers(skip int) []string {
	pcs := make([]uintptr, maxFrames*2)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]string, 0, maxFrames)
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, internalPrefix) && !strings.HasPrefix(f.Function, "runtime.") {
			out = append(out, fmt.Sprintf("%s %s:%d", f.Function, f.File, f.Line))
			if len(out) == maxFrames {
				break
			}
		}
		if !more {
			break
		}
	}
	return out
}
