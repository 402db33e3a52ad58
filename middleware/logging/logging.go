// Package logging 提供发射日志中间件。
//
// 记录每次发射的事件名、层级路径、耗时与结果数量。使用 log/slog。
//
//	bus.Use(logging.New(slog.Default()))
package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/uniyakcom/herald/core"
)

type startKey struct{}

// New 创建日志中间件。
func New(logger *slog.Logger) core.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return core.Hooks{
		Before: func(e *core.Event) bool {
			e.SetContext(context.WithValue(e.Context(), startKey{}, time.Now()))
			return true
		},
		After: func(e *core.Event, results []any) {
			attrs := []any{
				"event", e.Name,
				"results", len(results),
			}
			if start, ok := e.Context().Value(startKey{}).(time.Time); ok {
				attrs = append(attrs, "duration", time.Since(start))
			}
			if e.Group != "" {
				attrs = append(attrs, "group", e.Group)
			}
			if e.PropagationStopped() {
				attrs = append(attrs, "stopped", true)
			}
			if e.DefaultPrevented() {
				attrs = append(attrs, "prevented", true)
			}
			logger.Debug("event emitted", attrs...)
		},
	}
}
