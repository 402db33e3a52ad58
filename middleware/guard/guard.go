// Package guard 提供按事件名否决发射的中间件
//
//	bus.Use(guard.New("internal.*", "debug.?"))
package guard

import (
	"log/slog"

	"github.com/uniyakcom/herald/core"
)

// Guard 拒绝名称匹配任一 glob 的发射
type Guard struct {
	deny   []*core.Matcher
	logger *slog.Logger
}

// New 创建 Guard，patterns 与订阅 pattern 语法相同（* 与 ?）
func New(patterns ...string) *Guard {
	g := &Guard{}
	for _, p := range patterns {
		if p != "" {
			g.deny = append(g.deny, core.CompileMatcher(p))
		}
	}
	return g
}

// WithLogger 被否决的发射写入 Debug 日志
func (g *Guard) WithLogger(logger *slog.Logger) *Guard {
	g.logger = logger
	return g
}

// Denied 事件名是否被拒绝
func (g *Guard) Denied(name string) bool {
	for _, m := range g.deny {
		if m.Match(name) {
			return true
		}
	}
	return false
}

// BeforeEmit 实现 core.Middleware
func (g *Guard) BeforeEmit(e *core.Event) bool {
	if !g.Denied(e.Name) {
		return true
	}
	if g.logger != nil {
		g.logger.Debug("emission denied", "event", e.Name)
	}
	return false
}

// AfterEmit 实现 core.Middleware
func (g *Guard) AfterEmit(*core.Event, []any) {}
