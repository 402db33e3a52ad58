// Package pipeline 提供层级事件总线实现
package pipeline

import (
	"log/slog"
	"time"

	"github.com/uniyakcom/herald/core"
	"github.com/uniyakcom/herald/internal/impl/cleanup"
)

// Config 总线配置
type Config struct {
	Logger   *slog.Logger  // nil 时使用 slog.Default()
	Reporter core.Reporter // nil 时错误写入 Logger
	Clock    core.Clock    // nil 时使用系统时钟

	Cleanup cleanup.Config

	AsyncTimeout  time.Duration // listener 默认超时
	HistoryMaxAge time.Duration // history 存活上限（cleanup 时裁剪）
	DrainTimeout  time.Duration // Destroy 等待 worker 退出的上限

	MaxListeners int // 单个事件名（或 pattern）的 listener 上限，<= 0 不限制
	HistorySize  int // history ring 容量
	PoolSize     int // 异步 worker 池容量，<= 0 为 NumCPU*8

	TraceEvents bool // 是否记录 history
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		AsyncTimeout:  5 * time.Second,
		HistoryMaxAge: 10 * time.Minute,
		DrainTimeout:  time.Second,
		MaxListeners:  2048,
		HistorySize:   100,
		Cleanup: cleanup.Config{
			Interval:  time.Minute,
			MaxAge:    30 * time.Minute,
			BatchSize: 64,
		},
	}
}

// normalize 填充零值字段
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = core.SystemClock{}
	}
	if c.AsyncTimeout <= 0 {
		c.AsyncTimeout = def.AsyncTimeout
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = def.DrainTimeout
	}
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
	if c.Cleanup.BatchSize <= 0 {
		c.Cleanup.BatchSize = def.Cleanup.BatchSize
	}
}
