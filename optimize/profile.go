// Package optimize 提供总线配置 Profile、预设与构建
package optimize

import (
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/uniyakcom/herald/core"
)

// Cleanup 后台清理配置
type Cleanup struct {
	Signals   []os.Signal   `yaml:"-"`
	Interval  time.Duration `yaml:"interval"`
	MaxAge    time.Duration `yaml:"maxAge"`
	BatchSize int           `yaml:"batchSize"`
	Enabled   bool          `yaml:"enabled"`
}

// Profile 总线配置
type Profile struct {
	// 运行时注入，不参与序列化
	Logger   *slog.Logger  `yaml:"-"`
	Reporter core.Reporter `yaml:"-"`
	Clock    core.Clock    `yaml:"-"`

	Name    string  `yaml:"name"`
	Cleanup Cleanup `yaml:"cleanup"`

	AsyncTimeout  time.Duration `yaml:"asyncTimeout"`  // listener 默认超时
	HistoryMaxAge time.Duration `yaml:"historyMaxAge"` // history 存活上限
	MaxListeners  int           `yaml:"maxListeners"`  // 单事件名 listener 上限
	HistorySize   int           `yaml:"historySize"`   // history ring 容量
	PoolSize      int           `yaml:"poolSize"`      // 0 = NumCPU*8
	TraceEvents   bool          `yaml:"traceEvents"`   // 记录 history
}

// ═══════════════════════════════════════════════════════════════════
// 预设 Profile
// ═══════════════════════════════════════════════════════════════════

// Default 通用场景：不记录 history，不启用后台清理
func Default() *Profile {
	return &Profile{
		Name:          "default",
		AsyncTimeout:  5 * time.Second,
		HistoryMaxAge: 10 * time.Minute,
		MaxListeners:  2048,
		HistorySize:   100,
		Cleanup: Cleanup{
			Interval:  time.Minute,
			MaxAge:    30 * time.Minute,
			BatchSize: 64,
		},
	}
}

// Debug 诊断场景：记录 history（更大的 ring），便于 DebugInfo 回看
func Debug() *Profile {
	p := Default()
	p.Name = "debug"
	p.TraceEvents = true
	p.HistorySize = 1000
	p.HistoryMaxAge = time.Hour
	return p
}

// Lean 长驻进程场景：启用后台清理，listener 存活上限较短
func Lean() *Profile {
	p := Default()
	p.Name = "lean"
	p.MaxListeners = 256
	p.AsyncTimeout = 2 * time.Second
	p.Cleanup = Cleanup{
		Enabled:   true,
		Interval:  30 * time.Second,
		MaxAge:    5 * time.Minute,
		BatchSize: 32,
	}
	return p
}

// Presets 所有预设
var Presets = map[string]func() *Profile{
	"default": Default,
	"debug":   Debug,
	"lean":    Lean,
}

// Preset 按名称获取预设副本，未知名称返回 Default
func Preset(name string) *Profile {
	if fn, ok := Presets[name]; ok {
		return fn()
	}
	return Default()
}

// PresetNames 预设名称（字典序）
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone 浅拷贝（Signals 切片独立）
func (p *Profile) Clone() *Profile {
	cp := *p
	if p.Cleanup.Signals != nil {
		cp.Cleanup.Signals = append([]os.Signal(nil), p.Cleanup.Signals...)
	}
	return &cp
}
