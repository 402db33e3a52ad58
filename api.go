// Package herald 统一API入口
package herald

import (
	"github.com/uniyakcom/herald/core"
	"github.com/uniyakcom/herald/optimize"
)

// Bus 导出Bus接口
type Bus = core.Bus

// Event 导出Event类型
type Event = core.Event

// Handler 导出Handler类型
type Handler = core.Handler

// ListenerOption 导出订阅选项
type ListenerOption = core.Option

// Subscription 导出取消订阅句柄
type Subscription = core.Subscription

// Middleware 导出中间件接口
type Middleware = core.Middleware

// Hooks 导出具名钩子中间件
type Hooks = core.Hooks

// VetoObserver 导出否决通知接口
type VetoObserver = core.VetoObserver

// MiddlewareFunc 导出函数式中间件
type MiddlewareFunc = core.MiddlewareFunc

// Future 导出异步结果
type Future = core.Future

// Error 导出总线错误
type Error = core.Error

// Profile 导出Profile
type Profile = optimize.Profile

// 订阅选项
var (
	WithPriority     = core.WithPriority
	AsOnce           = core.AsOnce
	AsAsync          = core.AsAsync
	InGroup          = core.InGroup
	WithTimeout      = core.WithTimeout
	WithMaxRetries   = core.WithMaxRetries
	WithErrorHandler = core.WithErrorHandler
	Forced           = core.Forced
)

// 错误
var (
	ErrEmptyEventName       = core.ErrEmptyEventName
	ErrMalformedEventName   = core.ErrMalformedEventName
	ErrNilHandler           = core.ErrNilHandler
	ErrMaxListenersExceeded = core.ErrMaxListenersExceeded
	ErrAsyncTimeout         = core.ErrAsyncTimeout
	ErrHandlerPanic         = core.ErrHandlerPanic
	ErrBusDestroyed         = core.ErrBusDestroyed
)

// ═══════════════════════════════════════════════════════════════════
// 第零层：New() 零配置入口
// ═══════════════════════════════════════════════════════════════════

// New 使用默认配置创建 Bus
//
// 用法:
//
//	bus, _ := herald.New()
//	defer bus.Destroy()
func New() (Bus, error) {
	return Option(optimize.Default())
}

// ═══════════════════════════════════════════════════════════════════
// 第一层：Scenario() 预设名称
// ═══════════════════════════════════════════════════════════════════

// Scenario 按预设创建
// name: "default", "debug", "lean"（未知名称使用 default）
func Scenario(name string) (Bus, error) {
	return Option(optimize.Preset(name))
}

// ═══════════════════════════════════════════════════════════════════
// 第二层：Option() 完全控制
// ═══════════════════════════════════════════════════════════════════

// Option 按 Profile 创建（完全控制），p 为 nil 时使用 default
func Option(p *Profile) (Bus, error) {
	advised := optimize.NewAdvisor().Advise(p)
	return optimize.Build(advised)
}

// Load 从 YAML 配置文件创建
func Load(path string) (Bus, error) {
	p, err := optimize.Load(path)
	if err != nil {
		return nil, err
	}
	return Option(p)
}

// Go 在新 goroutine 中执行 fn，返回的 Future 可作为 handler 结果
func Go(fn func() (any, error)) Future {
	return core.Go(fn)
}
