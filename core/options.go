package core

import "time"

// Options listener 选项（订阅时校验并归一化，分发时不再做类型判断）
type Options struct {
	OnError    func(err *Error) // listener 级错误回调（在 Reporter 之后调用）
	Group      string           // 所属 group（空 = 不分组）
	Timeout    time.Duration    // 异步结果超时（0 = 使用总线 AsyncTimeout）
	Priority   int              // 优先级，越大越先执行
	MaxRetries int              // 单次调用的最大尝试次数（含首次，默认 1）
	Once       bool             // 首次调用前移除
	Async      bool             // 在 worker 池中执行并与超时竞速
	Force      bool             // 达到 MaxListeners 时先淘汰过期 listener 再插入
}

// Option 函数式选项
type Option func(*Options)

// WithPriority 设置优先级
func WithPriority(p int) Option {
	return func(o *Options) { o.Priority = p }
}

// AsOnce 只触发一次
func AsOnce() Option {
	return func(o *Options) { o.Once = true }
}

// AsAsync 异步执行
func AsAsync() Option {
	return func(o *Options) { o.Async = true }
}

// InGroup 加入 group
func InGroup(name string) Option {
	return func(o *Options) { o.Group = name }
}

// WithTimeout 设置该 listener 的异步超时
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithMaxRetries 设置最大尝试次数
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithErrorHandler 设置 listener 级错误回调
func WithErrorHandler(fn func(err *Error)) Option {
	return func(o *Options) { o.OnError = fn }
}

// Forced 容量已满时强制淘汰过期 listener
func Forced() Option {
	return func(o *Options) { o.Force = true }
}

// BuildOptions 应用选项并填充默认值
func BuildOptions(defaultTimeout time.Duration, opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 1 {
		o.MaxRetries = 1
	}
	return o
}
