// Package wpool 提供异步 listener 执行池（基于 ants）。
//
// 设计：ants 非阻塞模式，池满或已关闭时 Submit 退化为独立 goroutine，
// 保证 listener 内部嵌套 Emit 不会因等待 worker 而死锁。
// Release 关闭池并在给定时限内等待 worker 退出。
package wpool

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Pool 固定容量 goroutine 池
type Pool struct {
	pool     *ants.Pool
	overflow atomic.Int64 // 退化为独立 goroutine 的任务数
	closed   atomic.Bool
}

// DefaultSize 默认池容量
func DefaultSize() int {
	return runtime.NumCPU() * 8
}

// New 创建池，size <= 0 时使用 DefaultSize。
// onPanic 接收逃逸出任务的 panic（任务自身应先 recover）。
func New(size int, onPanic func(any)) (*Pool, error) {
	if size <= 0 {
		size = DefaultSize()
	}
	opts := []ants.Option{
		ants.WithNonblocking(true),
		ants.WithExpiryDuration(10 * time.Second),
	}
	if onPanic != nil {
		opts = append(opts, ants.WithPanicHandler(onPanic))
	}
	p, err := ants.NewPool(size, opts...)
	if err != nil {
		return nil, err
	}
	return &Pool{pool: p}, nil
}

// Submit 提交任务。池满（ErrPoolOverload）或已关闭时直接起 goroutine 执行，任务不会丢失。
func (p *Pool) Submit(task func()) {
	if !p.closed.Load() {
		if err := p.pool.Submit(task); err == nil {
			return
		}
	}
	p.overflow.Add(1)
	go task()
}

// Running 正在执行的 worker 数
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Cap 池容量
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Overflow 退化执行的任务总数
func (p *Pool) Overflow() int64 {
	return p.overflow.Load()
}

// Release 关闭池，最多等待 timeout 让 worker 退出（timeout <= 0 时不等待）
func (p *Pool) Release(timeout time.Duration) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil // 已关闭
	}
	if timeout <= 0 {
		p.pool.Release()
		return nil
	}
	return p.pool.ReleaseTimeout(timeout)
}
