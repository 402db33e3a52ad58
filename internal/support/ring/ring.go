// Package ring 提供覆盖式有界环形缓冲区（history 使用）
//
// 写满后 Push 覆盖最旧元素；head/tail 为单调递增计数，下标取模。
// 所有操作持锁：history 仅在 TraceEvents 开启时写入，非热路径。
package ring

import "sync"

// Ring 有界 FIFO，满时淘汰最旧元素
type Ring[T any] struct {
	mu   sync.Mutex
	head uint64 // 最旧元素序号
	tail uint64 // 下一个写入序号
	buf  []T
}

// New 创建容量为 size 的 ring（size <= 0 时为 1）
func New[T any](size int) *Ring[T] {
	if size <= 0 {
		size = 1
	}
	return &Ring[T]{buf: make([]T, size)}
}

// Push 追加元素，满时覆盖最旧元素并返回 true
func (r *Ring[T]) Push(v T) (overwrote bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := uint64(len(r.buf))
	if r.tail-r.head == n {
		var zero T
		r.buf[r.head%n] = zero
		r.head++
		overwrote = true
	}
	r.buf[r.tail%n] = v
	r.tail++
	return overwrote
}

// Len 当前元素数
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.tail - r.head)
}

// Cap 容量
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Snapshot 复制全部元素（最旧在前）
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := uint64(len(r.buf))
	out := make([]T, 0, r.tail-r.head)
	for i := r.head; i < r.tail; i++ {
		out = append(out, r.buf[i%n])
	}
	return out
}

// DropWhile 从最旧端开始移除满足 pred 的元素，遇到第一个不满足的即停止
func (r *Ring[T]) DropWhile(pred func(T) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := uint64(len(r.buf))
	dropped := 0
	var zero T
	for r.head < r.tail && pred(r.buf[r.head%n]) {
		r.buf[r.head%n] = zero
		r.head++
		dropped++
	}
	return dropped
}

// Reset 清空
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.buf)
	r.head, r.tail = 0, 0
}
