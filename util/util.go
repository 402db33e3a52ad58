// Package util 提供总线统计使用的计数器
package util

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// maxSlots slot 上限
const maxSlots = 256

// PerCPUCounter 分片计数器：写入按 goroutine 栈地址散列到不同 cache line，读取时求和
type PerCPUCounter struct {
	counters [maxSlots]counterSlot
	mask     int
}

type counterSlot struct {
	count atomic.Int64
	_     [56]byte // 填满 64B cache line
}

// NewPerCPUCounter 创建计数器，slot 数为 GOMAXPROCS 向上取 2 的幂（至少 8）
func NewPerCPUCounter() *PerCPUCounter {
	n := runtime.GOMAXPROCS(0)
	sz := 8
	for sz < n && sz < maxSlots {
		sz <<= 1
	}
	return &PerCPUCounter{mask: sz - 1}
}

// Add 累加 delta
//
//go:nosplit
func (c *PerCPUCounter) Add(delta int64) {
	var x uintptr
	// goroutine 最小栈 8KB，右移 13 位后不同 goroutine 大概率落在不同 slot
	id := int(uintptr(unsafe.Pointer(&x)) >> 13)
	c.counters[id&c.mask].count.Add(delta)
}

// Inc 加一
func (c *PerCPUCounter) Inc() {
	c.Add(1)
}

// Read 各 slot 求和（与并发 Add 之间无快照一致性）
func (c *PerCPUCounter) Read() int64 {
	var sum int64
	for i := 0; i <= c.mask; i++ {
		sum += c.counters[i].count.Load()
	}
	return sum
}

// Reset 清零
func (c *PerCPUCounter) Reset() {
	for i := 0; i <= c.mask; i++ {
		c.counters[i].count.Store(0)
	}
}
