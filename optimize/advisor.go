// Package optimize advisor 配置归一化
package optimize

import (
	"fmt"
	"runtime"
	"time"
)

// Advised 归一化后的配置
type Advised struct {
	Profile *Profile
	Notes   []string // 被修正的字段说明（供日志/CLI 展示）
}

// Advisor 配置归一化器
type Advisor struct{}

// NewAdvisor 创建归一化器
func NewAdvisor() *Advisor {
	return &Advisor{}
}

// Advise 复制 p 并修正非法或缺省字段，原 Profile 不被修改
func (a *Advisor) Advise(p *Profile) *Advised {
	if p == nil {
		p = Default()
	}
	def := Default()
	cp := p.Clone()
	advised := &Advised{Profile: cp}

	note := func(field string, from, to any) {
		advised.Notes = append(advised.Notes, fmt.Sprintf("%s: %v -> %v", field, from, to))
	}

	if cp.Name == "" {
		cp.Name = "custom"
	}
	if cp.MaxListeners <= 0 {
		note("maxListeners", cp.MaxListeners, def.MaxListeners)
		cp.MaxListeners = def.MaxListeners
	}
	if cp.AsyncTimeout <= 0 {
		note("asyncTimeout", cp.AsyncTimeout, def.AsyncTimeout)
		cp.AsyncTimeout = def.AsyncTimeout
	}
	if cp.HistorySize <= 0 {
		note("historySize", cp.HistorySize, def.HistorySize)
		cp.HistorySize = def.HistorySize
	}
	if cp.HistoryMaxAge < 0 {
		note("historyMaxAge", cp.HistoryMaxAge, time.Duration(0))
		cp.HistoryMaxAge = 0
	}
	if cp.PoolSize <= 0 {
		cp.PoolSize = runtime.NumCPU() * 8
	}

	c := &cp.Cleanup
	if c.BatchSize <= 0 {
		note("cleanup.batchSize", c.BatchSize, def.Cleanup.BatchSize)
		c.BatchSize = def.Cleanup.BatchSize
	}
	if c.MaxAge <= 0 {
		note("cleanup.maxAge", c.MaxAge, def.Cleanup.MaxAge)
		c.MaxAge = def.Cleanup.MaxAge
	}
	if c.Enabled && c.Interval <= 0 {
		note("cleanup.interval", c.Interval, def.Cleanup.Interval)
		c.Interval = def.Cleanup.Interval
	}
	// cron @every 的最小粒度为 1s
	if c.Enabled && c.Interval < time.Second {
		note("cleanup.interval", c.Interval, time.Second)
		c.Interval = time.Second
	}

	return advised
}
