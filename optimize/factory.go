// Package optimize factory 工厂
package optimize

import (
	"github.com/uniyakcom/herald/core"
	"github.com/uniyakcom/herald/internal/impl/cleanup"
	"github.com/uniyakcom/herald/internal/impl/pipeline"
)

// Build 根据归一化配置构建 Bus
func Build(advised *Advised) (core.Bus, error) {
	p := advised.Profile
	if p == nil {
		p = Default()
	}
	cfg := &pipeline.Config{
		Logger:        p.Logger,
		Reporter:      p.Reporter,
		Clock:         p.Clock,
		AsyncTimeout:  p.AsyncTimeout,
		HistoryMaxAge: p.HistoryMaxAge,
		MaxListeners:  p.MaxListeners,
		HistorySize:   p.HistorySize,
		PoolSize:      p.PoolSize,
		TraceEvents:   p.TraceEvents,
		Cleanup: cleanup.Config{
			Signals:   p.Cleanup.Signals,
			Interval:  p.Cleanup.Interval,
			MaxAge:    p.Cleanup.MaxAge,
			BatchSize: p.Cleanup.BatchSize,
			Enabled:   p.Cleanup.Enabled,
		},
	}
	if cfg.Logger != nil {
		for _, n := range advised.Notes {
			cfg.Logger.Debug("herald: profile adjusted", "profile", p.Name, "change", n)
		}
	}
	return pipeline.New(cfg)
}
