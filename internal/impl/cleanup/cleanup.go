// Package cleanup 周期性淘汰过期 listener 并裁剪 history
//
// 定时由 robfig/cron 驱动（@every Interval），每次 tick 只处理 BatchSize 个 bucket，
// 游标在 bucket 键上轮转；Signals 中的信号触发一次全量清理。
// SIGINT/SIGTERM/SIGHUP 只清理一次：随后停止捕获并重新投递，进程照常退出。
package cleanup

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/uniyakcom/herald/core"
)

// Config 清理配置
type Config struct {
	Signals   []os.Signal   `yaml:"-"` // 触发全量清理的信号
	Interval  time.Duration `yaml:"interval"`
	MaxAge    time.Duration `yaml:"maxAge"`
	BatchSize int           `yaml:"batchSize"`
	Enabled   bool          `yaml:"enabled"`
}

// Store 被清理的 listener 注册表
type Store interface {
	Keys() []string
	EvictStale(keys []string, cutoff time.Time) []*core.Listener
}

// Trimmer 按存活时间裁剪的历史记录
type Trimmer interface {
	Trim() int
}

// Scheduler 清理调度器
type Scheduler struct {
	store   Store
	history Trimmer // 可为 nil
	clock   core.Clock
	logger  *slog.Logger
	onEvict func([]*core.Listener)

	cron *cron.Cron
	sigs chan os.Signal // 可重复触发
	term chan os.Signal // 终止类信号
	done chan struct{}

	mu     sync.Mutex // 串行化 tick，保护 cursor
	cursor int

	cfg      Config
	started  bool
	stopOnce sync.Once
}

// New 创建调度器（未启动）。onEvict 在每次有 listener 被淘汰后调用
func New(cfg Config, store Store, history Trimmer, clock core.Clock, logger *slog.Logger, onEvict func([]*core.Listener)) *Scheduler {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	return &Scheduler{
		store:   store,
		history: history,
		clock:   clock,
		logger:  logger,
		onEvict: onEvict,
		cfg:     cfg,
		done:    make(chan struct{}),
	}
}

// Start 启动定时任务与信号监听；Enabled=false 时为空操作
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled || s.started {
		return nil
	}
	if s.cfg.Interval > 0 {
		clog := cronLogger{s.logger}
		s.cron = cron.New(
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		)
		if _, err := s.cron.AddFunc("@every "+s.cfg.Interval.String(), func() { s.Tick() }); err != nil {
			return err
		}
		s.cron.Start()
	}
	var repeat, once []os.Signal
	for _, sig := range s.cfg.Signals {
		if terminating(sig) {
			once = append(once, sig)
		} else {
			repeat = append(repeat, sig)
		}
	}
	if len(repeat) > 0 {
		s.sigs = make(chan os.Signal, 1)
		signal.Notify(s.sigs, repeat...)
	}
	if len(once) > 0 {
		s.term = make(chan os.Signal, 1)
		signal.Notify(s.term, once...)
	}
	if s.sigs != nil || s.term != nil {
		go s.watchSignals(s.sigs, s.term)
	}
	s.started = true
	s.logger.Debug("cleanup scheduler started",
		"interval", s.cfg.Interval, "maxAge", s.cfg.MaxAge, "batch", s.cfg.BatchSize)
	return nil
}

func (s *Scheduler) watchSignals(sigs, term chan os.Signal) {
	for {
		select {
		case sig := <-sigs:
			n := s.SweepAll()
			s.logger.Info("cleanup sweep on signal", "signal", sig.String(), "evicted", n)
		case sig := <-term:
			n := s.SweepAll()
			s.logger.Info("cleanup sweep on signal", "signal", sig.String(), "evicted", n)
			signal.Stop(term)
			term = nil
			s.reraise(sig)
		case <-s.done:
			return
		}
	}
}

// terminating 默认行为是终止进程的信号
func terminating(sig os.Signal) bool {
	switch sig {
	case os.Interrupt, syscall.SIGTERM, syscall.SIGHUP:
		return true
	}
	return false
}

// reraise 重新投递 sig：无其他 Notify 时由运行时按默认行为终止进程，
// 宿主自己 Notify 了该信号时由宿主处理
func (s *Scheduler) reraise(sig os.Signal) {
	p, err := os.FindProcess(os.Getpid())
	if err == nil {
		err = p.Signal(sig)
	}
	if err != nil {
		s.logger.Error("cleanup: re-raise signal failed", "signal", sig.String(), "error", err)
	}
}

// Tick 清理一批 bucket（游标轮转），并裁剪 history，返回淘汰的 listener 数
func (s *Scheduler) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.store.Keys()
	batch := keys
	if len(keys) > s.cfg.BatchSize {
		if s.cursor >= len(keys) {
			s.cursor = 0
		}
		batch = make([]string, 0, s.cfg.BatchSize)
		for i := 0; i < s.cfg.BatchSize; i++ {
			batch = append(batch, keys[(s.cursor+i)%len(keys)])
		}
		s.cursor = (s.cursor + s.cfg.BatchSize) % len(keys)
	} else {
		s.cursor = 0
	}
	return s.sweep(batch)
}

// SweepAll 清理全部 bucket
func (s *Scheduler) SweepAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep(s.store.Keys())
}

func (s *Scheduler) sweep(keys []string) int {
	var evicted []*core.Listener
	if s.cfg.MaxAge > 0 && len(keys) > 0 {
		evicted = s.store.EvictStale(keys, s.clock.Now().Add(-s.cfg.MaxAge))
	}
	trimmed := 0
	if s.history != nil {
		trimmed = s.history.Trim()
	}
	if len(evicted) > 0 && s.onEvict != nil {
		s.onEvict(evicted)
	}
	if len(evicted) > 0 || trimmed > 0 {
		s.logger.Debug("cleanup tick", "buckets", len(keys), "evicted", len(evicted), "historyTrimmed", trimmed)
	}
	return len(evicted)
}

// Stop 停止定时任务与信号监听，等待进行中的 tick 最多 timeout
func (s *Scheduler) Stop(timeout time.Duration) {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.sigs != nil {
			signal.Stop(s.sigs)
		}
		if s.term != nil {
			signal.Stop(s.term)
		}
		if s.cron == nil {
			return
		}
		ctx := s.cron.Stop()
		select {
		case <-ctx.Done():
		case <-time.After(timeout):
			s.logger.Warn("cleanup scheduler stop timed out", "timeout", timeout)
		}
	})
}

// cronLogger 将 cron.Logger 接到 slog
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
