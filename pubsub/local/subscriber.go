package local

import (
	"context"
	"sync"
	"time"

	"github.com/uniyakcom/herald/core"
)

// Delivery 写入订阅 channel 的一次投递
type Delivery struct {
	Timestamp time.Time
	Payload   any
	Metadata  core.Metadata
	Name      string // 发射的事件名
	Level     string // 命中的层级
}

// Subscriber 基于 Bus 的本地订阅者
type Subscriber struct {
	bus    core.Bus
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	subs   []*core.Subscription // Close 时统一取消
	buffer int
}

// NewSubscriber 创建本地订阅者，channel 缓冲为 256。
func NewSubscriber(bus core.Bus) *Subscriber {
	return &Subscriber{
		bus:    bus,
		done:   make(chan struct{}),
		buffer: 256,
	}
}

// Subscribe 订阅事件名或 pattern，返回投递通道。
//
// 缓冲满时发射方阻塞，直到消费、ctx 取消或 Close。
// ctx 取消或 Close 后取消订阅，通道不再接收新投递（通道不会被关闭）。
func (s *Subscriber) Subscribe(ctx context.Context, pattern string) (<-chan *Delivery, error) {
	select {
	case <-s.done:
		return nil, core.ErrBusDestroyed
	default:
	}

	output := make(chan *Delivery, s.buffer)
	sub, err := s.bus.On(pattern, func(_ context.Context, e *core.Event) (any, error) {
		d := &Delivery{
			Timestamp: e.Timestamp,
			Payload:   e.Payload,
			Metadata:  e.Metadata.Copy(),
			Name:      e.Name,
			Level:     e.Level(),
		}
		select {
		case output <- d:
		case <-ctx.Done():
		case <-s.done:
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-s.done:
		}
	}()

	return output, nil
}

// Close 关闭订阅者，取消全部订阅。
func (s *Subscriber) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		for _, sub := range s.subs {
			sub.Unsubscribe()
		}
		s.subs = nil
		s.mu.Unlock()
	})
	return nil
}
