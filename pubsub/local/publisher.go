// Package local 提供基于 herald 总线的进程内 Publisher/Subscriber。
//
// 将总线的 handler 回调模型包装为 channel 模型：
//   - Publisher 把 payload 发射到事件名
//   - Subscriber 把匹配事件名或 pattern 的发射写入 channel
//
// 用法：
//
//	bus, _ := herald.New()
//	pub := local.NewPublisher(bus)
//	sub := local.NewSubscriber(bus)
//
//	ch, _ := sub.Subscribe(ctx, "order.*")
//	pub.Publish(ctx, "order.created", order)
package local

import (
	"context"

	"github.com/uniyakcom/herald/core"
)

// Publisher 基于 Bus 的本地发布者
type Publisher struct {
	bus core.Bus
}

// NewPublisher 创建本地发布者。
func NewPublisher(bus core.Bus) *Publisher {
	return &Publisher{bus: bus}
}

// Publish 依次发射 payloads（每个 payload 一次 Emit），ctx 取消时停止并返回 ctx.Err()。
// 返回全部发射的结果拼接。
func (p *Publisher) Publish(ctx context.Context, name string, payloads ...any) ([]any, error) {
	var results []any
	for _, payload := range payloads {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, p.bus.Emit(ctx, name, payload)...)
	}
	return results, nil
}

// Close 关闭发布者。本地实现无需清理资源。
func (p *Publisher) Close() error {
	return nil
}
