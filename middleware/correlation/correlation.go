// Package correlation 提供链路追踪 ID 传播中间件。
//
// 确保发射链中的 correlation_id 自动传播：
//
//   - 发射 context 中已有 ID（例如 listener 内嵌套 Emit）→ 沿用
//
//   - 否则 → 生成新的 UUID
//
//     bus.Use(correlation.New())
package correlation

import (
	"context"

	"github.com/google/uuid"

	"github.com/uniyakcom/herald/core"
)

const (
	// HeaderCorrelationID 元数据中的 correlation ID key
	HeaderCorrelationID = "correlation_id"
)

type ctxKey struct{}

// WithID 将 correlation ID 写入 context
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext 读取 context 中的 correlation ID
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// New 创建 correlation ID 传播中间件。
// ID 同时写入 Metadata 与事件 context，listener 收到的 ctx 可直接用于嵌套发射。
func New() core.Middleware {
	return core.MiddlewareFunc(func(e *core.Event) bool {
		id := e.Metadata.Get(HeaderCorrelationID)
		if id == "" {
			id = FromContext(e.Context())
		}
		if id == "" {
			id = uuid.NewString()
		}
		e.Metadata.Set(HeaderCorrelationID, id)
		e.SetContext(WithID(e.Context(), id))
		return true
	})
}
