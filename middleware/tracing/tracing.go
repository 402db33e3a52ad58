// Package tracing 为每次发射创建 OpenTelemetry span
//
// BeforeEmit 开启 span 并替换事件 context，listener 收到的 ctx 因此是该 span 的子节点；
// AfterEmit 记录结果数量后结束 span；被其后注册的中间件否决时由 OnVeto 标记并结束 span。
// 注册在否决中间件之后则被否决的发射不产生 span。
//
//	bus.Use(guard.New("internal.*")).Use(tracing.New(nil))
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/uniyakcom/herald/core"
)

// ScopeName instrumentation scope
const ScopeName = "github.com/uniyakcom/herald"

// Middleware span 中间件
type Middleware struct {
	tracer trace.Tracer
}

// New 使用 tp 创建中间件，tp 为 nil 时使用全局 TracerProvider
func New(tp trace.TracerProvider) *Middleware {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Middleware{tracer: tp.Tracer(ScopeName)}
}

// BeforeEmit 开启 span
func (m *Middleware) BeforeEmit(e *core.Event) bool {
	attrs := []attribute.KeyValue{
		attribute.String("herald.event", e.Name),
		attribute.StringSlice("herald.path", e.Path),
	}
	if e.Group != "" {
		attrs = append(attrs, attribute.String("herald.group", e.Group))
	}
	ctx, _ := m.tracer.Start(e.Context(), "herald.emit "+e.Name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	e.SetContext(ctx)
	return true
}

// AfterEmit 结束 span
func (m *Middleware) AfterEmit(e *core.Event, results []any) {
	span := trace.SpanFromContext(e.Context())
	if !span.IsRecording() {
		span.End()
		return
	}
	span.SetAttributes(
		attribute.Int("herald.results", len(results)),
		attribute.Bool("herald.stopped", e.PropagationStopped()),
		attribute.Bool("herald.prevented", e.DefaultPrevented()),
	)
	if id := e.Metadata.Get("correlation_id"); id != "" {
		span.SetAttributes(attribute.String("herald.correlation_id", id))
	}
	span.End()
}

// OnVeto 结束被否决发射的 span
func (m *Middleware) OnVeto(e *core.Event) {
	span := trace.SpanFromContext(e.Context())
	span.SetAttributes(attribute.Bool("herald.vetoed", true))
	span.End()
}
