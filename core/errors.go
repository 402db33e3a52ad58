package core

import (
	"errors"
	"fmt"
)

// 哨兵错误
var (
	ErrEmptyEventName       = errors.New("herald: empty event name")
	ErrMalformedEventName   = errors.New("herald: malformed event name")
	ErrNilHandler           = errors.New("herald: handler cannot be nil")
	ErrMaxListenersExceeded = errors.New("herald: max listeners exceeded")
	ErrAsyncTimeout         = errors.New("herald: async listener timed out")
	ErrHandlerPanic         = errors.New("herald: handler panicked")
	ErrBusDestroyed         = errors.New("herald: bus destroyed")
)

// Kind 错误分类
type Kind uint8

const (
	KindValidation Kind = iota + 1 // 订阅参数非法
	KindCapacity                   // MaxListeners 已满
	KindListener                   // handler 返回错误 / panic / Future 失败
	KindTimeout                    // 异步结果超时
	KindMiddleware                 // 中间件 panic
	KindEmit                       // 管线自身失败（如事件名非法）
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindCapacity:
		return "CapacityError"
	case KindListener:
		return "ListenerError"
	case KindTimeout:
		return "AsyncTimeoutError"
	case KindMiddleware:
		return "MiddlewareError"
	case KindEmit:
		return "EmitError"
	default:
		return "UnknownError"
	}
}

// Error 带上下文的总线错误（Reporter 的唯一入参）
type Error struct {
	Err        error
	Options    *Options // 出错 listener 的选项副本（非 listener 错误时为 nil）
	Event      string
	ListenerID string
	Kind       Kind
}

// NewError 构造总线错误
func NewError(kind Kind, event, listenerID string, opts *Options, err error) *Error {
	return &Error{Err: err, Options: opts, Event: event, ListenerID: listenerID, Kind: kind}
}

func (e *Error) Error() string {
	if e.ListenerID != "" {
		return fmt.Sprintf("%s: event %q listener %s: %v", e.Kind, e.Event, e.ListenerID, e.Err)
	}
	return fmt.Sprintf("%s: event %q: %v", e.Kind, e.Event, e.Err)
}

// Unwrap 支持 errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// PanicError 包装 panic 恢复值
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// Is 使 errors.Is(err, ErrHandlerPanic) 成立
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
