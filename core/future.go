package core

import (
	"errors"
	"runtime/debug"
)

// Future 异步结果（handler 返回 Future 时由管线与超时竞速）
type Future interface {
	// Done 结果就绪时关闭
	Done() <-chan struct{}
	// Result Done 关闭后返回结果
	Result() (any, error)
}

type future struct {
	done chan struct{}
	val  any
	err  error
}

func (f *future) Done() <-chan struct{} { return f.done }

func (f *future) Result() (any, error) {
	<-f.done
	return f.val, f.err
}

// Go 在新 goroutine 中执行 fn 并返回其 Future（fn 的 panic 转为 PanicError）
func Go(fn func() (any, error)) Future {
	f := &future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.val = nil
				f.err = &PanicError{Value: r, Stack: string(debug.Stack())}
			}
		}()
		f.val, f.err = fn()
	}()
	return f
}

// Resolved 已完成的 Future
func Resolved(v any) Future {
	f := &future{done: make(chan struct{}), val: v}
	close(f.done)
	return f
}

// Rejected 已失败的 Future
func Rejected(err error) Future {
	if err == nil {
		err = errors.New("rejected future")
	}
	f := &future{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}
