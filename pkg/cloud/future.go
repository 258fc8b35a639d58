package cloud

import (
	"context"
	"fmt"
)

// Future is the handle returned by asynchronous variants. The result is
// set exactly once.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn in a new goroutine and returns a Future for its result. A
// panic in fn settles the future with an error wrapping ErrAsyncPanic.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		defer func() {
			if r := recover(); r != nil {
				var zero T

				f.value = zero
				f.err = fmt.Errorf("%w: %v", ErrAsyncPanic, r)
			}
		}()

		f.value, f.err = fn()
	}()

	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}
