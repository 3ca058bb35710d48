package optimistic

import (
	"context"
	"sync"
)

// Update wraps a single asynchronous write that a caller wants to reflect
// in the UI before it completes. Unlike Tracker it keeps no per-id records;
// it only exposes whether a call is in flight and the last error.
type Update[P, R any] struct {
	fn        func(context.Context, P) (R, error)
	onSuccess func(R)
	onError   func(error)

	mu      sync.Mutex
	pending int
	err     error
}

// NewUpdate returns an Update around fn. Either callback may be nil.
func NewUpdate[P, R any](fn func(context.Context, P) (R, error), onSuccess func(R), onError func(error)) *Update[P, R] {
	return &Update[P, R]{fn: fn, onSuccess: onSuccess, onError: onError}
}

// Execute applies optimistic (when non-nil), then runs the wrapped write.
// The write's error is returned to the caller after onError has seen it.
func (u *Update[P, R]) Execute(ctx context.Context, params P, optimistic func()) (R, error) {
	u.mu.Lock()
	u.pending++
	u.err = nil
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		u.pending--
		u.mu.Unlock()
	}()

	if optimistic != nil {
		optimistic()
	}

	result, err := u.fn(ctx, params)
	if err != nil {
		u.mu.Lock()
		u.err = err
		u.mu.Unlock()
		if u.onError != nil {
			u.onError(err)
		}
		return result, err
	}

	if u.onSuccess != nil {
		u.onSuccess(result)
	}
	return result, nil
}

func (u *Update[P, R]) Pending() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.pending > 0
}

// Err is the error of the most recent failed Execute, cleared when the
// next Execute starts.
func (u *Update[P, R]) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}
