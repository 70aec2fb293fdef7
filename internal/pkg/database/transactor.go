package database

import (
	"context"
	"sync"
)

// Transactor runs fn inside one transaction carried by the returned context. Nested
// calls join the outer transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type commitHooksKey struct{}

type commitHooks struct {
	mu  sync.Mutex
	fns []func()
}

// WithCommitHooks returns a context that collects AfterCommit callbacks and a function
// that runs them in registration order. Transactors call it when they open the
// outermost transaction and run the hooks only after a successful commit.
func WithCommitHooks(ctx context.Context) (context.Context, func()) {
	h := &commitHooks{}
	run := func() {
		h.mu.Lock()
		fns := h.fns
		h.fns = nil
		h.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
	return context.WithValue(ctx, commitHooksKey{}, h), run
}

// AfterCommit defers fn until the transaction carried by ctx commits. It is dropped
// when the transaction rolls back. Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	h, ok := ctx.Value(commitHooksKey{}).(*commitHooks)
	if !ok {
		fn()
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}
