// Package shutdown coordinates operator cancellation: it turns SIGINT
// and SIGTERM into context cancellation and runs registered cleanup
// functions in reverse order once work has drained.
package shutdown

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Manager owns the signal-cancelled context and the LIFO cleanup list.
type Manager struct {
	mu       sync.Mutex
	cleanups []func(context.Context) error
	timeout  time.Duration
}

// New creates a manager whose cleanup phase is bounded by timeout.
func New(timeout time.Duration) *Manager {
	return &Manager{timeout: timeout}
}

// Context returns a context cancelled on SIGINT/SIGTERM (or when the
// parent is cancelled) together with its stop function.
func (m *Manager) Context(parent context.Context) (context.Context, context.CancelFunc) {
	return NotifyContext(parent)
}

// NotifyContext is the manager-free variant for commands that have no
// cleanup phase to drain: just a context cancelled on SIGINT/SIGTERM.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Register adds a cleanup function. Functions run in reverse order of
// registration.
func (m *Manager) Register(fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, fn)
}

// Run executes all registered cleanups LIFO and returns the first
// error. Later cleanups still run after an earlier failure.
func (m *Manager) Run() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var firstErr error
	for i := len(m.cleanups) - 1; i >= 0; i-- {
		if err := m.cleanups[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Interrupted reports whether the batch context was cancelled, useful
// for exit-code decisions after a batch.
func Interrupted(ctx context.Context) bool {
	return ctx.Err() != nil
}
