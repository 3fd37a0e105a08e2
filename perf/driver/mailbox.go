package driver

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/atomic"
	"golang.design/x/chann"
)

// ErrMailboxClosed is returned by Send after Close.
var ErrMailboxClosed = errors.New("mailbox is closed")

// Mailbox is an unbounded (or capped) inbox between goroutines. Senders never
// block on an unbounded mailbox.
type Mailbox[T any] struct {
	// mu is held shared by senders and exclusively by Close, so the channel
	// is never closed under a pending send.
	mu     sync.RWMutex
	closed atomic.Bool
	done   chan struct{}
	ch     *chann.Chann[T]
}

// NewMailbox creates a mailbox. A positive capacity makes it a buffered
// channel of that size; otherwise it is unbounded and values become visible
// to receivers asynchronously.
func NewMailbox[T any](capacity int) *Mailbox[T] {
	var opts []chann.Opt
	if capacity > 0 {
		opts = append(opts, chann.Cap(capacity))
	}
	return &Mailbox[T]{
		done: make(chan struct{}),
		ch:   chann.New[T](opts...),
	}
}

// Send queues data, waiting for room in a capped mailbox until ctx is done
// or the mailbox is closed.
func (m *Mailbox[T]) Send(ctx context.Context, data T) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return ErrMailboxClosed
	}
	select {
	case <-ctx.Done():
		return errors.New("send cancelled")
	case <-m.done:
		return ErrMailboxClosed
	case m.ch.In() <- data:
		return nil
	}
}

// TrySend queues data only if there is room right now and reports whether
// it did.
func (m *Mailbox[T]) TrySend(data T) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return false
	}
	select {
	case m.ch.In() <- data:
		return true
	default:
		return false
	}
}

// Drain returns every queued value without waiting for more.
func (m *Mailbox[T]) Drain() []T {
	var out []T
	for {
		select {
		case v, ok := <-m.ch.Out():
			if !ok {
				return out
			}
			out = append(out, v)
		default:
			return out
		}
	}
}

// Close rejects further sends. Blocked senders return ErrMailboxClosed.
// Values already queued can still be drained.
func (m *Mailbox[T]) Close() {
	if m.closed.Swap(true) {
		return
	}
	close(m.done)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ch.Close()
}
