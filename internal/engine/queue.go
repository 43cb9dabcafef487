package engine

import (
	"context"
	"sync"
)

// command is one unit of work for the Runner loop.
type command struct {
	fn   func(ctx context.Context, s *Session) error
	done chan error
}

// commandQueue is a thread-safe FIFO queue of commands.
//
// HTTP handlers enqueue from their own goroutines while the Runner loop
// dequeues. The queue uses a channel for signaling so the loop can wait on
// it together with the ticker and context cancellation.
type commandQueue struct {
	mu       sync.Mutex
	commands []command
	closed   bool
	signal   chan struct{} // Signals command availability (buffered, size 1)
}

// newCommandQueue creates an empty queue.
func newCommandQueue() *commandQueue {
	return &commandQueue{
		commands: make([]command, 0, 16),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a command to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *commandQueue) Enqueue(c command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.commands = append(q.commands, c)

	// Non-blocking: buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front command without blocking.
func (q *commandQueue) TryDequeue() (command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.commands) == 0 {
		return command{}, false
	}

	c := q.commands[0]

	// Nil out the slot so the closure and its captures can be collected.
	q.commands[0] = command{}

	if len(q.commands) == 1 {
		q.commands = q.commands[:0]
	} else {
		q.commands = q.commands[1:]
	}

	return c, true
}

// Wait returns a channel that signals when commands may be available.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.commands)
}

// Close signals that no more commands will be enqueued and fails every
// command still waiting with ErrStopped.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	for _, c := range q.commands {
		c.done <- ErrStopped
	}
	q.commands = nil
	select {
	case <-q.signal:
	default:
	}
	close(q.signal)
}
