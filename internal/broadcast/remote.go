package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Transport delivers one event to out-of-process displays.
type Transport interface {
	Send(ctx context.Context, e Event) error
}

// DefaultRemoteBuffer is the number of events Remote queues before dropping.
const DefaultRemoteBuffer = 64

// DefaultSendTimeout bounds a single Transport.Send call.
const DefaultSendTimeout = 2 * time.Second

// Remote is the asynchronous, best-effort publisher for satellites.
//
// Publish never blocks: events are queued to a single worker goroutine
// that calls the transport in publish order. When the queue is full the
// event is dropped. Send failures are logged and the event is discarded;
// a missed update self-heals on the next event.
type Remote struct {
	transport Transport
	logger    *slog.Logger
	timeout   time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan Event
	done   chan struct{}

	dropped int
	failed  int
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithBuffer sets the queue length. Values below 1 are ignored.
func WithBuffer(n int) RemoteOption {
	return func(r *Remote) {
		if n > 0 {
			r.queue = make(chan Event, n)
		}
	}
}

// WithLogger sets the logger for delivery failures.
func WithLogger(l *slog.Logger) RemoteOption {
	return func(r *Remote) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSendTimeout bounds each Send call.
func WithSendTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRemote starts a Remote delivering to transport.
// Call Close to stop the worker after draining queued events.
func NewRemote(transport Transport, opts ...RemoteOption) *Remote {
	r := &Remote{
		transport: transport,
		logger:    slog.Default(),
		timeout:   DefaultSendTimeout,
		queue:     make(chan Event, DefaultRemoteBuffer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Publish queues the event for delivery.
func (r *Remote) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- e:
	default:
		r.dropped++
		r.logger.Warn("satellite queue full, dropping event",
			"type", e.Type,
			"seq", e.Seq,
			"dropped_total", r.dropped,
		)
	}
}

// Close stops accepting events and waits for queued events to be sent.
func (r *Remote) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

// Stats returns the number of dropped and failed deliveries so far.
func (r *Remote) Stats() (dropped, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped, r.failed
}

func (r *Remote) run() {
	defer close(r.done)
	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.transport.Send(ctx, e)
		cancel()
		if err != nil {
			r.mu.Lock()
			r.failed++
			r.mu.Unlock()
			r.logger.Warn("satellite delivery failed",
				"type", e.Type,
				"seq", e.Seq,
				"error", err,
			)
		}
	}
}
