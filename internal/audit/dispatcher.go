package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events instead of blocking the caller when the
	// buffer is full.
	DropIfFull bool
	// Clock stamps events that arrive without a timestamp. Default real clock.
	Clock clockwork.Clock
	// Logger reports drops and sink panics. Default no-op.
	Logger *zap.Logger
}

// Dispatcher delivers events to a sink from a single worker, in the order
// they were queued.
type Dispatcher struct {
	sink       Sink
	clock      clockwork.Clock
	logger     *zap.Logger
	dropIfFull bool

	// mu is read-held by senders and write-held by Close, so nothing sends
	// on queue after it is closed.
	mu      sync.RWMutex
	closed  bool
	queue   chan Event
	drained chan struct{}

	dropped atomic.Uint64
}

// NewDispatcher starts a worker when cfg.Enabled. It returns nil otherwise,
// and a nil *Dispatcher ignores every call.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	d := &Dispatcher{
		sink:       sink,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, cfg.BufferSize),
		drained:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.drained)
	for event := range d.queue {
		d.deliver(event)
	}
}

// deliver keeps a panicking sink from taking the worker down with it.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("audit sink panicked",
				zap.String("event_type", event.EventType),
				zap.String("event_id", event.EventID),
				zap.Any("panic", r),
			)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. Events without an ID or timestamp are stamped here so
// every sink sees the same values. In blocking mode a cancelled ctx counts
// as a drop.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if event.EventID == "" {
		event.EventID = NewEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.clock.Now().UTC()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.drop(event, "buffer full")
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event, "caller gave up")
	}
}

// drop logs the first drop and then every power of two, so a saturated
// sink cannot flood the log.
func (d *Dispatcher) drop(event Event, cause string) {
	n := d.dropped.Add(1)
	if n&(n-1) != 0 {
		return
	}
	d.logger.Warn("audit event dropped",
		zap.String("event_type", event.EventType),
		zap.String("cause", cause),
		zap.Uint64("dropped_total", n),
	)
}

// Close stops accepting events, waits for the queue to drain into the sink
// and returns. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.drained
}

// Dropped counts events that never reached the queue.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
