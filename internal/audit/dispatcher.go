package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the flow when the buffer is full.
	DropIfFull bool
}

// Stats counts what happened to emitted events.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	// Failed counts events whose sink panicked.
	Failed uint64
}

// Dispatcher relays events to a sink on one background goroutine, in emit
// order. A panicking sink loses that event only.
type Dispatcher struct {
	cfg    Config
	sink   Sink
	queue  chan Event
	stop   chan struct{}
	wg     sync.WaitGroup
	stats  [3]atomic.Uint64
	closed atomic.Bool
	once   sync.Once
}

const (
	statDelivered = iota
	statDropped
	statFailed
)

// NewDispatcher starts a dispatcher. It returns nil when auditing is disabled;
// a nil *Dispatcher accepts and ignores every call.
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

	d := &Dispatcher{
		cfg:   cfg,
		sink:  sink,
		queue: make(chan Event, cfg.BufferSize),
		stop:  make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if recover() != nil {
			d.stats[statFailed].Add(1)
		}
	}()
	d.sink.Emit(context.Background(), ev)
	d.stats[statDelivered].Add(1)
}

// Emit queues ev. With DropIfFull a full buffer drops the event; otherwise
// Emit waits for room until ctx is done, which also counts as a drop. Events
// emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- ev:
		case <-d.stop:
		default:
			d.stats[statDropped].Add(1)
		}
		return
	}

	select {
	case d.queue <- ev:
	case <-ctx.Done():
		d.stats[statDropped].Add(1)
	case <-d.stop:
	}
}

// Close stops accepting events and delivers everything already queued.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered: d.stats[statDelivered].Load(),
		Dropped:   d.stats[statDropped].Load(),
		Failed:    d.stats[statFailed].Load(),
	}
}

func (d *Dispatcher) Dropped() uint64 {
	return d.Stats().Dropped
}

// Delivered reports how many events reached the sink.
func (d *Dispatcher) Delivered() uint64 {
	return d.Stats().Delivered
}
