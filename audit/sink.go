package audit

import (
	"sync"
	"sync/atomic"

	"github.com/hupe1980/agentgov/core"
	"github.com/hupe1980/agentgov/logging"
)

// NoOpSink discards all audit events. The default when auditing is disabled.
type NoOpSink struct{}

// Record implements core.AuditSink.
func (NoOpSink) Record(core.AuditEvent) {}

// SinkOptions configures a Sink.
type SinkOptions struct {
	// BufferSize is the channel buffer between producers and the writer
	// goroutine. Events are dropped (and counted) when the buffer is full so
	// recording never blocks.
	BufferSize int
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Sink delivers audit events to a Log asynchronously. Record never blocks:
// producers enqueue onto a buffered channel drained by a single writer
// goroutine, preserving arrival order for the hash chain.
type Sink struct {
	log     *Log
	ch      chan core.AuditEvent
	logger  logging.Logger
	dropped atomic.Int64

	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// NewSink starts the writer goroutine over the given log.
func NewSink(log *Log, optFns ...func(o *SinkOptions)) *Sink {
	opts := SinkOptions{BufferSize: 256, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Sink{
		log:    log,
		ch:     make(chan core.AuditEvent, opts.BufferSize),
		logger: opts.Logger,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.drain()
	return s
}

// Record implements core.AuditSink. Fire-and-forget: a full buffer drops the
// event rather than blocking the caller. Safe to call after Close; late
// events are counted as dropped. The event channel is never closed, so a
// producer racing Close cannot panic.
func (s *Sink) Record(ev core.AuditEvent) {
	select {
	case <-s.quit:
		s.dropped.Add(1)
		return
	default:
	}
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded due to backpressure or
// arrival after Close.
func (s *Sink) Dropped() int64 { return s.dropped.Load() }

// Close stops accepting events and waits for buffered events to be written.
// Idempotent.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
}

func (s *Sink) drain() {
	defer close(s.done)
	for {
		select {
		case ev := <-s.ch:
			s.append(ev)
		case <-s.quit:
			// Flush whatever producers managed to enqueue, then stop.
			for {
				select {
				case ev := <-s.ch:
					s.append(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) append(ev core.AuditEvent) {
	if _, err := s.log.Append(ev); err != nil {
		s.logger.Warn("audit.append.failed", "action", ev.Action, "error", err)
	}
}
