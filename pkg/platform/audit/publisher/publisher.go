// Package publisher delivers committed audit events to a queryable store and
// any number of downstream sinks (Kafka, Redis streams).
//
// The store is the system of record: a store failure is returned to the
// caller. Sinks are best effort: each sits behind its own circuit breaker and
// a failing sink is logged and counted without affecting the others.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"kycgate/pkg/domain"
	audit "kycgate/pkg/platform/audit"
	"kycgate/pkg/requestcontext"
)

// ErrBufferFull is returned by Emit in async mode when the buffer is full.
var ErrBufferFull = errors.New("audit buffer full")

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

type namedSink struct {
	name    string
	sink    audit.Sink
	breaker *circuitBreaker
}

// Publisher fans events out to a store and sinks, synchronously or through a
// bounded buffer drained by a background worker.
type Publisher struct {
	store   audit.Store
	sinks   []namedSink
	logger  *slog.Logger
	metrics *Metrics

	sinkTimeout      time.Duration
	breakerThreshold int
	breakerCooldown  time.Duration

	bufferSize int
	buffer     chan audit.Event
	mu         sync.RWMutex
	closed     bool
	wg         sync.WaitGroup
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables async delivery with a bounded buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

// WithSink adds a named downstream sink.
func WithSink(name string, sink audit.Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, namedSink{name: name, sink: sink})
		}
	}
}

// WithLogger sets the logger used for sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics enables delivery metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithSinkTimeout bounds each sink delivery.
func WithSinkTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.sinkTimeout = d
		}
	}
}

// WithCircuitBreaker sets the per-sink failure threshold and cooldown.
func WithCircuitBreaker(threshold int, cooldown time.Duration) Option {
	return func(p *Publisher) {
		p.breakerThreshold = threshold
		p.breakerCooldown = cooldown
	}
}

// NewPublisher constructs a Publisher over store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:       store,
		logger:      slog.Default(),
		sinkTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	for i := range p.sinks {
		p.sinks[i].breaker = newCircuitBreaker(p.breakerThreshold, p.breakerCooldown)
	}
	if p.bufferSize > 0 {
		p.buffer = make(chan audit.Event, p.bufferSize)
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit stamps and delivers an event. In async mode it only enqueues.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if p.buffer == nil {
		return p.deliver(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.metrics != nil {
			p.metrics.BufferFull.Inc()
		}
		return ErrBufferFull
	}
}

// List returns events recorded about subject.
func (p *Publisher) List(ctx context.Context, subject domain.Identity) ([]audit.Event, error) {
	return p.store.ListBySubject(ctx, subject)
}

// ListByOperation returns the event trail of one operation.
func (p *Publisher) ListByOperation(ctx context.Context, opID domain.OperationID) ([]audit.Event, error) {
	return p.store.ListByOperation(ctx, opID)
}

// Close stops accepting events and drains the buffer.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.buffer != nil {
		close(p.buffer)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.buffer {
		// Detached from the emitting request, which has usually finished.
		if err := p.deliver(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"event_id", event.ID.String(),
				"error", err,
			)
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.Published.WithLabelValues(string(event.Action)).Inc()
	}
	if len(p.sinks) == 0 {
		return nil
	}

	// Sink errors never reach the caller; the group only bounds fan-out.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	for _, s := range p.sinks {
		g.Go(func() error {
			p.deliverToSink(gctx, s, event)
			return nil
		})
	}
	return g.Wait()
}

func (p *Publisher) deliverToSink(ctx context.Context, s namedSink, event audit.Event) {
	if !s.breaker.allow() {
		if p.metrics != nil {
			p.metrics.SinkDropped.WithLabelValues(s.name).Inc()
		}
		return
	}
	if p.metrics != nil && s.breaker.current() == stateHalfOpen {
		p.metrics.BreakerState.WithLabelValues(s.name).Set(float64(stateHalfOpen))
	}
	ctx, cancel := context.WithTimeout(ctx, p.sinkTimeout)
	defer cancel()

	if err := s.sink.Append(ctx, event); err != nil {
		opened := s.breaker.failure()
		p.logger.Warn("audit sink delivery failed",
			"sink", s.name,
			"action", event.Action,
			"event_id", event.ID.String(),
			"circuit_opened", opened,
			"error", err,
		)
		if p.metrics != nil {
			p.metrics.SinkFailures.WithLabelValues(s.name).Inc()
			if opened {
				p.metrics.BreakerState.WithLabelValues(s.name).Set(float64(stateOpen))
			}
		}
		return
	}
	s.breaker.success()
	if p.metrics != nil {
		p.metrics.BreakerState.WithLabelValues(s.name).Set(float64(stateClosed))
	}
}
