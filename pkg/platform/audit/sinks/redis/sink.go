// Package redis appends committed audit events to a Redis stream.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	audit "kycgate/pkg/platform/audit"
)

const defaultStream = "kycgate:audit"

// Sink XADDs each event to a capped stream.
type Sink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// Option configures a Sink.
type Option func(*Sink)

// WithStream overrides the stream key.
func WithStream(stream string) Option {
	return func(s *Sink) {
		if stream != "" {
			s.stream = stream
		}
	}
}

// WithMaxLen caps the stream length (approximate trimming). Zero disables trimming.
func WithMaxLen(n int64) Option {
	return func(s *Sink) {
		s.maxLen = n
	}
}

// New constructs a Redis stream sink.
func New(client *redis.Client, opts ...Option) *Sink {
	s := &Sink{client: client, stream: defaultStream, maxLen: 100_000}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := audit.Marshal(event)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"id":      event.ID.String(),
			"action":  string(event.Action),
			"payload": payload,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd audit event: %w", err)
	}
	return nil
}

// Stream returns the stream key events are written to.
func (s *Sink) Stream() string {
	return s.stream
}
