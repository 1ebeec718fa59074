// Package stream provides plumbing for StreamEvent sequences produced by
// engine.Chat: sinks that mirror events to external collaborators
// (storage, message buses, transports), an order-preserving tee and a
// collector.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/logging"
)

// Sink receives a copy of every event of a chat, in emission order.
type Sink interface {
	Send(ctx context.Context, ev core.StreamEvent) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev core.StreamEvent) error

// Send implements Sink.
func (f SinkFunc) Send(ctx context.Context, ev core.StreamEvent) error { return f(ctx, ev) }

// TeeOptions configures Tee.
type TeeOptions struct {
	Logger logging.Logger
	// BufferSize of the downstream channel.
	BufferSize int
}

// Tee forwards every event of in to each sink and then downstream.
//
// Sinks run synchronously on the tee goroutine in the order given, so they
// observe exactly the downstream order. A failing sink is logged and does
// not affect the downstream sequence or the other sinks. When ctx ends the
// tee stops forwarding and drains in, so the producer is never blocked.
func Tee(ctx context.Context, in <-chan core.StreamEvent, sinks []Sink, optFns ...func(o *TeeOptions)) <-chan core.StreamEvent {
	opts := TeeOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	out := make(chan core.StreamEvent, opts.BufferSize)

	go func() {
		defer close(out)

		stopped := false
		for ev := range in {
			if stopped {
				continue
			}

			for i, s := range sinks {
				if err := s.Send(ctx, ev); err != nil {
					opts.Logger.Warn("stream.sink.error", "sink", i, "event", ev.Type, "error", err.Error())
				}
			}

			select {
			case <-ctx.Done():
				stopped = true
			case out <- ev:
			}
		}
	}()

	return out
}

// Collect drains in into a slice. It returns early with ctx's error when
// ctx ends first.
func Collect(ctx context.Context, in <-chan core.StreamEvent) ([]core.StreamEvent, error) {
	var events []core.StreamEvent
	for {
		select {
		case <-ctx.Done():
			return events, ctx.Err()
		case ev, ok := <-in:
			if !ok {
				return events, nil
			}
			events = append(events, ev)
		}
	}
}

// JSONWriter is a Sink writing newline delimited JSON events to w.
type JSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w)}
}

// Send implements Sink.
func (w *JSONWriter) Send(_ context.Context, ev core.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(ev); err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return nil
}

// Recorder is an in-memory Sink, safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []core.StreamEvent
}

// Send implements Sink.
func (r *Recorder) Send(_ context.Context, ev core.StreamEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []core.StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.StreamEvent(nil), r.events...)
}
