package session

import (
	"context"
	"fmt"

	"github.com/hupe1980/appforge/core"
)

// Sink mirrors a chat's events into a Store. It implements stream.Sink.
//
// Every event is appended to the session's event log as it is consumed.
// When the done event arrives the session snapshot returned by snapshot
// (typically engine.Engine.Session) is saved as well.
type Sink struct {
	store     Store
	sessionID string
	snapshot  func() core.SessionSnapshot
}

// NewSink creates a Sink for sessionID. snapshot may be nil.
func NewSink(store Store, sessionID string, snapshot func() core.SessionSnapshot) *Sink {
	return &Sink{store: store, sessionID: sessionID, snapshot: snapshot}
}

// Send implements stream.Sink.
func (s *Sink) Send(ctx context.Context, ev core.StreamEvent) error {
	if _, err := s.store.AppendEvent(ctx, s.sessionID, ev); err != nil {
		return fmt.Errorf("append %s event: %w", ev.Type, err)
	}

	if ev.IsTerminal() && s.snapshot != nil {
		if err := s.store.SaveSnapshot(ctx, s.snapshot()); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}

	return nil
}
