package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/appforge/core"
)

// ErrNotFound is returned when a session has no stored snapshot.
var ErrNotFound = errors.New("session not found")

// Store persists session event logs and snapshots.
type Store interface {
	// AppendEvent appends ev to the event log of sessionID and returns its
	// 1-based sequence number within the session.
	AppendEvent(ctx context.Context, sessionID string, ev core.StreamEvent) (int, error)
	// Events returns the event log of sessionID in append order.
	Events(ctx context.Context, sessionID string) ([]core.StreamEvent, error)
	// SaveSnapshot stores snap, replacing any earlier snapshot of the session.
	SaveSnapshot(ctx context.Context, snap core.SessionSnapshot) error
	// Snapshot returns the latest snapshot of sessionID or ErrNotFound.
	Snapshot(ctx context.Context, sessionID string) (core.SessionSnapshot, error)
	// Sessions lists the ids of all sessions with a snapshot or events.
	Sessions(ctx context.Context) ([]string, error)
}

// Detach returns a deep copy of v by a JSON round trip. Payloads become
// their JSON shapes (maps, slices, float64) exactly as a durable store
// would return them.
func Detach[T any](v T) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("encode: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}
