package testutil

import (
	"encoding/json"

	"github.com/hupe1980/appforge/core"
)

// Types returns the event types of events in order.
func Types(events []core.StreamEvent) []core.EventType {
	res := make([]core.EventType, len(events))
	for i, ev := range events {
		res[i] = ev.Type
	}
	return res
}

// OfType returns the events of type t in order.
func OfType(events []core.StreamEvent, t core.EventType) []core.StreamEvent {
	var res []core.StreamEvent
	for _, ev := range events {
		if ev.Type == t {
			res = append(res, ev)
		}
	}
	return res
}

// ByRole returns the events attributed to role in order.
func ByRole(events []core.StreamEvent, role core.Role) []core.StreamEvent {
	var res []core.StreamEvent
	for _, ev := range events {
		if ev.Role == role {
			res = append(res, ev)
		}
	}
	return res
}

// Between returns the events strictly between the action-start and the
// action-end carrying actionID. ok is false when either is missing.
func Between(events []core.StreamEvent, actionID string) (inner []core.StreamEvent, ok bool) {
	start := -1
	for i, ev := range events {
		if ev.ActionID != actionID {
			continue
		}
		switch ev.Type {
		case core.EventActionStart:
			start = i
		case core.EventActionEnd:
			if start < 0 {
				return nil, false
			}
			return events[start+1 : i], true
		}
	}
	return nil, false
}

// Text concatenates the text-delta contents of role.
func Text(events []core.StreamEvent, role core.Role) string {
	var s string
	for _, ev := range events {
		if ev.Type == core.EventTextDelta && ev.Role == role {
			s += ev.Content
		}
	}
	return s
}

// MarshalLines encodes events as newline delimited JSON.
func MarshalLines(events []core.StreamEvent) ([]byte, error) {
	var out []byte
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
		out = append(out, '\n')
	}
	return out, nil
}
