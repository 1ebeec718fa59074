package core

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// Session is the mutable aggregate of one orchestration session: per-role
// status, append-only activity and output logs and the current phase tag.
//
// Contract:
//   - SetStatus is a guarded state machine (see AgentStatus)
//   - Activities and Outputs are append-only; no deletion exists
//   - Readers return copies
//   - Identifiers of activities and outputs are session scoped sequence ids so
//     that replaying identical model responses yields identical records
//
// A Session is owned by exactly one engine. Access is serialized through an
// internal lock so nested loops could be parallelized later without races.
type Session struct {
	mu         sync.RWMutex
	id         string
	phase      string
	statuses   map[Role]AgentStatus
	activities []Activity
	outputs    []Output
	created    time.Time
	updated    time.Time
	now        Clock
}

// SessionOptions configures a Session.
type SessionOptions struct {
	// Phase is the initial phase tag.
	Phase string
	// Clock stamps activities and the created/updated fields.
	Clock Clock
}

// NewSession creates a session with every role of the closed set idle.
func NewSession(id string, optFns ...func(o *SessionOptions)) *Session {
	opts := SessionOptions{
		Phase: "planning",
		Clock: SystemClock,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	statuses := make(map[Role]AgentStatus, len(roleCategories))
	for _, r := range Roles() {
		statuses[r] = StatusIdle
	}

	now := opts.Clock()
	return &Session{
		id:       id,
		phase:    opts.Phase,
		statuses: statuses,
		created:  now,
		updated:  now,
		now:      opts.Clock,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SetStatus transitions role to status. Transitions not allowed by the
// AgentStatus state machine return ErrInvalidTransition and leave the status
// unchanged.
func (s *Session) SetStatus(role Role, status AgentStatus) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.statuses[role]
	if !current.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, role, current, status)
	}

	s.statuses[role] = status
	s.updated = s.now()

	return nil
}

// Status returns the current status of role (idle if never started).
func (s *Session) Status(role Role) AgentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.statuses[role]; ok {
		return st
	}
	return StatusIdle
}

// Statuses returns a copy of the full status map.
func (s *Session) Statuses() map[Role]AgentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.statuses)
}

// AppendActivity records an activity and returns the stored record.
func (s *Session) AppendActivity(role Role, kind ActivityKind, payload any, metadata map[string]any) Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	act := Activity{
		ID:        fmt.Sprintf("act_%d", len(s.activities)+1),
		Role:      role,
		Timestamp: now,
		Kind:      kind,
		Payload:   cloneValue(payload),
		Metadata:  cloneMap(metadata),
	}
	s.activities = append(s.activities, act)
	s.updated = now

	return act.clone()
}

// AppendOutput records a structured output and returns the stored record.
func (s *Session) AppendOutput(role Role, outputType OutputType, title, content, format string) Output {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Output{
		ID:      fmt.Sprintf("out_%d", len(s.outputs)+1),
		Role:    role,
		Type:    outputType,
		Title:   title,
		Content: content,
		Format:  format,
	}
	s.outputs = append(s.outputs, out)
	s.updated = s.now()

	return out
}

// SetPhase updates the phase tag and returns the previous one.
func (s *Session) SetPhase(phase string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.phase
	s.phase = phase
	s.updated = s.now()

	return prev
}

// Phase returns the current phase tag.
func (s *Session) Phase() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Activities returns a copy of the activity log.
func (s *Session) Activities() []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Activity, len(s.activities))
	for i, a := range s.activities {
		res[i] = a.clone()
	}
	return res
}

// Outputs returns a copy of the output log.
func (s *Session) Outputs() []Output {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Output, len(s.outputs))
	copy(res, s.outputs)
	return res
}

// SessionSnapshot is a detached, serializable copy of a Session.
type SessionSnapshot struct {
	ID         string               `json:"id"`
	Phase      string               `json:"phase"`
	Statuses   map[Role]AgentStatus `json:"statuses"`
	Activities []Activity           `json:"activities"`
	Outputs    []Output             `json:"outputs"`
	Created    time.Time            `json:"created"`
	Updated    time.Time            `json:"updated"`
}

// Snapshot returns a deep copy of the session safe for independent use.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := SessionSnapshot{
		ID:         s.id,
		Phase:      s.phase,
		Statuses:   maps.Clone(s.statuses),
		Activities: make([]Activity, len(s.activities)),
		Outputs:    make([]Output, len(s.outputs)),
		Created:    s.created,
		Updated:    s.updated,
	}
	copy(snap.Outputs, s.outputs)
	for i, a := range s.activities {
		snap.Activities[i] = a.clone()
	}

	return snap
}

func (a Activity) clone() Activity {
	a.Payload = cloneValue(a.Payload)
	a.Metadata = cloneMap(a.Metadata)
	return a
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	res := make(map[string]any, len(m))
	for k, v := range m {
		res[k] = cloneValue(v)
	}
	return res
}

// cloneValue copies the map and slice shapes activity payloads are built
// from. Other values are returned as is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case map[string]string:
		return maps.Clone(t)
	case []any:
		if t == nil {
			return t
		}
		res := make([]any, len(t))
		for i, e := range t {
			res[i] = cloneValue(e)
		}
		return res
	case []string:
		return slices.Clone(t)
	case []byte:
		return slices.Clone(t)
	default:
		return v
	}
}
