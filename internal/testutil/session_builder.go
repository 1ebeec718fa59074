package testutil

import (
	"time"

	"github.com/hupe1980/appforge/core"
)

// FixedTime is the timestamp produced by FixedClock.
var FixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// FixedClock always returns FixedTime.
func FixedClock() time.Time { return FixedTime }

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("sess-1").Phase("design").Output(core.RoleDataArchitect, core.OutputDesign, "User", "{}").Build()
//
// Sessions are built with FixedClock so their snapshots are reproducible.
type SessionBuilder struct {
	id       string
	phase    string
	working  []core.Role
	outputs  []core.Output
	messages []core.Activity
}

// NewSessionBuilder creates a new builder for a session with the given id.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, phase: "planning"}
}

// Phase sets the phase tag (chainable).
func (b *SessionBuilder) Phase(p string) *SessionBuilder { b.phase = p; return b }

// Working moves roles to StatusWorking (chainable).
func (b *SessionBuilder) Working(roles ...core.Role) *SessionBuilder {
	b.working = append(b.working, roles...)
	return b
}

// Message appends a message activity (chainable).
func (b *SessionBuilder) Message(role core.Role, text string) *SessionBuilder {
	b.messages = append(b.messages, core.Activity{Role: role, Kind: core.ActivityMessage, Payload: text})
	return b
}

// Output appends a json output (chainable).
func (b *SessionBuilder) Output(role core.Role, typ core.OutputType, title, content string) *SessionBuilder {
	b.outputs = append(b.outputs, core.Output{Role: role, Type: typ, Title: title, Content: content, Format: core.FormatJSON})
	return b
}

// Build returns a *core.Session with the recorded state applied in order.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id, func(o *core.SessionOptions) {
		o.Phase = b.phase
		o.Clock = FixedClock
	})

	for _, r := range b.working {
		_ = s.SetStatus(r, core.StatusWorking)
	}
	for _, m := range b.messages {
		s.AppendActivity(m.Role, m.Kind, m.Payload, nil)
	}
	for _, o := range b.outputs {
		s.AppendOutput(o.Role, o.Type, o.Title, o.Content, o.Format)
	}

	return s
}
