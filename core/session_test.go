package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() Clock {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return ts }
}

func newTestSession() *Session {
	return NewSession("sess-1", func(o *SessionOptions) { o.Clock = fixedClock() })
}

func TestSession_InitialState(t *testing.T) {
	s := newTestSession()

	assert.Equal(t, "sess-1", s.ID())
	assert.Equal(t, "planning", s.Phase())
	for _, r := range Roles() {
		assert.Equal(t, StatusIdle, s.Status(r), "role %s", r)
	}
	assert.Empty(t, s.Activities())
	assert.Empty(t, s.Outputs())
}

func TestSession_StatusStateMachine(t *testing.T) {
	s := newTestSession()

	err := s.SetStatus(RoleDataArchitect, StatusCompleted)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, StatusIdle, s.Status(RoleDataArchitect))

	require.NoError(t, s.SetStatus(RoleDataArchitect, StatusWorking))
	require.NoError(t, s.SetStatus(RoleDataArchitect, StatusWaiting))
	assert.ErrorIs(t, s.SetStatus(RoleDataArchitect, StatusCompleted), ErrInvalidTransition)
	require.NoError(t, s.SetStatus(RoleDataArchitect, StatusWorking))
	assert.ErrorIs(t, s.SetStatus(RoleDataArchitect, StatusWorking), ErrInvalidTransition)
	require.NoError(t, s.SetStatus(RoleDataArchitect, StatusCompleted))

	// A completed role may be delegated to again.
	require.NoError(t, s.SetStatus(RoleDataArchitect, StatusWorking))
	require.NoError(t, s.SetStatus(RoleDataArchitect, StatusError))
	assert.Equal(t, StatusError, s.Status(RoleDataArchitect))
}

func TestSession_SetStatusUnknownRole(t *testing.T) {
	s := newTestSession()
	err := s.SetStatus(Role("ghost"), StatusWorking)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestSession_AppendOnlyLogs(t *testing.T) {
	s := newTestSession()

	a1 := s.AppendActivity(RoleCoordinator, ActivityMessage, "hello", nil)
	a2 := s.AppendActivity(RoleCoordinator, ActivityActionCall, map[string]any{"x": 1}, map[string]any{"actionId": "c1"})
	assert.Equal(t, "act_1", a1.ID)
	assert.Equal(t, "act_2", a2.ID)
	assert.Equal(t, fixedClock()(), a1.Timestamp)

	o := s.AppendOutput(RoleDataArchitect, OutputDesign, "User", `{"name":"User"}`, FormatJSON)
	assert.Equal(t, "out_1", o.ID)

	acts := s.Activities()
	require.Len(t, acts, 2)
	acts[0].Payload = "mutated"
	assert.Equal(t, "hello", s.Activities()[0].Payload, "readers must return copies")

	outs := s.Outputs()
	require.Len(t, outs, 1)
	assert.Equal(t, OutputDesign, outs[0].Type)
}

func TestSession_SetPhase(t *testing.T) {
	s := newTestSession()
	prev := s.SetPhase("generation")
	assert.Equal(t, "planning", prev)
	assert.Equal(t, "generation", s.Phase())
}

func TestSession_SnapshotIsDetached(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.SetStatus(RoleCoordinator, StatusWorking))
	s.AppendActivity(RoleCoordinator, ActivityMessage, "hi", map[string]any{"k": "v"})

	snap := s.Snapshot()
	snap.Statuses[RoleCoordinator] = StatusError
	snap.Activities[0].Metadata["k"] = "changed"

	assert.Equal(t, StatusWorking, s.Status(RoleCoordinator))
	assert.Equal(t, "v", s.Activities()[0].Metadata["k"])
	assert.Equal(t, "sess-1", snap.ID)
}

func TestSession_NestedPayloadsAreDetached(t *testing.T) {
	s := newTestSession()

	payload := map[string]any{
		"to":   "ux_designer",
		"tags": []any{"a", map[string]any{"k": "v"}},
	}
	s.AppendActivity(RoleCoordinator, ActivityHandoff, payload, nil)
	payload["to"] = "caller"

	snap := s.Snapshot()
	p := snap.Activities[0].Payload.(map[string]any)
	p["to"] = "MUTATED"
	p["tags"].([]any)[1].(map[string]any)["k"] = "changed"

	acts := s.Activities()
	acts[0].Payload.(map[string]any)["to"] = "reader"

	live := s.Snapshot().Activities[0].Payload.(map[string]any)
	assert.Equal(t, "ux_designer", live["to"])
	assert.Equal(t, "v", live["tags"].([]any)[1].(map[string]any)["k"])
}
