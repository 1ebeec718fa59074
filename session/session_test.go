package session

import (
	"context"
	"testing"

	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/internal/testutil"
	"github.com/hupe1980/appforge/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var (
	_ Store       = (*InMemoryStore)(nil)
	_ stream.Sink = (*Sink)(nil)
)

func TestInMemoryStore_Events(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	seq, err := s.AppendEvent(ctx, "a", core.NewAgentStartEvent(core.RoleCoordinator, "Coordinator"))
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
	seq, err = s.AppendEvent(ctx, "a", core.NewDoneEvent())
	require.NoError(t, err)
	assert.Equal(t, 2, seq)
	_, err = s.AppendEvent(ctx, "b", core.NewDoneEvent())
	require.NoError(t, err)

	events, err := s.Events(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []core.EventType{core.EventAgentStart, core.EventDone}, testutil.Types(events))

	events, err = s.Events(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, events)

	ids, err := s.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestInMemoryStore_SnapshotDetached(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	_, err := s.Snapshot(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	snap := testutil.NewSessionBuilder("s1").Phase("design").
		Output(core.RoleDataArchitect, core.OutputDesign, "User", `{"name":"User"}`).
		Build().Snapshot()
	require.NoError(t, s.SaveSnapshot(ctx, snap))

	snap.Outputs[0].Title = "mutated"

	got, err := s.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "design", got.Phase)
	assert.Equal(t, "User", got.Outputs[0].Title)
	assert.Equal(t, testutil.FixedTime, got.Created)
}

func TestSink_MirrorsEventsAndSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	sess := testutil.NewSessionBuilder("s1").Message(core.RoleCoordinator, "hello").Build()

	sink := NewSink(store, "s1", sess.Snapshot)

	require.NoError(t, sink.Send(ctx, core.NewTextDeltaEvent(core.RoleCoordinator, "hello")))
	_, err := store.Snapshot(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound, "snapshot is saved on done only")

	require.NoError(t, sink.Send(ctx, core.NewDoneEvent()))

	snap, err := store.Snapshot(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, snap.Activities, 1)
	assert.Equal(t, "hello", snap.Activities[0].Payload)

	events, err := store.Events(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
