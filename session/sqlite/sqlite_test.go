package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/internal/testutil"
	"github.com/hupe1980/appforge/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ session.Store = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "appforge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Events(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sent := []core.StreamEvent{
		core.NewAgentStartEvent(core.RoleCoordinator, "Coordinator"),
		core.NewActionStartEvent(core.RoleCoordinator, core.ActionCall{ID: "c1", Name: "set_phase"}, map[string]any{"phase": "design"}),
		core.NewActionEndEvent(core.RoleCoordinator, core.NewActionResult(core.ActionCall{ID: "c1", Name: "set_phase"}, map[string]any{"success": true})),
		core.NewDoneEvent(),
	}
	for i, ev := range sent {
		seq, err := s.AppendEvent(ctx, "s1", ev)
		require.NoError(t, err)
		assert.Equal(t, i+1, seq)
	}
	seq, err := s.AppendEvent(ctx, "s2", core.NewDoneEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	got, err := s.Events(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, testutil.Types(sent), testutil.Types(got))
	assert.Equal(t, map[string]any{"phase": "design"}, got[1].Input)
	assert.Equal(t, "c1", got[2].ActionID)

	ids, err := s.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
}

func TestStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Snapshot(ctx, "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)

	sess := testutil.NewSessionBuilder("s1").Phase("design").Working(core.RoleCoordinator).
		Message(core.RoleCoordinator, "planning").
		Output(core.RoleDataArchitect, core.OutputDesign, "User", `{"name":"User"}`).
		Output(core.RoleRequirementsAnalyst, core.OutputRequirement, "Login", `{"title":"Login"}`).
		Build()

	require.NoError(t, s.SaveSnapshot(ctx, sess.Snapshot()))

	// saving again after more work replaces the snapshot and keeps outputs unique
	sess.SetPhase("generation")
	sess.AppendOutput(core.RoleBackendEngineer, core.OutputCode, "main.go", "package main", core.FormatText)
	require.NoError(t, s.SaveSnapshot(ctx, sess.Snapshot()))

	got, err := s.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "generation", got.Phase)
	assert.Equal(t, core.StatusWorking, got.Statuses[core.RoleCoordinator])
	assert.Len(t, got.Outputs, 3)
	assert.True(t, testutil.FixedTime.Equal(got.Created))

	all, err := s.Outputs(ctx, "s1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"out_1", "out_2", "out_3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	design, err := s.Outputs(ctx, "s1", core.OutputDesign)
	require.NoError(t, err)
	require.Len(t, design, 1)
	assert.Equal(t, "User", design[0].Title)
	assert.Equal(t, core.RoleDataArchitect, design[0].Role)
}

func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "appforge.db")

	s, err := New(path)
	require.NoError(t, err)
	_, err = s.AppendEvent(ctx, "s1", core.NewDoneEvent())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	seq, err := s.AppendEvent(ctx, "s1", core.NewDoneEvent())
	require.NoError(t, err)
	assert.Equal(t, 2, seq)
}
