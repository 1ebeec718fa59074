package model

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/appforge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(respCh <-chan Response, errCh <-chan error) ([]Response, error) {
	var out []Response
	for r := range respCh {
		out = append(out, r)
	}
	return out, <-errCh
}

func TestScriptedModel_PerRoleQueues(t *testing.T) {
	m := NewScriptedModel().
		On(core.RoleCoordinator, Call("delegate_task", `{"agent":"ux_designer","task":"x"}`), Text("done")).
		Default(Text("specialist"))

	ctx := context.Background()

	resps, err := drain(m.Generate(ctx, Request{Role: core.RoleCoordinator, Stream: true}))
	require.NoError(t, err)
	require.Len(t, resps, 1)
	final := resps[0]
	assert.False(t, final.Partial)
	assert.Equal(t, FinishToolUse, final.FinishReason)
	calls := final.Content.ActionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_coordinator_1_1", calls[0].ID)

	resps, err = drain(m.Generate(ctx, Request{Role: core.RoleCoordinator, Stream: true}))
	require.NoError(t, err)
	require.Len(t, resps, 2)
	assert.True(t, resps[0].Partial)
	assert.Equal(t, "done", resps[1].Content.Text())
	assert.Equal(t, FinishEndTurn, resps[1].FinishReason)

	// exhausted queue repeats the last turn
	resps, err = drain(m.Generate(ctx, Request{Role: core.RoleCoordinator}))
	require.NoError(t, err)
	require.Len(t, resps, 1, "no partials without streaming")
	assert.Equal(t, "done", resps[0].Content.Text())

	resps, err = drain(m.Generate(ctx, Request{Role: core.RoleQAEngineer}))
	require.NoError(t, err)
	assert.Equal(t, "specialist", resps[0].Content.Text())

	assert.Equal(t, 3, m.Calls(core.RoleCoordinator))
	assert.Equal(t, 1, m.Calls(core.RoleQAEngineer))
	assert.Len(t, m.Requests(), 4)
}

func TestScriptedModel_Failure(t *testing.T) {
	boom := errors.New("boom")
	m := NewScriptedModel().On(core.RoleCoordinator,
		Text("first"),
		Turn{Deltas: []string{"par", "tial"}, Err: boom},
	)

	_, err := drain(m.Generate(context.Background(), Request{Role: core.RoleCoordinator}))
	require.NoError(t, err)

	resps, err := drain(m.Generate(context.Background(), Request{Role: core.RoleCoordinator, Stream: true}))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, resps, 2, "deltas stream before the failure")
}

func TestScriptedModel_Unscripted(t *testing.T) {
	m := NewScriptedModel()
	resps, err := drain(m.Generate(context.Background(), Request{Role: core.RoleDataArchitect}))
	require.NoError(t, err)
	require.Len(t, resps, 1)
	assert.Empty(t, resps[0].Content.Parts)
	assert.Equal(t, FinishEndTurn, resps[0].FinishReason)
}

func TestScriptedModel_Cancelled(t *testing.T) {
	m := NewScriptedModel().Default(Turn{Deltas: []string{"a", "b", "c"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	respCh, errCh := m.Generate(ctx, Request{Stream: true, Role: core.RoleCoordinator})
	for range respCh {
	}
	// the buffered channel may accept some sends before the cancellation is observed
	if err := <-errCh; err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestNormalizeFinishReason(t *testing.T) {
	assert.Equal(t, FinishToolUse, NormalizeFinishReason("tool_calls"))
	assert.Equal(t, FinishToolUse, NormalizeFinishReason("tool_use"))
	assert.Equal(t, FinishEndTurn, NormalizeFinishReason(""))
	assert.Equal(t, FinishMaxTokens, NormalizeFinishReason("length"))
	assert.Equal(t, FinishStop, NormalizeFinishReason("stop_sequence"))
}

func TestTierTable(t *testing.T) {
	tbl := NewTierTable(map[Tier]string{TierFast: "small"}, "default")
	assert.Equal(t, "small", tbl.Resolve(TierFast))
	assert.Equal(t, "default", tbl.Resolve(TierAdvanced))

	entries := tbl.Entries()
	entries[TierFast] = "mutated"
	assert.Equal(t, "small", tbl.Resolve(TierFast))

	tier, err := ParseTier("")
	require.NoError(t, err)
	assert.Equal(t, TierStandard, tier)
	_, err = ParseTier("giant")
	assert.Error(t, err)

	assert.NotEmpty(t, AnthropicTiers().Resolve(TierAdvanced))
	assert.NotEmpty(t, OpenAITiers().Resolve(TierFast))
}

func TestResultText(t *testing.T) {
	call := core.ActionCall{ID: "1", Name: "x"}
	assert.Equal(t, "plain", ResultText(core.NewActionResult(call, "plain")))
	assert.Equal(t, `{"id":"out_1","success":true}`, ResultText(core.NewActionResult(call, map[string]any{"success": true, "id": "out_1"})))
	assert.Equal(t, `{"error":"bad","success":false}`, ResultText(core.NewActionErrorResult(call, errors.New("bad"))))
}
