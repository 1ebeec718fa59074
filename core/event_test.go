package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamEvent_WireShape(t *testing.T) {
	cases := []struct {
		ev   StreamEvent
		want string
	}{
		{NewAgentStartEvent(RoleCoordinator, "Coordinator"), `{"type":"agent-start","role":"coordinator","name":"Coordinator"}`},
		{NewTextDeltaEvent(RoleUXDesigner, "hi"), `{"type":"text-delta","role":"ux_designer","content":"hi"}`},
		{NewPhaseChangeEvent(RoleCoordinator, "generation"), `{"type":"phase-change","role":"coordinator","phase":"generation"}`},
		{NewErrorEvent(RoleCoordinator, "boom"), `{"type":"error","role":"coordinator","message":"boom"}`},
		{NewDoneEvent(), `{"type":"done"}`},
		{NewAgentEndEvent(RoleQAEngineer, "QA", ReasonExhausted), `{"type":"agent-end","role":"qa_engineer","name":"QA","reason":"exhausted"}`},
	}
	for _, tc := range cases {
		b, err := json.Marshal(tc.ev)
		require.NoError(t, err)
		assert.JSONEq(t, tc.want, string(b))
	}
}

func TestStreamEvent_ActionEvents(t *testing.T) {
	call := ActionCall{ID: "c1", Name: "define_entity", Arguments: `{"name":"User"}`}
	start := NewActionStartEvent(RoleDataArchitect, call, map[string]any{"name": "User"})
	assert.Equal(t, EventActionStart, start.Type)
	assert.Equal(t, "c1", start.ActionID)

	end := NewActionEndEvent(RoleDataArchitect, NewActionErrorResult(call, errors.New("bad")))
	assert.True(t, end.IsError)
	assert.Equal(t, "define_entity", end.Action)

	out := NewStructuredOutputEvent(RoleDataArchitect, Output{ID: "out_1", Type: OutputDesign})
	require.NotNil(t, out.Output)
	assert.Equal(t, "out_1", out.Output.ID)
	assert.True(t, NewDoneEvent().IsTerminal())
}

func TestContent_Helpers(t *testing.T) {
	c := Content{Role: ContentRoleAssistant, Parts: []Part{
		TextPart{Text: "a"},
		ActionCallPart{Call: ActionCall{ID: "1", Name: "x"}},
		TextPart{Text: ""},
		TextPart{Text: "b"},
		ActionResultPart{Result: ActionResult{CallID: "1"}},
	}}
	assert.Equal(t, "ab", c.Text())
	assert.Equal(t, []string{"a", "b"}, c.TextBlocks())
	assert.Len(t, c.ActionCalls(), 1)
	assert.Len(t, c.ActionResults(), 1)
	assert.Equal(t, "hi", NewUserText("hi").Text())
}
