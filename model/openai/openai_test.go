package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/model"
)

func TestBuildMessages(t *testing.T) {
	call := core.ActionCall{ID: "call_1", Name: "delegate_task", Arguments: `{"agent":"ux_designer","task":"x"}`}
	req := model.Request{
		Instructions: "coordinate",
		Contents: []core.Content{
			core.NewUserText("build a todo app"),
			{Role: core.ContentRoleAssistant, Parts: []core.Part{core.ActionCallPart{Call: call}}},
			{Role: core.ContentRoleUser, Parts: []core.Part{
				core.ActionResultPart{Result: core.NewActionResult(call, map[string]any{"success": true})},
			}},
		},
	}

	msgs := buildMessages(req)
	require.Len(t, msgs, 4)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	require.NotNil(t, msgs[2].OfAssistant)
	require.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "call_1", msgs[2].OfAssistant.ToolCalls[0].ID)
	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "call_1", msgs[3].OfTool.ToolCallID)
}

func TestFinalResponse_OrdersCallsByIndex(t *testing.T) {
	agg := map[int64]*aggCall{
		2: {index: 2, id: "c", name: "third"},
		0: {index: 0, id: "a", name: "first"},
		1: {index: 1, id: "b", name: "second"},
	}

	resp := finalResponse("thinking", agg, "tool_calls", nil)
	assert.Equal(t, model.FinishToolUse, resp.FinishReason)
	assert.Equal(t, "thinking", resp.Content.Text())

	calls := resp.Content.ActionCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{calls[0].Name, calls[1].Name, calls[2].Name})
}

func TestBuildParams_ForceAction(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test" })
	req := model.Request{
		Tools: []model.ToolDefinition{{Type: "function", Function: model.FunctionDefinition{
			Name:       "write_file",
			Parameters: map[string]any{"type": "object"},
		}}},
		ForceAction: true,
		Model:       "gpt-4o-mini",
	}

	params := m.buildParams(req, nil)
	assert.Equal(t, "gpt-4o-mini", params.Model)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "required", params.ToolChoice.OfAuto.Value)
}
