package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/model"
)

func TestBuildMessages_ToolResultsInUserTurn(t *testing.T) {
	call := core.ActionCall{ID: "toolu_1", Name: "define_entity", Arguments: `{"name":"User"}`}
	contents := []core.Content{
		core.NewUserText("design a CRM"),
		{Role: core.ContentRoleAssistant, Parts: []core.Part{
			core.TextPart{Text: "defining"},
			core.ActionCallPart{Call: call},
		}},
		{Role: core.ContentRoleUser, Parts: []core.Part{
			core.ActionResultPart{Result: core.NewActionResult(call, map[string]any{"success": true})},
		}},
	}

	msgs := buildMessages(contents)
	require.Len(t, msgs, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].Content, 2)
	require.NotNil(t, msgs[1].Content[1].OfToolUse)
	assert.Equal(t, "toolu_1", msgs[1].Content[1].OfToolUse.ID)

	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
	require.NotNil(t, msgs[2].Content[0].OfToolResult)
	assert.Equal(t, "toolu_1", msgs[2].Content[0].OfToolResult.ToolUseID)
}

func TestBuildParams_ForceAction(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "test" })
	req := model.Request{
		Model:        "claude-3-5-haiku-latest",
		Instructions: "be brief",
		Contents:     []core.Content{core.NewUserText("hi")},
		Tools: []model.ToolDefinition{{Type: "function", Function: model.FunctionDefinition{
			Name:        "write_test",
			Description: "Write a test",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}, "required": []any{"title"}},
		}}},
		ForceAction: true,
	}

	params := m.buildParams(req)
	assert.Equal(t, anthropic.Model("claude-3-5-haiku-latest"), params.Model)
	require.Len(t, params.System, 1)
	assert.Equal(t, "be brief", params.System[0].Text)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, []string{"title"}, params.Tools[0].OfTool.InputSchema.Required)
	assert.NotNil(t, params.ToolChoice.OfAny)

	req.ForceAction = false
	req.Model = ""
	params = m.buildParams(req)
	assert.Nil(t, params.ToolChoice.OfAny)
	assert.Equal(t, anthropic.ModelClaudeSonnet4_0, params.Model)
}

func TestInfo(t *testing.T) {
	info := NewModel().Info()
	assert.Equal(t, "anthropic", info.Provider)
	assert.True(t, info.SupportsTools)
}
