package flow

import (
	"fmt"
	"strings"

	"github.com/hupe1980/appforge/action"
	internalutil "github.com/hupe1980/appforge/internal/util"
	"github.com/hupe1980/appforge/model"
)

// InstructionsProcessor renders the role's instruction template and appends
// the delegation context.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets req.Instructions.
func (p *InstructionsProcessor) ProcessRequest(state *TurnState, req *model.Request) error {
	instructions, err := internalutil.RenderTemplate(state.Config.Instructions, map[string]any{
		"role":    string(state.Config.Role),
		"name":    state.Config.Name,
		"phase":   state.Phase,
		"task":    state.Spec.Task,
		"context": state.Spec.Context,
	})
	if err != nil {
		return fmt.Errorf("failed to render instructions: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(instructions))
	if c := strings.TrimSpace(state.Spec.Context); c != "" {
		sb.WriteString("\n\n## Context\n")
		sb.WriteString(c)
	}

	req.Instructions = sb.String()
	return nil
}

// ActionsProcessor exposes the role's allowed action schemas as tools.
type ActionsProcessor struct{}

// NewActionsProcessor creates a new actions processor.
func NewActionsProcessor() *ActionsProcessor { return &ActionsProcessor{} }

// Name returns the processor's identifier.
func (p *ActionsProcessor) Name() string { return "actions" }

// ProcessRequest sets req.Tools and the forced-action flag.
func (p *ActionsProcessor) ProcessRequest(state *TurnState, req *model.Request) error {
	req.Tools = ToolDefinitions(state.Config.Actions)
	// Forcing an action without any action to call would make every turn fail.
	req.ForceAction = state.Spec.ForceAction && len(req.Tools) > 0
	return nil
}

// ToolDefinitions converts an action set into model tool definitions.
func ToolDefinitions(set *action.Set) []model.ToolDefinition {
	schemas := set.Schemas()
	if len(schemas) == 0 {
		return nil
	}

	defs := make([]model.ToolDefinition, 0, len(schemas))
	for _, s := range schemas {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.JSONSchema(),
			},
		})
	}
	return defs
}

// ContentsProcessor copies the running transcript into the request.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest sets req.Contents.
func (p *ContentsProcessor) ProcessRequest(state *TurnState, req *model.Request) error {
	if len(state.Transcript) == 0 {
		return fmt.Errorf("empty transcript")
	}
	req.Contents = append(req.Contents[:0:0], state.Transcript...)
	return nil
}

// DefaultProcessors returns the processor chain used by every loop.
func DefaultProcessors() []RequestProcessor {
	return []RequestProcessor{
		NewInstructionsProcessor(),
		NewActionsProcessor(),
		NewContentsProcessor(),
	}
}
