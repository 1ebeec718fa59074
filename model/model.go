package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/appforge/core"
)

// Normalized finish reasons.
const (
	// FinishToolUse signals the model expects action results and intends to continue.
	FinishToolUse = "tool_use"
	// FinishEndTurn signals a natural end of the model's turn.
	FinishEndTurn = "end_turn"
	// FinishMaxTokens signals the output was truncated by the token limit.
	FinishMaxTokens = "max_tokens"
	// FinishStop signals a stop sequence or provider specific stop.
	FinishStop = "stop"
)

// NormalizeFinishReason maps provider specific stop reasons onto the
// normalized set.
func NormalizeFinishReason(reason string) string {
	switch reason {
	case "tool_use", "tool_calls", "function_call":
		return FinishToolUse
	case "end_turn", "":
		return FinishEndTurn
	case "max_tokens", "length":
		return FinishMaxTokens
	default:
		return FinishStop
	}
}

// ToolDefinition declaratively exposes a callable action to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual action exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by an agent loop.
type Request struct {
	// Role is the role the request is issued for. Providers ignore it;
	// scripted models and observers use it for routing and labelling.
	Role core.Role `json:"role,omitempty"`
	// Model is the backend model identifier. Empty selects the provider default.
	Model        string           `json:"model,omitempty"`
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	// ForceAction requires at least one action call in the response.
	ForceAction bool `json:"force_action,omitempty"`
	Stream      bool `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
//
// Partial responses carry a single text fragment. Exactly one final
// response (Partial == false) carries the complete turn: narrative text
// parts and action call parts in the order the model produced them.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // normalized, see Finish* constants
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agent loops to drive generation.
//
// Generate returns a response channel and an error channel. Implementations
// close both channels when done and send at most one error; a failed
// invocation is reported exactly once through the error channel.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ResultText renders an action result as the text handed back to a provider.
// String contents pass through unchanged; everything else is JSON encoded.
func ResultText(r core.ActionResult) string {
	if s, ok := r.Content.(string); ok {
		return s
	}
	if r.Content == nil && r.Error != "" {
		return r.Error
	}

	b, err := json.Marshal(r.Content)
	if err != nil {
		return fmt.Sprintf("%v", r.Content)
	}
	return string(b)
}
