// Package flow implements the agent execution loop and the action
// dispatcher.
//
// A Loop drives one role: it repeatedly invokes the model with the role's
// instructions, allowed actions and running transcript, forwards narrative
// fragments as they stream in, dispatches every action call and feeds the
// results back until the model stops requesting actions or the iteration
// bound is hit. Delegation actions recurse into a nested Loop for the target
// role on the same goroutine, so the child's events are emitted through the
// same Emitter strictly between the parent's action-start and action-end.
package flow

import (
	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/model"
	"github.com/hupe1980/appforge/registry"
)

// Emitter delivers one event to the consumer. A non-nil error means the
// consumer stopped pulling; the loop then stops invoking the model.
type Emitter func(core.StreamEvent) error

// LoopSpec parameterizes one run of the agent execution loop.
type LoopSpec struct {
	Role    core.Role
	Task    string
	Context string
	// MaxIterations is the hard cap on model invocations for this run.
	MaxIterations int
	// ForceAction selects specialist mode: every model turn must contain at
	// least one action call. The coordinator runs with free narration.
	ForceAction bool
}

// Result summarizes a finished loop.
type Result struct {
	// Narrative is the text this role produced itself (children excluded).
	Narrative  string
	Iterations int
	Reason     core.TerminationReason
}

// TurnState is the per-iteration input to request processors.
type TurnState struct {
	Config     registry.AgentConfig
	Spec       LoopSpec
	Phase      string
	Iteration  int
	Transcript []core.Content
}

// RequestProcessor populates part of the model request before each invocation.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the request before model execution.
	ProcessRequest(state *TurnState, req *model.Request) error
}
