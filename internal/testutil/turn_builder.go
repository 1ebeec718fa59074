package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/appforge/action"
	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/model"
)

// TurnBuilder provides a fluent helper for scripting model turns in tests.
// Example:
//
//	turn := NewTurnBuilder().Text("Delegating.").Delegate("data_architect", "model the data").Build()
//
// Chain only the parts you need; the finish reason is derived by the
// scripted model unless set explicitly.
type TurnBuilder struct {
	deltas []string
	calls  []core.ActionCall
	finish string
	err    error
}

// NewTurnBuilder creates an empty builder.
func NewTurnBuilder() *TurnBuilder { return &TurnBuilder{} }

// Text appends streamed text fragments (chainable).
func (b *TurnBuilder) Text(fragments ...string) *TurnBuilder {
	b.deltas = append(b.deltas, fragments...)
	return b
}

// Call adds an action call with a raw argument payload (chainable).
func (b *TurnBuilder) Call(name, args string) *TurnBuilder {
	b.calls = append(b.calls, core.ActionCall{Name: name, Arguments: args})
	return b
}

// CallJSON adds an action call whose arguments are JSON encoded from v (chainable).
// It panics if v cannot be encoded.
func (b *TurnBuilder) CallJSON(name string, v any) *TurnBuilder {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: encode arguments of %s: %v", name, err))
	}
	return b.Call(name, string(raw))
}

// Delegate adds a delegate_task call (chainable).
func (b *TurnBuilder) Delegate(agent core.Role, task string) *TurnBuilder {
	return b.CallJSON(action.DelegateTaskName, action.DelegateArgs{Agent: string(agent), Task: task})
}

// Phase adds a set_phase call (chainable).
func (b *TurnBuilder) Phase(phase string) *TurnBuilder {
	return b.CallJSON(action.SetPhaseName, action.PhaseArgs{Phase: phase})
}

// Finish overrides the normalized finish reason (chainable).
func (b *TurnBuilder) Finish(reason string) *TurnBuilder { b.finish = reason; return b }

// Fail makes the invocation fail after the text fragments were streamed (chainable).
func (b *TurnBuilder) Fail(err error) *TurnBuilder { b.err = err; return b }

// Build constructs the model.Turn value.
func (b *TurnBuilder) Build() model.Turn {
	return model.Turn{
		Deltas:       append([]string(nil), b.deltas...),
		Calls:        append([]core.ActionCall(nil), b.calls...),
		FinishReason: b.finish,
		Err:          b.err,
	}
}
