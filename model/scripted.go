package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/appforge/core"
)

// Turn is one scripted model response.
type Turn struct {
	// Deltas are streamed as partial responses; their concatenation is the
	// narrative text of the final response.
	Deltas []string
	// Calls are the action calls of the final response. Calls without an ID
	// receive a deterministic one.
	Calls []core.ActionCall
	// FinishReason defaults to tool_use when Calls is non-empty, else end_turn.
	FinishReason string
	// Err fails the invocation after Deltas were streamed.
	Err error
}

// Text is a convenience constructor for a narrative-only turn.
func Text(s string) Turn { return Turn{Deltas: []string{s}} }

// Call is a convenience constructor for a turn that issues one action call.
func Call(name, arguments string) Turn {
	return Turn{Calls: []core.ActionCall{{Name: name, Arguments: arguments}}}
}

// Fail is a convenience constructor for a failing invocation.
func Fail(err error) Turn { return Turn{Err: err} }

// ScriptedModel replays fixed turns per role. It is the deterministic
// backend used by tests and by offline runs of the CLI.
//
// Each role consumes its own queue of turns; roles without a queue use the
// default queue. When a queue is exhausted its last turn repeats, so a single
// turn scripts a model that always answers the same way. A role without any
// script ends its turn with no text.
type ScriptedModel struct {
	mu       sync.Mutex
	scripts  map[core.Role][]Turn
	fallback []Turn
	calls    map[core.Role]int
	requests []Request
}

// NewScriptedModel creates an empty ScriptedModel.
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{
		scripts: make(map[core.Role][]Turn),
		calls:   make(map[core.Role]int),
	}
}

// On appends turns to the queue of role.
func (m *ScriptedModel) On(role core.Role, turns ...Turn) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[role] = append(m.scripts[role], turns...)
	return m
}

// Default appends turns to the queue used by roles without their own script.
func (m *ScriptedModel) Default(turns ...Turn) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = append(m.fallback, turns...)
	return m
}

// Calls returns how many times role invoked the model.
func (m *ScriptedModel) Calls(role core.Role) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[role]
}

// Requests returns every request received so far, in order.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]Request, len(m.requests))
	copy(res, m.requests)
	return res
}

func (m *ScriptedModel) next(req Request) (Turn, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	n := m.calls[req.Role]
	m.calls[req.Role] = n + 1

	queue, ok := m.scripts[req.Role]
	if !ok {
		queue = m.fallback
	}
	if len(queue) == 0 {
		return Turn{}, n + 1
	}
	if n >= len(queue) {
		return queue[len(queue)-1], n + 1
	}
	return queue[n], n + 1
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, len(req.Contents)+1)
	errCh := make(chan error, 1)

	turn, n := m.next(req)

	go func() {
		defer close(respCh)
		defer close(errCh)

		send := func(r Response) bool {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return false
			case respCh <- r:
				return true
			}
		}

		var text strings.Builder
		for _, d := range turn.Deltas {
			text.WriteString(d)
			if !req.Stream {
				continue
			}
			if !send(Response{Partial: true, Content: core.Content{
				Role:  core.ContentRoleAssistant,
				Parts: []core.Part{core.TextPart{Text: d}},
			}}) {
				return
			}
		}

		if turn.Err != nil {
			errCh <- turn.Err
			return
		}

		parts := make([]core.Part, 0, len(turn.Calls)+1)
		if text.Len() > 0 {
			parts = append(parts, core.TextPart{Text: text.String()})
		}
		for i, c := range turn.Calls {
			if c.ID == "" {
				c.ID = fmt.Sprintf("call_%s_%d_%d", req.Role, n, i+1)
			}
			parts = append(parts, core.ActionCallPart{Call: c})
		}

		finish := turn.FinishReason
		if finish == "" {
			finish = FinishEndTurn
			if len(turn.Calls) > 0 {
				finish = FinishToolUse
			}
		}

		send(Response{
			ID:           fmt.Sprintf("scripted_%s_%d", req.Role, n),
			Content:      core.Content{Role: core.ContentRoleAssistant, Parts: parts},
			FinishReason: finish,
		})
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info {
	return Info{Name: "scripted", Provider: "scripted", SupportsTools: true}
}
