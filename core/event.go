package core

// EventType is the discriminant of a StreamEvent.
type EventType string

const (
	EventTextDelta        EventType = "text-delta"
	EventAgentStart       EventType = "agent-start"
	EventAgentEnd         EventType = "agent-end"
	EventActionStart      EventType = "action-start"
	EventActionEnd        EventType = "action-end"
	EventPhaseChange      EventType = "phase-change"
	EventStructuredOutput EventType = "structured-output"
	EventError            EventType = "error"
	EventDone             EventType = "done"
)

// TerminationReason explains why an agent loop ended. It is attached to
// agent-end events so observers can tell a natural finish from a truncation.
type TerminationReason string

const (
	// ReasonCompleted means the model stopped requesting actions.
	ReasonCompleted TerminationReason = "completed"
	// ReasonExhausted means the iteration bound was hit.
	ReasonExhausted TerminationReason = "exhausted"
	// ReasonError means a model service failure ended the loop early.
	ReasonError TerminationReason = "error"
	// ReasonCancelled means the consumer stopped pulling events.
	ReasonCancelled TerminationReason = "cancelled"
)

// StreamEvent is the wire-level output unit of the engine: a tagged union
// discriminated by Type. Only the fields relevant to a given Type are set;
// consumers treat absent fields as "not applicable".
//
// Events deliberately carry no timestamps or random identifiers so that a
// fixed sequence of model responses always replays to the same bytes.
type StreamEvent struct {
	Type     EventType         `json:"type"`
	Role     Role              `json:"role,omitempty"`
	Name     string            `json:"name,omitempty"`
	Content  string            `json:"content,omitempty"`
	Action   string            `json:"action,omitempty"`
	ActionID string            `json:"actionId,omitempty"`
	Input    any               `json:"input,omitempty"`
	Result   any               `json:"result,omitempty"`
	IsError  bool              `json:"isError,omitempty"`
	Phase    string            `json:"phase,omitempty"`
	Output   *Output           `json:"output,omitempty"`
	Message  string            `json:"message,omitempty"`
	Reason   TerminationReason `json:"reason,omitempty"`
}

// NewAgentStartEvent announces that role began a loop.
func NewAgentStartEvent(role Role, name string) StreamEvent {
	return StreamEvent{Type: EventAgentStart, Role: role, Name: name}
}

// NewAgentEndEvent announces that role finished a loop for the given reason.
func NewAgentEndEvent(role Role, name string, reason TerminationReason) StreamEvent {
	return StreamEvent{Type: EventAgentEnd, Role: role, Name: name, Reason: reason}
}

// NewTextDeltaEvent carries one narrative fragment as it arrives from the model.
func NewTextDeltaEvent(role Role, content string) StreamEvent {
	return StreamEvent{Type: EventTextDelta, Role: role, Content: content}
}

// NewActionStartEvent announces dispatch of an action call.
func NewActionStartEvent(role Role, call ActionCall, input any) StreamEvent {
	return StreamEvent{Type: EventActionStart, Role: role, Action: call.Name, ActionID: call.ID, Input: input}
}

// NewActionEndEvent announces that an action call received its result.
func NewActionEndEvent(role Role, result ActionResult) StreamEvent {
	return StreamEvent{Type: EventActionEnd, Role: role, Action: result.Name, ActionID: result.CallID, Result: result.Content, IsError: result.IsError}
}

// NewPhaseChangeEvent announces a session phase transition.
func NewPhaseChangeEvent(role Role, phase string) StreamEvent {
	return StreamEvent{Type: EventPhaseChange, Role: role, Phase: phase}
}

// NewStructuredOutputEvent announces a recorded Output.
func NewStructuredOutputEvent(role Role, out Output) StreamEvent {
	return StreamEvent{Type: EventStructuredOutput, Role: role, Output: &out}
}

// NewErrorEvent reports a failure as data within the event sequence.
func NewErrorEvent(role Role, message string) StreamEvent {
	return StreamEvent{Type: EventError, Role: role, Message: message}
}

// NewDoneEvent terminates a chat sequence.
func NewDoneEvent() StreamEvent { return StreamEvent{Type: EventDone} }

// IsTerminal reports whether the event ends the chat sequence.
func (e StreamEvent) IsTerminal() bool { return e.Type == EventDone }
