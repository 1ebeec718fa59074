package core

// AgentStatus is the lifecycle state of one role within one session.
//
// State machine:
//
//	idle ─▶ working ─▶ completed | error
//	           │  ▲
//	           ▼  │
//	         waiting          (delegated to a child, resumes when it returns)
//
// A terminal role may be started again (completed|error ─▶ working) when it
// is delegated to a second time. Any other transition is rejected.
type AgentStatus string

const (
	StatusIdle      AgentStatus = "idle"
	StatusWorking   AgentStatus = "working"
	StatusWaiting   AgentStatus = "waiting"
	StatusCompleted AgentStatus = "completed"
	StatusError     AgentStatus = "error"
)

var statusTransitions = map[AgentStatus][]AgentStatus{
	StatusIdle:      {StatusWorking},
	StatusWorking:   {StatusWaiting, StatusCompleted, StatusError},
	StatusWaiting:   {StatusWorking},
	StatusCompleted: {StatusWorking},
	StatusError:     {StatusWorking},
}

// IsTerminal reports whether the status ends a loop (completed or error).
func (s AgentStatus) IsTerminal() bool { return s == StatusCompleted || s == StatusError }

// IsActive reports whether the role is currently on the delegation path.
func (s AgentStatus) IsActive() bool { return s == StatusWorking || s == StatusWaiting }

// CanTransitionTo reports whether next is a legal successor of s.
func (s AgentStatus) CanTransitionTo(next AgentStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
