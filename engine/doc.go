// Package engine is the entry point of appforge: it owns one coordination
// session and turns a user message into the ordered event sequence of a
// tree of agent loops.
//
// # Overview
//
// Chat starts the coordinator's agent loop (package flow) with the user
// message as its task. The coordinator narrates freely and delegates work
// to specialists through the delegate_task action; every delegation runs a
// nested loop for the target role whose events are forwarded, in order,
// between the parent's action-start and action-end events. Specialists run
// in forced-action mode and record their work as structured outputs.
//
//	user message
//	     │
//	     ▼
//	┌─────────────┐  delegate_task   ┌──────────────────┐
//	│ coordinator │ ───────────────▶ │ specialist loop  │ ── outputs
//	│    loop     │ ◀─────────────── │ (forced actions) │
//	└─────────────┘  summary result  └──────────────────┘
//	     │
//	     ▼
//	StreamEvent sequence … done
//
// # Termination
//
// Every loop is bounded: CoordinatorMaxIterations for the coordinator and
// SpecialistMaxIterations for delegated loops (AgentConfig.MaxIterations
// overrides both). agent-end events report why a loop ended: completed,
// exhausted (bound hit), error (model service failure) or cancelled.
//
// # Errors
//
// Chat never fails. Model failures end only the affected loop level and
// appear as one error event; invalid action calls produce error-flagged
// action results the model can react to.
//
// # Bookkeeping
//
// The engine does not persist anything itself. Session returns a deep copy
// of the session state; callers mirror the event stream into durable
// storage as they consume it (see packages stream and session).
package engine
