// Package core provides the foundational domain types used by appforge. It
// defines the closed set of agent roles and the data records that one
// orchestration session accumulates:
//
//   - Role / AgentStatus (identity and guarded lifecycle state machine)
//   - Session (statuses, append-only activity and output logs, phase tag)
//   - StreamEvent (the externally observable, ordered unit of engine output)
//   - ActionCall / ActionResult (structured model requests and their outcomes)
//   - Content / Part (the running transcript handed to the model)
//
// The package intentionally keeps behavior (dispatching, looping, model
// access) out of scope so that every other package can depend on it without
// cycles.
package core
