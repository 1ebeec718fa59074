// Package runner hosts many chat sessions in one process.
//
// An engine.Engine owns exactly one session. The Runner keeps one engine per
// session id, mirrors every chat into a session.Store (and any additional
// sinks such as a NATS publisher), bounds the number of chats running at the
// same time and lets callers cancel a running chat by its run id.
//
// # Responsibilities
//   - Engine lifecycle: created on first use of a session id, reused after
//   - Persistence: events appended as consumed, snapshot saved on done
//   - Backpressure: MaxConcurrentRuns chats at a time across all sessions
//   - Cancellation: Cancel(runID) stops the chat like a consumer would
//
// Conversation binds a Runner to one session id and is what transports
// (the websocket handler, the CLI) drive.
package runner
