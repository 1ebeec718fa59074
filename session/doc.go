// Package session persists what a chat produced: the ordered StreamEvents
// of every session and the latest snapshot of its state.
//
// The engine itself never calls out to storage. Callers mirror the event
// stream into a Store as they consume it, typically by adding a Sink to
// stream.Tee. InMemoryStore serves tests and ephemeral servers; durable
// backends live in sub-packages (see session/sqlite) and only the wiring
// layer decides which implementation to instantiate.
package session
