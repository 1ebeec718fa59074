// Package action implements the structured action subsystem: the typed,
// schema-validated requests a model emits instead of (or alongside) free
// narrative text.
//
// Every action belongs to one of three kinds:
//
//	delegate  spawn a nested agent loop for another role (delegate_task)
//	phase     change the session phase tag (set_phase)
//	output    record a durable structured Output (define_entity, write_file, …)
//
// A Schema describes one action: its name, description, kind, JSON parameter
// schema and, for output actions, the Output type and format it produces.
// A Set is the ordered collection of schemas a role is allowed to call.
//
// Argument payloads arrive as raw JSON produced by a model. ParseArguments
// decodes them, attempting a repair of malformed JSON first, and
// Schema.Validate checks the decoded payload. All failures are reported as
// *Error values carrying a stable Code so that callers can turn them into
// error-flagged action results without string matching.
package action
