// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when scripting model turns, constructing sessions
// and asserting on StreamEvent sequences. They are not intended for
// production usage.
package testutil
