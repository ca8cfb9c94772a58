// Package ipc exposes the running app over JSON-RPC on a Unix domain socket
// and ships the matching client used by the CLI.
//
// Every request carries a RequestID that the client fills with a fresh UUID
// when empty. The server logs it as the correlation id so a CLI invocation
// can be matched to the app's log lines.
package ipc
