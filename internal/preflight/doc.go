// Package preflight provides readiness checks for the filesystem paths,
// switch device, and credentials switchscan depends on.
//
// Startup logs a warning for each failed check; the CLI "switchscan status"
// command renders the same checks in its Preflight section. No check is
// fatal here: callers decide which failures stop a run.
package preflight
