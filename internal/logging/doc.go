// Package logging assembles structured slog loggers for switchscan.
//
// It owns the console and JSON handlers, the level and output plumbing, and
// context helpers that tag log lines with the active thread, session, and
// correlation identifiers. Narration never goes through these loggers; the
// speech coordinator is the only audible output.
package logging
