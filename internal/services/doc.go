// Package services defines shared utilities consumed by the synchronizer,
// speech device, and listener integrations.
//
// Key responsibilities:
//   - Context helpers that stamp thread references, session identifiers, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the transport, capability, device, and data kinds the runtime
//     handles differently.
//
// Subpackages hold the concrete integrations (Discord gateway, speech
// binaries) behind the small interfaces their consumers declare.
package services
