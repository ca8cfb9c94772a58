// Package chatsync mirrors a remote chat service into a thread.Store.
//
// The Synchronizer connects through a Remote, warm-loads the configured
// channels, indexes direct message peers, and routes live messages and
// reaction changes into the store. Every state change is announced on an
// events.Bus. Connect failures caused by a missing message-content
// capability downgrade once and continue in degraded mode.
package chatsync
