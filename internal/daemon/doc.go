// Package daemon enforces single-instance execution for the long-running
// switchscan processes.
//
// The foreground app and the background listener each take an flock-based
// lock under the state directory before touching the remote, the speech
// device, or any shared state file. A second instance fails fast instead of
// fighting the first over the switch device and the heartbeat.
package daemon
