// Package logs reads the per-role log files written by the app and the
// background listener.
//
// CurrentPath names the stable pointer each process refreshes at startup,
// Last returns the trailing lines of a file with bounded memory, and Follow
// streams appended lines until its context ends, reopening the pointer when
// a new process run replaces it.
package logs
