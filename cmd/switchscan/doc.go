// Package main hosts the switchscan CLI entrypoint and command graph.
//
// `switchscan run` starts the switch-driven messenger and `switchscan listen`
// starts the background direct message listener. The remaining commands talk
// to a running app over its control socket (status, threads, say, halt,
// signal, stop) or inspect the local machine (devices, config).
//
// Keep this package thin: behavior lives in the internal packages and is
// surfaced here as commands and flags.
package main
