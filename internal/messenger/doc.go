// Package messenger is the switch-driven chat client: it builds the scan
// screens over the thread store, narrates incoming activity, and owns the
// process lifecycle that ties the synchronizer, the speech coordinator,
// the scan loop, and the switch device together.
//
// Screen and collection code runs only on the scan loop goroutine. Network
// work started from a screen (sending, reacting, backfilling) runs as a
// synchronizer task and reports back through speech.
package messenger
