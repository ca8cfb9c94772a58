// Package speech serializes narration onto a single device.
//
// The Coordinator owns one worker goroutine and one Device. Say never
// blocks: a new request interrupts whatever is playing and replaces any
// request still waiting, so the listener only ever hears the most recent
// focus. Device failures, panics included, are logged and followed by a
// rebuild through the Factory; they never stop the worker.
package speech
