// Package thread holds the conversation model shared by the synchronizer and
// the scanning UI.
//
// Store is the single owned container for every thread, the process-wide
// seen-id set, unread markers, and reaction aggregates. The synchronizer is
// its only writer for remote data; readers take snapshot copies so iteration
// never observes a half-applied mutation.
package thread
