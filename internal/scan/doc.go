// Package scan implements two-switch scanning navigation.
//
// Gesture turns raw press and release edges of the ADVANCE and ACTIVATE
// switches into actions using hold thresholds and a per-switch cooldown.
// Engine applies actions to a Screen made of blocks, item collections, and
// modal overlays, emitting exactly one narration per focus change. Anchor
// pins the focused item to a fixed viewport line once it crosses it. Loop is
// the single goroutine that owns all of this state.
//
// Engine methods are not safe for concurrent use; reach them through
// Loop.Do.
package scan
