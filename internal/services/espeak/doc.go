// Package espeak drives command-line speech synthesizers (espeak-ng, espeak,
// and speech-dispatcher's spd-say) as a speech.Device. Each utterance runs
// one process; cancelling its context kills the process, which is how
// playback is interrupted.
package espeak
