// Package listener implements the background direct message listener.
//
// The listener runs unattended while the switch-driven app is closed. Each
// direct message is recorded once in a sqlite store, remembered in the peer
// index, forwarded to the mirror channel, and announced through the speech
// coordinator at most once per author per window. While the foreground
// heartbeat is fresh the listener keeps the peer index current but stays
// quiet, leaving narration and mirroring to the app.
package listener
