// Package discord adapts a discordgo session to the chatsync.Remote
// contract: gateway callbacks become Handler calls, REST results are
// converted to plain values with numeric ids, and failures are tagged with
// the services error sentinels.
package discord
