package listener

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"switchscan/internal/chatsync"
	"switchscan/internal/speech"
)

const fallbackName = "user"

// displayName folds stylized Unicode in a remote name and drops control
// characters, keeping whitespace controls as spaces, so the name reads the same in the mirror and the peer index.
func displayName(raw string) string {
	folded := norm.NFKC.String(raw)
	folded = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, folded)
	name := strings.Join(strings.Fields(folded), " ")
	if name == "" {
		return fallbackName
	}
	return name
}

// firstWords returns at most n words of the sanitized text.
func firstWords(text string, n int) string {
	words := strings.Fields(speech.Sanitize(text))
	if n > 0 && len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// bridgeBody renders message content with one marker per attachment.
func bridgeBody(msg chatsync.RemoteMessage) string {
	var parts []string
	if text := strings.TrimSpace(msg.Content); text != "" {
		parts = append(parts, text)
	}
	for _, a := range msg.Attachments {
		if a.URL != "" {
			parts = append(parts, "[attachment: "+a.URL+"]")
		}
	}
	if len(parts) == 0 {
		return "[no text]"
	}
	return strings.Join(parts, " ")
}

func directAnnouncement(name, content string, words int) string {
	return strings.TrimSpace("New Message from " + name + ": " + firstWords(content, words))
}

func channelAnnouncement(name, channel, content string, words int) string {
	return strings.TrimSpace("Message from " + name + " in " + channel + ": " + firstWords(content, words))
}
