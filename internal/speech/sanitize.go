package speech

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var urlPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)

// Sanitize prepares text for a synthesizer: URLs are replaced by the word
// "link", stylized Unicode is folded with NFKC, control characters are
// dropped, and whitespace is collapsed.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	text = urlPattern.ReplaceAllString(text, " link ")
	text = norm.NFKC.String(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}
