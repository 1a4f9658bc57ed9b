// Package markdown prepares text for Telegram MarkdownV2 messages.
package markdown

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLen is the Telegram limit for a single text message.
const MaxMessageLen = 4096

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `\_*[]()~` + "`" + `>#+-=|{}.!`

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var mdV2Lookup = func() [256]bool {
	var m [256]bool
	for i := range len(mdV2SpecialChars) {
		m[mdV2SpecialChars[i]] = true
	}
	return m
}()

func EscapeV2(input string) string {
	charsToEscape := 0

	for i := range len(input) {
		if mdV2Lookup[input[i]] {
			charsToEscape++
		}
	}

	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if mdV2Lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// Split breaks already escaped text into chunks of at most limit bytes.
// It prefers paragraph, line and word boundaries and never cuts a UTF-8
// sequence or separates an escape backslash from the character it escapes.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLen
	}

	var chunks []string

	for len(text) > limit {
		cut := splitPoint(text, limit)

		if chunk := strings.TrimRight(text[:cut], " \n"); chunk != "" {
			chunks = append(chunks, chunk)
		}

		text = strings.TrimLeft(text[cut:], " \n")
	}

	if text != "" {
		chunks = append(chunks, text)
	}

	return chunks
}

func splitPoint(text string, limit int) int {
	window := text[:limit]

	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(window, sep); i > 0 {
			return i + len(sep)
		}
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	if cut > 0 && escapedAt(text, cut) {
		cut--
	}

	if cut == 0 {
		_, size := utf8.DecodeRuneInString(text)
		return size
	}

	return cut
}

// escapedAt reports whether text[i] is preceded by an unpaired backslash.
func escapedAt(text string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && text[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
