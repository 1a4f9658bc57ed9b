// Package link recognises YouTube video links and pulls the video id out of them.
package link

import (
	"regexp"
	"strings"

	"mvdan.cc/xurls/v2"
)

const (
	videoLinkPattern = `(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([\w-]+)`
	videoIDGroup     = 4
)

var (
	// Validation is anchored at the start of the input, extraction is not.
	// Trailing text after a matching prefix is accepted by both.
	validLinkRe = regexp.MustCompile(`^` + videoLinkPattern)
	videoLinkRe = regexp.MustCompile(videoLinkPattern)

	relaxedURLRe = xurls.Relaxed()
)

// IsValid reports whether link starts with one of the known video link shapes:
// watch?v=<id>, youtu.be/<id> or embed/<id>, scheme and "www." optional.
func IsValid(link string) bool {
	return validLinkRe.MatchString(link)
}

// ExtractID returns the video id of the first video link found anywhere in link.
func ExtractID(link string) (string, bool) {
	m := videoLinkRe.FindStringSubmatch(link)
	if len(m) <= videoIDGroup || m[videoIDGroup] == "" {
		return "", false
	}

	return m[videoIDGroup], true
}

// FindCandidates returns the URL-looking substrings of a free-form text that are
// valid video links, in order of appearance and without duplicates.
func FindCandidates(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var candidates []string
	seen := make(map[string]struct{})

	for _, u := range relaxedURLRe.FindAllString(text, -1) {
		u = strings.TrimSpace(u)
		if !IsValid(u) {
			continue
		}

		if _, ok := seen[u]; ok {
			continue
		}

		seen[u] = struct{}{}
		candidates = append(candidates, u)
	}

	return candidates
}
