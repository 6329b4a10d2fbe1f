package jobs

import (
	"regexp"
	"strings"
)

// linkNoise matches every URL fragment that is not part of a job key.
var linkNoise = regexp.MustCompile(`https://|www\.|music\.youtube\.com/|youtube\.com/|youtu\.be/|watch\?v=|&feature=share|playlist\?list=`)

// Sanitize reduces a YouTube or YouTube Music link to its job key: the
// video or playlist ID with scheme, host, path markers and trailing query
// parameters removed. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		next := linkNoise.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	key, _, _ := strings.Cut(s, "&")
	return key
}
