package transcript

import (
	"fmt"
	"regexp"
)

// videoURLRE accepts youtube.com/watch?v=<id> (v may follow other query
// params) and youtu.be/<id>, with optional scheme and www./m. host prefix.
var videoURLRE = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.)?(?:youtube\.com/watch\?(?:[^#]*&)?v=|youtu\.be/)([\w-]+)`)

// ExtractVideoID pulls the video ID out of a watch or short-link URL.
func ExtractVideoID(rawURL string) (string, error) {
	m := videoURLRE.FindStringSubmatch(rawURL)
	if len(m) < 2 || m[1] == "" {
		return "", &ValidationError{Field: "url", Msg: fmt.Sprintf("invalid YouTube video URL %q (want youtube.com/watch?v=... or youtu.be/...)", rawURL)}
	}
	return m[1], nil
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
