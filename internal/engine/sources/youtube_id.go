package sources

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// videoLinkPatterns are tried in order; the first captured group is the video ID.
var videoLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtu\.be/|youtube\.com/shorts/|youtube\.com/embed/|youtube\.com/v/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/watch.*[?&]v=([a-zA-Z0-9_-]{11})`),
}

// ResolveVideoID normalizes free-form input (bare ID, youtu.be link, shorts/embed/v link,
// watch?v= link, with or without scheme) into a video ID. Pure string processing.
func ResolveVideoID(input string) (engine.VideoID, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}

	if id, ok := engine.ParseVideoID(trimmed); ok {
		return id, true
	}

	normalized := trimmed
	if !strings.HasPrefix(normalized, "http") {
		normalized = "https://" + strings.TrimPrefix(normalized, "//")
	}

	for _, re := range videoLinkPatterns {
		if m := re.FindStringSubmatch(normalized); len(m) >= 2 {
			return engine.ParseVideoID(m[1])
		}
	}

	// Last resort: any URL carrying an 11-character v parameter.
	u, err := url.Parse(normalized)
	if err != nil {
		return "", false
	}
	return engine.ParseVideoID(u.Query().Get("v"))
}

// ResolveVideoIDs resolves every input, drops the ones that do not resolve and removes
// duplicates, keeping first-seen order.
func ResolveVideoIDs(inputs []string) []engine.VideoID {
	seen := make(map[engine.VideoID]bool, len(inputs))
	ids := make([]engine.VideoID, 0, len(inputs))
	for _, in := range inputs {
		id, ok := ResolveVideoID(in)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
