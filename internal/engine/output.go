package engine

import (
	"fmt"
	"math"
	"strings"
)

const (
	headerSeparator = "--"
	musicMarker     = "[Music]"
	// VideoSeparator joins rendered transcripts of several videos.
	VideoSeparator = "\n\n====video ended====\n\n"
)

// RenderText formats a transcript as plain text. Pure and deterministic.
func RenderText(r TranscriptResult, opts RenderOptions) string {
	lines := make([]string, 0, len(r.Segments)+7)
	lines = append(lines,
		headerSeparator,
		"Title: "+r.VideoTitle,
		"",
		"Description: "+r.Description,
		"",
		headerSeparator,
		"",
	)

	for _, seg := range r.Segments {
		if opts.FilterOutMusic && strings.TrimSpace(seg.Text) == musicMarker {
			continue
		}
		if opts.IncludeTimestamps {
			lines = append(lines, FormatTimestamp(seg.Start)+" "+seg.Text)
		} else {
			lines = append(lines, seg.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// FormatTimestamp renders seconds as [MM:SS] using floor; minutes are not capped at 60.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int64(math.Floor(seconds / 60))
	secs := int64(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("[%02d:%02d]", minutes, secs)
}

// JoinRendered combines rendered transcripts of several videos.
func JoinRendered(texts []string) string {
	return strings.Join(texts, VideoSeparator)
}
