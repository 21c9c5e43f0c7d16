package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// YouTube Innertube player response: the schema of ytInitialPlayerResponse embedded in
// watch page HTML, and its validating parse into engine.VideoMetadata.

// playerResponseRE marks the start of the player response JSON in watch page HTML.
var playerResponseRE = regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*\{`)

type playerResponse struct {
	VideoDetails *struct {
		Title            string `json:"title"`
		ShortDescription string `json:"shortDescription"`
	} `json:"videoDetails"`
	Microformat *struct {
		PlayerMicroformatRenderer *struct {
			Thumbnail *struct {
				Thumbnails []struct {
					URL string `json:"url"`
				} `json:"thumbnails"`
			} `json:"thumbnail"`
		} `json:"playerMicroformatRenderer"`
	} `json:"microformat"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer *struct {
			CaptionTracks []engine.CaptionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

func (p *playerResponse) title() string {
	if p.VideoDetails == nil || p.VideoDetails.Title == "" {
		return engine.DefaultVideoTitle
	}
	return p.VideoDetails.Title
}

func (p *playerResponse) description() string {
	if p.VideoDetails == nil {
		return ""
	}
	return p.VideoDetails.ShortDescription
}

func (p *playerResponse) thumbnailURL() string {
	if p.Microformat == nil || p.Microformat.PlayerMicroformatRenderer == nil ||
		p.Microformat.PlayerMicroformatRenderer.Thumbnail == nil {
		return ""
	}
	thumbs := p.Microformat.PlayerMicroformatRenderer.Thumbnail.Thumbnails
	if len(thumbs) == 0 {
		return ""
	}
	return thumbs[0].URL
}

func (p *playerResponse) captionTracks() []engine.CaptionTrack {
	if p.Captions == nil || p.Captions.PlayerCaptionsTracklistRenderer == nil {
		return nil
	}
	return p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
}

func (p *playerResponse) playabilityReason() string {
	if p.PlayabilityStatus == nil {
		return ""
	}
	return p.PlayabilityStatus.Reason
}

// ExtractVideoMetadata parses the embedded player response out of watch page HTML.
// Missing marker or malformed JSON is KindMarkupUnrecognized; an absent or empty track
// list is KindNoCaptions.
func ExtractVideoMetadata(html string) (engine.VideoMetadata, error) {
	raw := findPlayerResponse(html)
	if raw == nil {
		return engine.VideoMetadata{}, engine.NewError(engine.KindMarkupUnrecognized,
			errors.New("ytInitialPlayerResponse not found in watch page"))
	}

	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return engine.VideoMetadata{}, engine.NewError(engine.KindMarkupUnrecognized,
			fmt.Errorf("decode ytInitialPlayerResponse: %w", err))
	}

	tracks := pr.captionTracks()
	if len(tracks) == 0 {
		reason := pr.playabilityReason()
		slog.Debug("youtube: no caption tracks", slog.String("reason", reason))
		if reason != "" {
			return engine.VideoMetadata{}, engine.NewError(engine.KindNoCaptions,
				fmt.Errorf("captions unavailable: %s", reason))
		}
		return engine.VideoMetadata{}, engine.NewError(engine.KindNoCaptions,
			errors.New("no caption tracks in ytInitialPlayerResponse"))
	}

	return engine.VideoMetadata{
		Title:         pr.title(),
		Description:   pr.description(),
		ThumbnailURL:  pr.thumbnailURL(),
		CaptionTracks: tracks,
	}, nil
}

// findPlayerResponse returns the raw player response object.
// Script bodies are searched first; the whole document is the fallback when the
// marker sits outside a <script> element.
func findPlayerResponse(html string) []byte {
	var found []byte
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = locatePlayerResponse(s.Text())
			return found == nil
		})
	}
	if found == nil {
		found = locatePlayerResponse(html)
	}
	return found
}

func locatePlayerResponse(text string) []byte {
	loc := playerResponseRE.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	// loc[1]-1 is the opening brace matched by the pattern.
	return extractJSON([]byte(text[loc[1]-1:]))
}

// extractJSON returns the balanced JSON object at the start of b, or nil.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
