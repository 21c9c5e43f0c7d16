package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// --- json3 caption payload types ---

type json3Payload struct {
	Events *[]json3Event `json:"events"`
}

type json3Event struct {
	TStartMs    float64    `json:"tStartMs"`
	DDurationMs float64    `json:"dDurationMs"`
	Segs        []json3Seg `json:"segs"`
}

type json3Seg struct {
	UTF8 string `json:"utf8"`
}

// NormalizeCaptionPayload parses a json3 event stream into ordered segments.
// Events without text are dropped; order is kept exactly as received.
// A payload of the wrong shape, or one that yields no segments, is KindTranscriptUnparsable.
func NormalizeCaptionPayload(payload []byte) ([]engine.Segment, error) {
	var p json3Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, engine.NewError(engine.KindTranscriptUnparsable, fmt.Errorf("decode caption payload: %w", err))
	}
	if p.Events == nil {
		return nil, engine.NewError(engine.KindTranscriptUnparsable, errors.New("caption payload has no events"))
	}

	segments := make([]engine.Segment, 0, len(*p.Events))
	for _, ev := range *p.Events {
		text := eventText(ev.Segs)
		if text == "" {
			continue
		}
		segments = append(segments, engine.Segment{
			Text:     text,
			Start:    msToSeconds(ev.TStartMs),
			Duration: msToSeconds(ev.DDurationMs),
		})
	}

	if len(segments) == 0 {
		return nil, engine.NewError(engine.KindTranscriptUnparsable, errors.New("no usable caption text"))
	}
	return segments, nil
}

// eventText joins the trimmed non-empty sub-segment texts with single spaces.
func eventText(segs []json3Seg) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.UTF8); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// msToSeconds converts milliseconds to seconds rounded to 3 decimals (half away from zero).
func msToSeconds(ms float64) float64 {
	if ms <= 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return 0
	}
	return math.Round(ms) / 1000
}
