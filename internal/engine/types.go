package engine

import "regexp"

// --- Core transcript types ---

// DefaultVideoTitle is used when the watch page carries no title.
const DefaultVideoTitle = "Untitled Video"

var videoIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// VideoID is a validated 11-character YouTube video identifier.
// Case-sensitive. Resolvers construct values only through ParseVideoID.
type VideoID string

// ParseVideoID accepts s only if it is exactly a bare 11-character identifier.
func ParseVideoID(s string) (VideoID, bool) {
	if !videoIDRe.MatchString(s) {
		return "", false
	}
	return VideoID(s), true
}

func (id VideoID) String() string { return string(id) }

// CaptionTrack is one entry of the upstream caption track list.
type CaptionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind,omitempty"` // "asr" = auto-generated
}

// VideoMetadata is the validated subset of the watch page player response.
type VideoMetadata struct {
	Title         string
	Description   string
	ThumbnailURL  string
	CaptionTracks []CaptionTrack // never empty when returned without error
}

// Segment is one timed line of a transcript. Times are seconds with millisecond precision.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// TranscriptResult is the unit of caching: one entry per VideoID.
type TranscriptResult struct {
	VideoTitle  string    `json:"videoTitle"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Segments    []Segment `json:"transcript"`
}

// Valid reports whether r is complete enough to cache or serve.
func (r TranscriptResult) Valid() bool {
	if r.VideoTitle == "" || len(r.Segments) == 0 {
		return false
	}
	for _, s := range r.Segments {
		if s.Text == "" || s.Start < 0 || s.Duration < 0 {
			return false
		}
	}
	return true
}

// RenderOptions controls RenderText.
type RenderOptions struct {
	IncludeTimestamps bool
	FilterOutMusic    bool
}
