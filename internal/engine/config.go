package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	YouTubeBaseURL       string // watch pages are built as <base>/watch?v=<id>
	CaptionLang          string // appended to caption track URLs as lang=
	FetchTimeout         time.Duration
	ProxyURL             string  // optional; routes upstream requests through a proxy
	UpstreamRPS          float64 // 0 = unlimited
	UpstreamBurst        int
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	SingleFlight         bool         // dedupe concurrent misses for the same video
	HTTPClient           *http.Client // nil = built from FetchTimeout/ProxyURL
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		YouTubeBaseURL:       "https://www.youtube.com",
		CaptionLang:          "en",
		FetchTimeout:         15 * time.Second,
		UpstreamBurst:        1,
		CacheTTL:             24 * time.Hour,
		CacheMaxEntries:      1000,
		CacheCleanupInterval: 5 * time.Minute,
		SingleFlight:         true,
	}
}
