package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests atomic.Int64
	WatchPageFetches   atomic.Int64
	CaptionFetches     atomic.Int64
	UpstreamErrors     atomic.Int64
	MarkupErrors       atomic.Int64
	NoCaptionsErrors   atomic.Int64
	UnparsableErrors   atomic.Int64
	InternalErrors     atomic.Int64
	SingleFlightShared atomic.Int64
	CacheHits          atomic.Int64
	CacheMisses        atomic.Int64
}

// CacheStats returns current cache hit/miss counters.
func CacheStats() (hits, misses int64) {
	return metrics.CacheHits.Load(), metrics.CacheMisses.Load()
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"watch_page_fetches":  metrics.WatchPageFetches.Load(),
		"caption_fetches":     metrics.CaptionFetches.Load(),
		"upstream_errors":     metrics.UpstreamErrors.Load(),
		"markup_errors":       metrics.MarkupErrors.Load(),
		"no_captions_errors":  metrics.NoCaptionsErrors.Load(),
		"unparsable_errors":   metrics.UnparsableErrors.Load(),
		"internal_errors":     metrics.InternalErrors.Load(),
		"singleflight_shared": metrics.SingleFlightShared.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"transcript_requests", "watch_page_fetches", "caption_fetches",
		"upstream_errors", "markup_errors", "no_captions_errors", "unparsable_errors", "internal_errors",
		"singleflight_shared",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sources/ sub-package.
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrSingleFlightShared() { metrics.SingleFlightShared.Add(1) }

// IncrError counts a failure by kind.
func IncrError(kind ErrorKind) {
	switch kind {
	case KindUpstreamUnavailable:
		metrics.UpstreamErrors.Add(1)
	case KindMarkupUnrecognized:
		metrics.MarkupErrors.Add(1)
	case KindNoCaptions:
		metrics.NoCaptionsErrors.Add(1)
	case KindTranscriptUnparsable:
		metrics.UnparsableErrors.Add(1)
	case KindInternal:
		metrics.InternalErrors.Add(1)
	}
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
