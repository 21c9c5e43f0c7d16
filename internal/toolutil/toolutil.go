// Package toolutil provides shared helpers for the go_transcript HTTP and MCP surfaces.
package toolutil

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// TranscriptSource produces a transcript for one video. *sources.Pipeline implements it.
type TranscriptSource interface {
	Transcript(ctx context.Context, id engine.VideoID, ignoreCache bool) (engine.TranscriptResult, error)
}

// VideoTranscript is the outcome for one video of a fan-out. Err != nil means no result.
type VideoTranscript struct {
	ID     engine.VideoID
	Result engine.TranscriptResult
	Err    error
}

// FetchTranscriptsParallel runs the pipeline for every id concurrently and waits for all.
// A failure affects only its own entry. Results keep the order of ids.
func FetchTranscriptsParallel(ctx context.Context, src TranscriptSource, ids []engine.VideoID, ignoreCache bool) []VideoTranscript {
	out := make([]VideoTranscript, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id engine.VideoID) {
			defer wg.Done()
			r, err := src.Transcript(ctx, id, ignoreCache)
			out[i] = VideoTranscript{ID: id, Result: r, Err: err}
		}(i, id)
	}
	wg.Wait()
	return out
}

// Succeeded filters a fan-out down to the videos that produced a transcript.
func Succeeded(results []VideoTranscript) []VideoTranscript {
	ok := make([]VideoTranscript, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			ok = append(ok, r)
		}
	}
	return ok
}

// EncodeHeader base64-encodes a header value so non-ASCII titles survive transport.
func EncodeHeader(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
