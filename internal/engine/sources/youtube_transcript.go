package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"golang.org/x/sync/singleflight"
)

// YouTube transcript pipeline:
//   cache check → watch page → ytInitialPlayerResponse → first caption track →
//   json3 payload → segments → cache write.

// Upstream fetches the raw documents. *engine.Fetcher implements it.
type Upstream interface {
	FetchWatchPage(ctx context.Context, id engine.VideoID) (string, error)
	FetchCaptionPayload(ctx context.Context, trackURL string) ([]byte, error)
}

// Pipeline drives one video through fetch, extract, normalize and caching.
// Safe for concurrent use; the cache is the only shared mutable state.
type Pipeline struct {
	upstream     Upstream
	cache        *engine.Cache // nil = no caching
	singleFlight bool
	group        singleflight.Group
}

// NewPipeline builds a pipeline. With singleFlight set, concurrent cache misses for the
// same video share one upstream extraction instead of racing.
func NewPipeline(upstream Upstream, cache *engine.Cache, singleFlight bool) *Pipeline {
	return &Pipeline{upstream: upstream, cache: cache, singleFlight: singleFlight}
}

// Transcript returns the transcript for id, from cache unless ignoreCache is set.
// Errors are *engine.TranscriptError; use engine.KindOf to classify them.
func (p *Pipeline) Transcript(ctx context.Context, id engine.VideoID, ignoreCache bool) (engine.TranscriptResult, error) {
	engine.IncrTranscriptRequests()

	if !ignoreCache {
		if r, ok := p.cache.Get(ctx, id); ok {
			return r, nil
		}
	}

	if !p.singleFlight {
		return p.build(ctx, id)
	}

	// The flight is shared by every waiter, so it must not inherit one caller's
	// cancellation. FETCH_TIMEOUT bounds it; each caller still stops waiting on its own ctx.
	ch := p.group.DoChan(string(id), func() (any, error) {
		return p.build(context.WithoutCancel(ctx), id)
	})
	select {
	case <-ctx.Done():
		return engine.TranscriptResult{}, engine.NewError(engine.KindUpstreamUnavailable,
			fmt.Errorf("wait for shared fetch: %w", ctx.Err()))
	case res := <-ch:
		if res.Shared {
			engine.IncrSingleFlightShared()
		}
		if res.Err != nil {
			return engine.TranscriptResult{}, res.Err
		}
		return res.Val.(engine.TranscriptResult), nil
	}
}

// build runs the uncached extraction and writes the cache on success only.
func (p *Pipeline) build(ctx context.Context, id engine.VideoID) (engine.TranscriptResult, error) {
	var result engine.TranscriptResult
	err := engine.TrackOperation(ctx, "youtube_transcript", func(ctx context.Context) error {
		html, err := p.upstream.FetchWatchPage(ctx, id)
		if err != nil {
			return err
		}

		meta, err := ExtractVideoMetadata(html)
		if err != nil {
			return err
		}

		// Only the first track is used; no language negotiation.
		track := meta.CaptionTracks[0]
		slog.Debug("youtube: caption track selected",
			slog.String("id", string(id)), slog.String("lang", track.LanguageCode), slog.String("kind", track.Kind))

		payload, err := p.upstream.FetchCaptionPayload(ctx, track.BaseURL)
		if err != nil {
			return err
		}

		segments, err := NormalizeCaptionPayload(payload)
		if err != nil {
			return err
		}

		result = engine.TranscriptResult{
			VideoTitle:  meta.Title,
			Description: meta.Description,
			ImageURL:    meta.ThumbnailURL,
			Segments:    segments,
		}
		return nil
	})
	if err != nil {
		kind := engine.KindOf(err)
		engine.IncrError(kind)
		slog.Warn("youtube: transcript failed",
			slog.String("id", string(id)), slog.String("kind", kind.String()), slog.Any("error", err))
		return engine.TranscriptResult{}, err
	}

	// A finished extraction is cached even if the caller has gone away.
	p.cache.Set(context.WithoutCancel(ctx), id, result)
	slog.Info("youtube: transcript built", slog.String("id", string(id)), slog.Int("segments", len(result.Segments)))
	return result, nil
}
