package transcriptserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/sources"
	"github.com/anatolykoptev/go_transcript/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TranscriptInput is the youtube_transcript tool input.
type TranscriptInput struct {
	URLs           []string `json:"urls" jsonschema:"YouTube links or bare 11-character video IDs (watch, youtu.be, shorts, embed, /v/)"`
	Timestamps     bool     `json:"timestamps,omitempty" jsonschema:"Prefix each caption line with [MM:SS]"`
	FilterOutMusic bool     `json:"filter_out_music,omitempty" jsonschema:"Drop [Music] caption lines"`
	IgnoreCache    bool     `json:"ignore_cache,omitempty" jsonschema:"Skip the cache read and fetch fresh from YouTube"`
}

// TranscriptVideo is one video in the tool output. Error is set when the video failed.
type TranscriptVideo struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Segments int    `json:"segments,omitempty"`
	Error    string `json:"error,omitempty"`
}

// TranscriptOutput carries the rendered text of all successful videos plus per-video status.
type TranscriptOutput struct {
	Text   string            `json:"text"`
	Videos []TranscriptVideo `json:"videos"`
}

func registerYouTubeTranscript(server *mcp.Server, src toolutil.TranscriptSource) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the caption transcript of one or more YouTube videos as plain text. Accepts watch, youtu.be, shorts, embed and /v/ links or bare video IDs. Returns the title and description header followed by one caption line per segment, optionally with [MM:SS] timestamps. Videos that fail are reported per video without failing the call.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, TranscriptOutput, error) {
		out, err := youtubeTranscript(ctx, src, input)
		return nil, out, err
	})
}

func youtubeTranscript(ctx context.Context, src toolutil.TranscriptSource, input TranscriptInput) (TranscriptOutput, error) {
	if len(input.URLs) == 0 {
		return TranscriptOutput{}, errors.New("urls is required")
	}
	ids := sources.ResolveVideoIDs(input.URLs)
	if len(ids) == 0 {
		return TranscriptOutput{}, engine.ErrInvalidIdentifier
	}

	opts := engine.RenderOptions{IncludeTimestamps: input.Timestamps, FilterOutMusic: input.FilterOutMusic}
	results := toolutil.FetchTranscriptsParallel(ctx, src, ids, input.IgnoreCache)

	out := TranscriptOutput{Videos: make([]TranscriptVideo, 0, len(results))}
	texts := make([]string, 0, len(results))
	for _, r := range results {
		v := TranscriptVideo{ID: string(r.ID)}
		if r.Err != nil {
			v.Error = engine.SafeMessage(r.Err)
			slog.Warn("youtube_transcript: video failed",
				slog.String("id", v.ID), slog.String("kind", engine.KindOf(r.Err).String()))
		} else {
			v.Title = r.Result.VideoTitle
			v.ImageURL = r.Result.ImageURL
			v.Segments = len(r.Result.Segments)
			texts = append(texts, engine.RenderText(r.Result, opts))
		}
		out.Videos = append(out.Videos, v)
	}

	if len(texts) == 0 {
		if len(results) == 1 {
			// Cause stays in logs; the client sees the kind and its safe message.
			err := results[0].Err
			return out, &engine.TranscriptError{Kind: engine.KindOf(err), Message: engine.SafeMessage(err)}
		}
		return out, errors.New(msgNoTranscripts)
	}
	out.Text = engine.JoinRendered(texts)
	return out, nil
}
