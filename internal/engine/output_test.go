package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "[00:00]"},
		{1, "[00:01]"},
		{59.999, "[00:59]"},
		{60, "[01:00]"},
		{125, "[02:05]"},
		{3725.5, "[62:05]"},
		{-3, "[00:00]"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.seconds); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestRenderText(t *testing.T) {
	r := TranscriptResult{
		VideoTitle:  "Title A",
		Description: "About A",
		Segments: []Segment{
			{Text: "Hello", Start: 1, Duration: 2},
			{Text: "[Music]", Start: 3, Duration: 1},
			{Text: "world", Start: 125, Duration: 1},
		},
	}

	t.Run("plain", func(t *testing.T) {
		want := "--\nTitle: Title A\n\nDescription: About A\n\n--\n\nHello\n[Music]\nworld"
		assert.Equal(t, want, RenderText(r, RenderOptions{}))
	})

	t.Run("timestamps", func(t *testing.T) {
		got := RenderText(r, RenderOptions{IncludeTimestamps: true})
		assert.True(t, strings.HasSuffix(got, "\n[00:01] Hello\n[00:03] [Music]\n[02:05] world"), got)
	})

	t.Run("filter music", func(t *testing.T) {
		got := RenderText(r, RenderOptions{FilterOutMusic: true})
		assert.NotContains(t, got, "[Music]")
		assert.Contains(t, got, "Hello\nworld")
	})

	t.Run("missing description", func(t *testing.T) {
		got := RenderText(TranscriptResult{VideoTitle: "T", Segments: r.Segments[:1]}, RenderOptions{})
		assert.Contains(t, got, "\nDescription: \n")
	})

	t.Run("deterministic", func(t *testing.T) {
		opts := RenderOptions{IncludeTimestamps: true, FilterOutMusic: true}
		assert.Equal(t, RenderText(r, opts), RenderText(r, opts))
	})
}

func TestRenderTextMusicOnlyExact(t *testing.T) {
	r := TranscriptResult{VideoTitle: "T", Segments: []Segment{
		{Text: "[Music] playing"},
		{Text: "[Music]"},
	}}
	got := RenderText(r, RenderOptions{FilterOutMusic: true})
	assert.Contains(t, got, "[Music] playing")
	assert.False(t, strings.HasSuffix(got, "\n[Music]"))
}

func TestJoinRendered(t *testing.T) {
	assert.Equal(t, "a", JoinRendered([]string{"a"}))
	assert.Equal(t, "a\n\n====video ended====\n\nb", JoinRendered([]string{"a", "b"}))
}
