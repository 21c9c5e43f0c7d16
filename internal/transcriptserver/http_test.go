package transcriptserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/sources"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mapSource answers from fixed results; ids without an entry fail with errs[id] or NoCaptions.
type mapSource struct {
	results map[engine.VideoID]engine.TranscriptResult
	errs    map[engine.VideoID]error
}

func (s mapSource) Transcript(_ context.Context, id engine.VideoID, _ bool) (engine.TranscriptResult, error) {
	if r, ok := s.results[id]; ok {
		return r, nil
	}
	if err, ok := s.errs[id]; ok {
		return engine.TranscriptResult{}, err
	}
	return engine.TranscriptResult{}, engine.NewError(engine.KindNoCaptions, errors.New("no tracks"))
}

func result(title string) engine.TranscriptResult {
	return engine.TranscriptResult{
		VideoTitle:  title,
		Description: "about " + title,
		ImageURL:    "https://i.ytimg.com/" + title + ".jpg",
		Segments: []engine.Segment{
			{Text: "[Music]", Start: 0, Duration: 1},
			{Text: "line of " + title, Start: 61, Duration: 2},
		},
	}
}

func serve(t *testing.T, src mapSource, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := NewRouter(src, engine.FormatMetrics)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decodeHeader(t *testing.T, w *httptest.ResponseRecorder, name string) string {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(w.Header().Get(name))
	require.NoError(t, err)
	return string(b)
}

func TestTranscriptSingle(t *testing.T) {
	src := mapSource{results: map[engine.VideoID]engine.TranscriptResult{"dQw4w9WgXcQ": result("rick")}}

	w := serve(t, src, "/?v=https://youtu.be/dQw4w9WgXcQ&timestamps=true&filterOutMusic=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "--\nTitle: rick\n\nDescription: about rick\n\n--\n\n[01:01] line of rick", w.Body.String())

	assert.Equal(t, "rick", decodeHeader(t, w, "title"))
	assert.Equal(t, "https://i.ytimg.com/rick.jpg", decodeHeader(t, w, "img-url"))
	assert.Equal(t, "dQw4w9WgXcQ", decodeHeader(t, w, "id"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestTranscriptNoImageHeader(t *testing.T) {
	r := result("plain")
	r.ImageURL = ""
	src := mapSource{results: map[engine.VideoID]engine.TranscriptResult{"dQw4w9WgXcQ": r}}

	w := serve(t, src, "/?v=dQw4w9WgXcQ")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("img-url"))
	assert.Contains(t, w.Body.String(), "[Music]\nline of plain")
}

func TestTranscriptMultiple(t *testing.T) {
	src := mapSource{results: map[engine.VideoID]engine.TranscriptResult{
		"aaaaaaaaaaa": result("first"),
		"ccccccccccc": result("third"),
	}}

	t.Run("partial failure", func(t *testing.T) {
		w := serve(t, src, "/?v=aaaaaaaaaaa&v=bbbbbbbbbbb&v=ccccccccccc")
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		parts := strings.Split(body, engine.VideoSeparator)
		require.Len(t, parts, 2)
		assert.Contains(t, parts[0], "Title: first")
		assert.Contains(t, parts[1], "Title: third")
		assert.Equal(t, "ccccccccccc", decodeHeader(t, w, "id"))
	})

	t.Run("all failed", func(t *testing.T) {
		w := serve(t, src, "/?v=bbbbbbbbbbb&v=ddddddddddd")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Failed to fetch any transcripts", w.Body.String())
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		w := serve(t, src, "/?v=aaaaaaaaaaa&v=https://youtu.be/aaaaaaaaaaa")
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), engine.VideoSeparator)
	})
}

func TestTranscriptErrorStatus(t *testing.T) {
	errs := map[engine.VideoID]error{
		"upstream___": engine.NewError(engine.KindUpstreamUnavailable, errors.New("status 429: <html>secret</html>")),
		"markup_____": engine.NewError(engine.KindMarkupUnrecognized, nil),
		"unparsable_": engine.NewError(engine.KindTranscriptUnparsable, nil),
		"internal___": errors.New("unexpected"),
	}
	src := mapSource{errs: errs}

	tests := []struct {
		target string
		status int
		body   string
	}{
		{"/?v=", http.StatusBadRequest, "No valid video IDs provided"},
		{"/?v=nope", http.StatusBadRequest, "No valid video IDs provided"},
		{"/", http.StatusBadRequest, "No valid video IDs provided"},
		{"/?v=nocaptions1", http.StatusNotFound, "No captions available for this video"},
		{"/?v=unparsable_", http.StatusNotFound, "Failed to parse transcript data"},
		{"/?v=upstream___", http.StatusInternalServerError, "Failed to fetch video. This might be a YouTube rate limit."},
		{"/?v=markup_____", http.StatusInternalServerError, "Could not find player response data"},
		{"/?v=internal___", http.StatusInternalServerError, "Failed to process transcripts"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := serve(t, src, tt.target)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestTranscriptPathFallback(t *testing.T) {
	src := mapSource{results: map[engine.VideoID]engine.TranscriptResult{"dQw4w9WgXcQ": result("rick")}}

	for _, target := range []string{
		"/youtu.be/dQw4w9WgXcQ",
		"/www.youtube.com/watch?v=dQw4w9WgXcQ&timestamps=true",
		"/https://youtu.be/dQw4w9WgXcQ",
		"/dQw4w9WgXcQ",
	} {
		t.Run(target, func(t *testing.T) {
			w := serve(t, src, target)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "Title: rick")
		})
	}
}

func TestTranscriptMethodNotAllowed(t *testing.T) {
	r := NewRouter(mapSource{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/?v=dQw4w9WgXcQ", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusForKind(engine.KindInvalidIdentifier))
	assert.Equal(t, http.StatusNotFound, statusForKind(engine.KindNoCaptions))
	assert.Equal(t, http.StatusNotFound, statusForKind(engine.KindTranscriptUnparsable))
	assert.Equal(t, http.StatusInternalServerError, statusForKind(engine.KindUpstreamUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusForKind(engine.KindMarkupUnrecognized))
	assert.Equal(t, http.StatusInternalServerError, statusForKind(engine.KindInternal))
}

func TestHealthAndMetrics(t *testing.T) {
	w := serve(t, mapSource{}, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = serve(t, mapSource{}, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "transcript_requests ")
}

func TestRequestIDPassthrough(t *testing.T) {
	r := NewRouter(mapSource{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))
}

// fakeYouTube is a stub upstream for the end-to-end tests: statuses maps a video id to a
// forced watch page status; everything else gets a page with one caption track.
func fakeYouTube(t *testing.T, statuses map[string]int, events string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("v")
		if code, ok := statuses[id]; ok {
			http.Error(w, "blocked", code)
			return
		}
		fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = {"videoDetails":{"title":"Video %[1]s"},`+
			`"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"%[2]s/api/timedtext?v=%[1]s"}]}}};</script></html>`,
			id, srv.URL)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, events)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newEndToEndRouter(t *testing.T, upstream *httptest.Server) *gin.Engine {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.YouTubeBaseURL = upstream.URL
	fetcher, err := engine.NewFetcher(cfg)
	require.NoError(t, err)
	return NewRouter(sources.NewPipeline(fetcher, nil, true), engine.FormatMetrics)
}

func TestEndToEndTimestamps(t *testing.T) {
	upstream := fakeYouTube(t, nil, `{"events":[{"tStartMs":1000,"dDurationMs":2000,"segs":[{"utf8":"Hello"}]}]}`)
	r := newEndToEndRouter(t, upstream)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?v=https://youtu.be/dQw4w9WgXcQ&timestamps=true&filterOutMusic=false", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, strings.Split(w.Body.String(), "\n"), "[00:01] Hello")
	assert.Equal(t, "dQw4w9WgXcQ", decodeHeader(t, w, "id"))
}

func TestEndToEndPartialUpstreamFailure(t *testing.T) {
	upstream := fakeYouTube(t, map[string]int{"9bZkp7q19f0": http.StatusTooManyRequests},
		`{"events":[{"tStartMs":0,"dDurationMs":500,"segs":[{"utf8":"Hi"}]}]}`)
	r := newEndToEndRouter(t, upstream)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?v=dQw4w9WgXcQ&v=9bZkp7q19f0", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Title: Video dQw4w9WgXcQ")
	assert.NotContains(t, body, "9bZkp7q19f0")
	assert.NotContains(t, body, engine.VideoSeparator)
}
