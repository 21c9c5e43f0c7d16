package transcriptserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/sources"
	"github.com/anatolykoptev/go_transcript/internal/toolutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	plainTextContentType = "text/plain; charset=utf-8"
	requestIDKey         = "request_id"
	msgNoTranscripts     = "Failed to fetch any transcripts"
)

// Handler serves transcripts as plain text over HTTP.
type Handler struct {
	src     toolutil.TranscriptSource
	metrics func() string
}

// NewRouter wires the plain HTTP surface. Any GET path that is not a fixed route is a
// transcript request, so links can be pasted after the host (/youtu.be/<id>).
func NewRouter(src toolutil.TranscriptSource, metrics func() string) *gin.Engine {
	h := &Handler{src: src, metrics: metrics}

	r := gin.New()
	r.Use(requestID(), gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", func(c *gin.Context) {
		if h.metrics == nil {
			c.String(http.StatusOK, "")
			return
		}
		c.String(http.StatusOK, h.metrics())
	})
	r.NoRoute(h.Transcript)
	return r
}

// requestID tags every request with an id for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// Transcript handles GET ?v=<id or url>&v=...&timestamps=true&filterOutMusic=true&ignoreCache=true.
func (h *Handler) Transcript(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	log := slog.With(slog.String("request_id", c.GetString(requestIDKey)))

	q := c.Request.URL.Query()
	ids := sources.ResolveVideoIDs(q["v"])
	if len(ids) == 0 {
		// Fallback: a link pasted after the host, e.g. /youtube.com/watch?v=<id>.
		if id, ok := sources.ResolveVideoID(strings.TrimPrefix(c.Request.URL.RequestURI(), "/")); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		c.String(http.StatusBadRequest, engine.ErrInvalidIdentifier.Message)
		return
	}

	opts := engine.RenderOptions{
		IncludeTimestamps: q.Get("timestamps") == "true",
		FilterOutMusic:    q.Get("filterOutMusic") == "true",
	}
	ignoreCache := q.Get("ignoreCache") == "true"

	results := toolutil.FetchTranscriptsParallel(c.Request.Context(), h.src, ids, ignoreCache)

	// A single video surfaces its classified error; several videos drop failures.
	if len(results) == 1 && results[0].Err != nil {
		err := results[0].Err
		kind := engine.KindOf(err)
		log.Warn("transcript: request failed",
			slog.String("id", string(results[0].ID)), slog.String("kind", kind.String()), slog.Any("error", err))
		c.String(statusForKind(kind), engine.SafeMessage(err))
		return
	}

	for _, r := range results {
		if r.Err != nil {
			log.Warn("transcript: video dropped",
				slog.String("id", string(r.ID)), slog.String("kind", engine.KindOf(r.Err).String()), slog.Any("error", r.Err))
		}
	}

	ok := toolutil.Succeeded(results)
	if len(ok) == 0 {
		c.String(http.StatusNotFound, msgNoTranscripts)
		return
	}

	texts := make([]string, 0, len(ok))
	for _, r := range ok {
		texts = append(texts, engine.RenderText(r.Result, opts))
	}

	// History metadata describes the last successful video.
	last := ok[len(ok)-1]
	c.Header("title", toolutil.EncodeHeader(last.Result.VideoTitle))
	if last.Result.ImageURL != "" {
		c.Header("img-url", toolutil.EncodeHeader(last.Result.ImageURL))
	}
	c.Header("id", toolutil.EncodeHeader(string(last.ID)))

	log.Info("transcript: served", slog.Int("requested", len(ids)), slog.Int("succeeded", len(ok)))
	c.Data(http.StatusOK, plainTextContentType, []byte(engine.JoinRendered(texts)))
}

// statusForKind maps a classified failure to an HTTP status.
func statusForKind(kind engine.ErrorKind) int {
	switch kind {
	case engine.KindInvalidIdentifier:
		return http.StatusBadRequest
	case engine.KindNoCaptions, engine.KindTranscriptUnparsable:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
