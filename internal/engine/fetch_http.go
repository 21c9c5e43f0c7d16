package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxWatchPageBytes = 8 << 20
	maxCaptionBytes   = 4 << 20
	// captionFormat selects the JSON event-stream caption format.
	captionFormat = "json3"
)

// Fetcher performs the upstream GETs: one attempt per call, no retry.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter // nil = unlimited
	baseURL string
	lang    string
}

// NewFetcher builds a Fetcher from cfg. cfg.HTTPClient, when set, is used as is.
func NewFetcher(cfg Config) (*Fetcher, error) {
	client := cfg.HTTPClient
	if client == nil {
		var err error
		client, err = newFetchClient(cfg.FetchTimeout, cfg.ProxyURL)
		if err != nil {
			return nil, err
		}
	}

	f := &Fetcher{
		client:  client,
		baseURL: strings.TrimRight(cfg.YouTubeBaseURL, "/"),
		lang:    cfg.CaptionLang,
	}
	if f.baseURL == "" {
		f.baseURL = "https://www.youtube.com"
	}
	if f.lang == "" {
		f.lang = "en"
	}
	if cfg.UpstreamRPS > 0 {
		burst := cfg.UpstreamBurst
		if burst <= 0 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.UpstreamRPS), burst)
	}
	return f, nil
}

// newFetchClient creates an HTTP client with proper settings for web scraping.
// proxyURL routes all upstream requests through a proxy when non-empty.
func newFetchClient(timeout time.Duration, proxyURL string) (*http.Client, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if proxyURL != "" {
		pu, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(pu)
		slog.Info("fetch: proxy routing enabled", slog.String("host", pu.Host))
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}, nil
}

// WatchURL returns the canonical watch page URL for id.
func (f *Fetcher) WatchURL(id VideoID) string {
	return f.baseURL + "/watch?v=" + url.QueryEscape(string(id))
}

// CaptionURL appends the format selector and language preference to a caption track URL.
func CaptionURL(trackURL, lang string) string {
	sep := "&"
	if !strings.Contains(trackURL, "?") {
		sep = "?"
	}
	return trackURL + sep + "fmt=" + captionFormat + "&lang=" + url.QueryEscape(lang)
}

// FetchWatchPage GETs the watch page HTML for id.
// A non-success status is KindUpstreamUnavailable; the body is logged, never returned.
func (f *Fetcher) FetchWatchPage(ctx context.Context, id VideoID) (string, error) {
	metrics.WatchPageFetches.Add(1)
	watchURL := f.WatchURL(id)

	resp, err := f.get(ctx, watchURL, true)
	if err != nil {
		return "", NewError(KindUpstreamUnavailable, fmt.Errorf("watch page: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Warn("fetch: watch page non-success status",
			slog.String("id", string(id)),
			slog.Int("status", resp.StatusCode),
			slog.Bool("rate_limited", IsRetryableStatus(resp.StatusCode)),
			slog.String("body", TruncateRunes(CollapseSpace(string(snippet)), 512, "...")),
		)
		return "", NewError(KindUpstreamUnavailable, fmt.Errorf("watch page status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWatchPageBytes))
	if err != nil {
		return "", NewError(KindUpstreamUnavailable, fmt.Errorf("read watch page: %w", err))
	}
	return string(body), nil
}

// FetchCaptionPayload GETs the json3 payload for a caption track URL.
func (f *Fetcher) FetchCaptionPayload(ctx context.Context, trackURL string) ([]byte, error) {
	metrics.CaptionFetches.Add(1)

	resp, err := f.get(ctx, CaptionURL(trackURL, f.lang), false)
	if err != nil {
		return nil, NewError(KindUpstreamUnavailable, fmt.Errorf("caption payload: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("fetch: caption payload non-success status", slog.Int("status", resp.StatusCode))
		return nil, NewError(KindTranscriptUnparsable, fmt.Errorf("caption payload status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptionBytes))
	if err != nil {
		return nil, NewError(KindUpstreamUnavailable, fmt.Errorf("read caption payload: %w", err))
	}
	return body, nil
}

// get issues a single GET with browser-like headers.
// isHTML controls Accept headers: HTML for the watch page, JSON for caption payloads.
func (f *Fetcher) get(ctx context.Context, target string, isHTML bool) (*http.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range ChromeHeaders() {
		// Leave Accept-Encoding to the transport so gzip is decoded transparently.
		if strings.EqualFold(k, "accept-encoding") {
			continue
		}
		req.Header.Set(k, v)
	}
	if !isHTML {
		req.Header.Set("Accept", "application/json,text/plain,*/*;q=0.8")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", RandomUserAgent())
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}
	return f.client.Do(req)
}
