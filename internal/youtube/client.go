// Package youtube fetches caption tracks and resolves playlists and channels
// from YouTube's public watch pages and Innertube endpoints.
package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	stealth "github.com/anatolykoptev/go-stealth"
	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_transcript/internal/transcript"
)

// DefaultBaseURL is the production YouTube origin.
const DefaultBaseURL = "https://www.youtube.com"

// Upstream metric names.
const (
	MetricUpstreamRequests = "youtube_upstream_requests"
	MetricUpstreamErrors   = "youtube_upstream_errors"
)

// Options configures a Client. Zero values pick production defaults.
type Options struct {
	BaseURL           string
	HTTPClient        *http.Client
	RequestsPerSecond float64 // <= 0 disables pacing
	Burst             int
	Retry             *stealth.RetryConfig
	Metrics           transcript.Counter
}

// Client talks to YouTube. It implements transcript.Fetcher and transcript.Resolver.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   stealth.RetryConfig
	metrics transcript.Counter
}

var (
	_ transcript.Fetcher  = (*Client)(nil)
	_ transcript.Resolver = (*Client)(nil)
)

// NewClient returns a Client built from opts.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		retry:   stealth.DefaultRetryConfig,
		metrics: opts.Metrics,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if opts.Retry != nil {
		c.retry = *opts.Retry
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	c.limiter = rate.NewLimiter(limit, max(1, opts.Burst))
	return c
}

func (c *Client) incr(name string) {
	if c.metrics != nil {
		c.metrics.Incr(name)
	}
}

// do paces, sends and retries one request. Any non-200 response is an error.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	resp, err := stealth.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := build()
		if err != nil {
			return nil, err
		}
		c.incr(MetricUpstreamRequests)
		return c.http.Do(req)
	})
	if err != nil {
		c.incr(MetricUpstreamErrors)
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		c.incr(MetricUpstreamErrors)
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return resp, nil
}

// getPage fetches an HTML page with browser-like headers.
func (c *Client) getPage(ctx context.Context, pageURL string, limit int64) ([]byte, error) {
	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", stealth.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
