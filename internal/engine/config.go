package engine

import (
	"net/http"
	"time"
)

// Config holds service configuration, populated from the environment in main.
type Config struct {
	YouTubeBaseURL    string
	RequestsPerSecond float64
	RequestBurst      int
	HTTPTimeout       time.Duration
	FetchTimeout      time.Duration

	BatchMaxConcurrent int
	BatchPause         time.Duration

	RedisURL             string
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	HTTPClient *http.Client
}

// NewHTTPClient builds the shared upstream client.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
		},
	}
}
