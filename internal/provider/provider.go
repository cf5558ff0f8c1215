// Package provider implements the client for the external video data
// provider. Every failure mode (network, non-2xx, malformed body) surfaces as
// ErrUnavailable so callers can recover with a degraded result instead of
// branching on transport details.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/adivardh/studyreel/internal/config"
	"github.com/adivardh/studyreel/internal/logging"
	"github.com/adivardh/studyreel/internal/metrics"
)

// ErrUnavailable is returned for any provider failure, including responses
// that do not match the expected schema.
var ErrUnavailable = errors.New("provider unavailable")

// Client calls the external metadata/transcript provider
type Client struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *logging.Logger
}

// NewClient creates a new provider client
func NewClient(cfg config.ProviderConfig, logger *logging.Logger) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(rps), rps),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		logger:         logger,
	}
}

// VideoMetadata is the provider's video response
type VideoMetadata struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ChannelTitle string     `json:"channelTitle"`
	PublishedAt  string     `json:"publishedAt"`
	Thumbnails   Thumbnails `json:"thumbnails"`
}

// Thumbnails holds the per-resolution thumbnail variants
type Thumbnails struct {
	Default  *Thumbnail `json:"default,omitempty"`
	Medium   *Thumbnail `json:"medium,omitempty"`
	High     *Thumbnail `json:"high,omitempty"`
	Standard *Thumbnail `json:"standard,omitempty"`
	Maxres   *Thumbnail `json:"maxres,omitempty"`
}

// Thumbnail is a single thumbnail variant
type Thumbnail struct {
	URL string `json:"url"`
}

// BestURL returns the highest-resolution thumbnail available, or "" when the
// provider supplied none.
func (t Thumbnails) BestURL() string {
	for _, thumb := range []*Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.URL != "" {
			return thumb.URL
		}
	}
	return ""
}

// TranscriptChunk is one caption entry; start/end are milliseconds encoded as
// strings on the wire.
type TranscriptChunk struct {
	Text  string `json:"text"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// StartSeconds parses the start offset into seconds
func (c TranscriptChunk) StartSeconds() (float64, error) {
	return millisToSeconds(c.Start)
}

// EndSeconds parses the end offset into seconds
func (c TranscriptChunk) EndSeconds() (float64, error) {
	return millisToSeconds(c.End)
}

func millisToSeconds(raw string) (float64, error) {
	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid millisecond offset %q: %w", raw, err)
	}
	return ms / 1000, nil
}

// TranscriptResponse is the provider's transcript response
type TranscriptResponse struct {
	Content []TranscriptChunk `json:"content"`
}

// GetVideo fetches metadata for a video id
func (c *Client) GetVideo(ctx context.Context, videoID string) (*VideoMetadata, error) {
	var md VideoMetadata
	if err := c.getJSON(ctx, "/youtube/video", videoID, &md); err != nil {
		return nil, err
	}

	// A payload without a title is not usable downstream; treat it the same
	// as an outage.
	if md.Title == "" {
		return nil, fmt.Errorf("video payload missing title: %w", ErrUnavailable)
	}

	return &md, nil
}

// GetTranscript fetches the transcript for a video id
func (c *Client) GetTranscript(ctx context.Context, videoID string) (*TranscriptResponse, error) {
	var tr TranscriptResponse
	if err := c.getJSON(ctx, "/youtube/transcript", videoID, &tr); err != nil {
		return nil, err
	}

	return &tr, nil
}

// getJSON performs one provider call with rate limiting, bounded retries and
// schema validation at the boundary.
func (c *Client) getJSON(ctx context.Context, endpoint, videoID string, out interface{}) error {
	videoURL := "https://www.youtube.com/watch?v=" + videoID
	reqURL := fmt.Sprintf("%s%s?videoUrl=%s", c.baseURL, endpoint, url.QueryEscape(videoURL))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: base, 2*base, 4*base, ...
			delay := c.retryBaseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%v: %w", ctx.Err(), ErrUnavailable)
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%v: %w", err, ErrUnavailable)
		}

		retryable, err := c.doOnce(ctx, reqURL, endpoint, videoID, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable {
			break
		}
	}

	return lastErr
}

func (c *Client) doOnce(ctx context.Context, reqURL, endpoint, videoID string, out interface{}) (retryable bool, err error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, videoID, 0, start, err)
		return true, fmt.Errorf("%v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		err := fmt.Errorf("unexpected status %d from %s: %w", resp.StatusCode, endpoint, ErrUnavailable)
		c.observe(endpoint, videoID, resp.StatusCode, start, err)
		// 5xx and 429 are worth retrying; other 4xx are not going to change.
		return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests, err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		err = fmt.Errorf("failed to decode %s response: %v: %w", endpoint, err, ErrUnavailable)
		c.observe(endpoint, videoID, resp.StatusCode, start, err)
		return false, err
	}

	c.observe(endpoint, videoID, resp.StatusCode, start, nil)
	return false, nil
}

func (c *Client) observe(endpoint, videoID string, status int, start time.Time, err error) {
	metrics.ProviderRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	c.logger.LogProviderCall(endpoint, videoID, status, time.Since(start), err)
}
