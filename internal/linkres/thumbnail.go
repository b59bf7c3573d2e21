package linkres

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Thumbnail fetch bounds. Cover art is cosmetic, so both limits are tight.
const (
	DefaultThumbnailTimeout = 25 * time.Second
	MaxThumbnailBytes       = 5 * 1024 * 1024
)

// ThumbnailFetcher downloads cover images into embeddable data URIs
type ThumbnailFetcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewThumbnailFetcher creates a fetcher with the given deadline. A zero
// timeout selects DefaultThumbnailTimeout.
func NewThumbnailFetcher(timeout time.Duration, logger *zap.Logger) *ThumbnailFetcher {
	if timeout <= 0 {
		timeout = DefaultThumbnailTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThumbnailFetcher{
		client:  &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
}

// Fetch downloads the image at rawURL and returns it as a data URI. Any
// failure (timeout, non-2xx, wrong type, oversize) returns an error the
// caller is expected to swallow: a track without cover art is still a track.
func (f *ThumbnailFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("no thumbnail url")
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch thumbnail: unexpected status %d", resp.StatusCode)
	}

	mediaType := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ = mime.ParseMediaType(ct)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("fetch thumbnail: unexpected content type %q", mediaType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxThumbnailBytes+1))
	if err != nil {
		return "", fmt.Errorf("read thumbnail: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("read thumbnail: empty body")
	}
	if len(data) > MaxThumbnailBytes {
		return "", fmt.Errorf("read thumbnail: exceeds %d bytes", MaxThumbnailBytes)
	}

	f.logger.Debug("thumbnail fetched", zap.Int("bytes", len(data)))
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
