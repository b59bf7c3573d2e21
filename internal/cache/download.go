package cache

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/songdeck/songdeck/internal/model"
)

// DefaultDownloadTimeout bounds a single stream download
const DefaultDownloadTimeout = 5 * time.Minute

const partSuffix = ".part"

// contentTypeExtensions maps response media types to audio container
// extensions. The response header outranks every URL-derived guess.
var contentTypeExtensions = map[string]string{
	"audio/mpeg":      ".mp3",
	"audio/mp3":       ".mp3",
	"audio/mp4":       ".m4a",
	"audio/x-m4a":     ".m4a",
	"audio/aac":       ".aac",
	"audio/ogg":       ".ogg",
	"application/ogg": ".ogg",
	"audio/opus":      ".opus",
	"audio/wav":       ".wav",
	"audio/x-wav":     ".wav",
	"audio/wave":      ".wav",
	"audio/flac":      ".flac",
	"audio/x-flac":    ".flac",
	"audio/x-ms-wma":  ".wma",
}

// platformExtensions holds the default container per platform when nothing
// else identifies the stream
var platformExtensions = map[string]string{
	"youtube":    ".m4a",
	"soundcloud": ".mp3",
	"bandcamp":   ".mp3",
	"vimeo":      ".m4a",
}

const genericExtension = ".mp3"

// Downloader streams remote audio into the cache directory with an atomic
// temp-file-then-rename so a half-written file is never visible as canonical.
type Downloader struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewDownloader creates a downloader with the given per-download deadline.
// A zero timeout selects DefaultDownloadTimeout.
func NewDownloader(timeout time.Duration, logger *zap.Logger) *Downloader {
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		client:  &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
}

// Download fetches streamURL into destBase plus an inferred audio extension
// and returns the final path. sourceURL is the original link the user pasted;
// it participates in extension inference and platform selects the default
// container. On any failure no partial artifact remains at destBase.
func (d *Downloader) Download(ctx context.Context, streamURL, sourceURL, destBase, platform string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch stream: unexpected status %d", resp.StatusCode)
	}

	tmpPath := destBase + partSuffix
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	written, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		if copyErr != nil {
			return "", fmt.Errorf("stream body: %w", copyErr)
		}
		return "", fmt.Errorf("close temp file: %w", closeErr)
	}
	if written == 0 {
		os.Remove(tmpPath)
		return "", fmt.Errorf("stream body: empty response")
	}

	finalURL := streamURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	ext := inferExtension(resp.Header.Get("Content-Type"), finalURL, sourceURL, platform)

	finalPath := destBase + ext
	// A stale file at the exact final path loses to the fresh download.
	os.Remove(finalPath)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("finalize download: %w", err)
	}

	d.logger.Debug("cached stream",
		zap.String("path", finalPath),
		zap.Int64("bytes", written),
	)
	return finalPath, nil
}

// inferExtension picks the audio extension with priority: response
// Content-Type, final (post-redirect) URL path, original source URL path,
// platform default, generic fallback.
func inferExtension(contentType, finalURL, sourceURL, platform string) string {
	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			if ext, ok := contentTypeExtensions[strings.ToLower(mediaType)]; ok {
				return ext
			}
		}
	}

	if ext := urlAudioExtension(finalURL); ext != "" {
		return ext
	}
	if ext := urlAudioExtension(sourceURL); ext != "" {
		return ext
	}

	if ext, ok := platformExtensions[strings.ToLower(platform)]; ok {
		return ext
	}
	return genericExtension
}

func urlAudioExtension(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if ext != "" && model.IsAudioFile(parsed.Path) {
		return ext
	}
	return ""
}
