package model

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// SourceType identifies how a track is backed
type SourceType string

const (
	// SourceTypeFile means the track is backed by a local audio file
	SourceTypeFile SourceType = "file"

	// SourceTypeLink means the track is backed by a remote URL whose audio
	// bytes are cached locally before playback
	SourceTypeLink SourceType = "link"
)

// Field length limits applied during sanitization
const (
	MaxNameLength   = 80
	MaxArtistLength = 140
	MaxAlbumLength  = 140
)

// audioExtensions is the closed set of playable container extensions
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".m4a":  true,
	".flac": true,
	".aac":  true,
	".wma":  true,
	".opus": true,
}

// Track represents a single playlist entry, local or link-backed
type Track struct {
	ID             string     `json:"id"`
	Path           string     `json:"path"`
	Title          string     `json:"title"`
	FileURL        string     `json:"fileUrl"`
	SourceType     SourceType `json:"sourceType"`
	SourceURL      string     `json:"sourceUrl,omitempty"`
	SourceHost     string     `json:"sourceHost,omitempty"`
	SourcePlatform string     `json:"sourcePlatform,omitempty"`
	CachedFilePath string     `json:"cachedFilePath,omitempty"`
	CoverDataURL   string     `json:"coverDataUrl,omitempty"`
	Artist         string     `json:"artist,omitempty"`
	Album          string     `json:"album,omitempty"`
}

// IsLink returns true when the track is backed by a remote source URL
func (t *Track) IsLink() bool {
	return t.SourceType == SourceTypeLink
}

// PlayablePath returns the local file path the player should open: the cache
// file for link tracks, the library file otherwise
func (t *Track) PlayablePath() string {
	if t.IsLink() {
		return t.CachedFilePath
	}
	return t.Path
}

// IsAudioFile reports whether the path carries a recognized audio extension
func IsAudioFile(filePath string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(filePath))]
}

// IsAudioURL reports whether the URL path ends in a recognized audio extension
func IsAudioURL(u *url.URL) bool {
	return audioExtensions[strings.ToLower(path.Ext(u.Path))]
}

var titleSeparators = regexp.MustCompile(`[_-]+`)

// TitleFromPath derives a display title from a file path: base name without
// extension, underscores and dashes collapsed to spaces
func TitleFromPath(filePath string) string {
	base := filepath.Base(filepath.ToSlash(filePath))
	if base == "." || base == "/" || base == "" {
		return "Unknown Song"
	}
	withoutExt := strings.TrimSuffix(base, filepath.Ext(base))
	normalized := strings.TrimSpace(titleSeparators.ReplaceAllString(withoutExt, " "))
	if normalized == "" {
		return base
	}
	return normalized
}

// TitleFromURL derives a display title from the last path segment of a URL
func TitleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "Link Song"
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	tail := segments[len(segments)-1]
	if tail == "" {
		tail = parsed.Hostname()
	}
	if tail == "" {
		return "Link Song"
	}

	if decoded, err := url.PathUnescape(tail); err == nil {
		tail = decoded
	}
	if withoutExt := strings.TrimSuffix(tail, path.Ext(tail)); withoutExt != "" {
		return withoutExt
	}
	return tail
}

// NormalizeAudioURL validates and canonicalizes a remote source URL. It
// returns the empty string for anything that is not an absolute http(s) URL.
func NormalizeAudioURL(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if parsed.Host == "" {
		return ""
	}
	return parsed.String()
}

// FileURLFromPath converts a local path to a file:// URL usable by the player
func FileURLFromPath(filePath string) string {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		abs = filePath
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}
