package linkres

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/songdeck/songdeck/internal/model"
)

// Platform tags derived from the source hostname
const (
	PlatformYouTube    = "youtube"
	PlatformSoundCloud = "soundcloud"
	PlatformBandcamp   = "bandcamp"
	PlatformVimeo      = "vimeo"
	PlatformDirect     = "direct"
	PlatformGeneric    = "link"
)

// platformHosts maps hosting domains to platform tags. Matching is by exact
// host or dot-separated suffix, so subdomains classify with their parent.
var platformHosts = map[string]string{
	"youtube.com":       PlatformYouTube,
	"youtu.be":          PlatformYouTube,
	"music.youtube.com": PlatformYouTube,
	"soundcloud.com":    PlatformSoundCloud,
	"bandcamp.com":      PlatformBandcamp,
	"vimeo.com":         PlatformVimeo,
}

// signInPlatforms marks platforms that may gate media behind an account, so
// browser-cookie authentication profiles are worth attempting
var signInPlatforms = map[string]bool{
	PlatformYouTube: true,
}

// Classification is the result of inspecting a raw link
type Classification struct {
	// URL is the normalized absolute http(s) source URL
	URL string
	// Host is the lowercased hostname with a leading "www." stripped
	Host string
	// Platform is the derived platform tag
	Platform string
	// DirectAudio is true when the URL path ends in a recognized audio
	// extension and extraction can be skipped entirely
	DirectAudio bool
}

// Classify normalizes a raw string into an absolute http(s) URL and derives
// its platform tag. Non-URLs and non-http(s) schemes are rejected without any
// I/O.
func Classify(raw string) (Classification, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Classification{}, fmt.Errorf("empty link")
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return Classification{}, fmt.Errorf("parse link: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Classification{}, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return Classification{}, fmt.Errorf("link has no host")
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")

	direct := model.IsAudioURL(parsed)
	platform := platformForHost(host)
	if direct && platform == PlatformGeneric {
		platform = PlatformDirect
	}

	return Classification{
		URL:         parsed.String(),
		Host:        host,
		Platform:    platform,
		DirectAudio: direct,
	}, nil
}

func platformForHost(host string) string {
	for domain, platform := range platformHosts {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return platform
		}
	}
	return PlatformGeneric
}

// RequiresSignIn reports whether cookie-based authentication profiles should
// be attempted for the platform
func RequiresSignIn(platform string) bool {
	return signInPlatforms[platform]
}

// DisplayLabel returns the user-facing name of a platform tag
func DisplayLabel(platform string) string {
	switch strings.ToLower(strings.TrimSpace(platform)) {
	case PlatformYouTube:
		return "YouTube"
	case PlatformSoundCloud:
		return "SoundCloud"
	case PlatformDirect, "":
		return "Direct Link"
	default:
		normalized := strings.ToLower(strings.TrimSpace(platform))
		return strings.ToUpper(normalized[:1]) + normalized[1:]
	}
}
