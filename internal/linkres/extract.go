package linkres

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultStreamTimeout bounds a single stream or metadata extraction attempt
const DefaultStreamTimeout = 30 * time.Second

// StreamInfo is a successfully resolved, directly-fetchable media stream
type StreamInfo struct {
	URL      string
	Title    string // best-effort title captured during resolution, may be empty
	Selector string // format selector that won
	Profile  string // authentication profile that won
	Strategy string // invocation strategy that won
}

// Metadata is the descriptive result of a metadata-only extraction pass
type Metadata struct {
	Title      string   `json:"title"`
	Uploader   string   `json:"uploader"`
	Thumbnail  string   `json:"thumbnail"`
	Thumbnails []string `json:"-"`
	Ext        string   `json:"ext"`
}

// BestThumbnail picks the thumbnail to fetch: the reported one, else the last
// (typically highest-resolution) list entry
func (m Metadata) BestThumbnail() string {
	if m.Thumbnail != "" {
		return m.Thumbnail
	}
	if len(m.Thumbnails) > 0 {
		return m.Thumbnails[len(m.Thumbnails)-1]
	}
	return ""
}

// FailureReason classifies why every extraction attempt failed
type FailureReason string

const (
	ReasonAuthRequired      FailureReason = "auth_required"
	ReasonPrivate           FailureReason = "private"
	ReasonUnavailable       FailureReason = "unavailable"
	ReasonFormatUnavailable FailureReason = "format_unavailable"
	ReasonGeneric           FailureReason = "generic"
)

// ResolveError reports an exhausted fallback chain together with the
// classified reason and the diagnostics that led to it
type ResolveError struct {
	Reason      FailureReason
	Diagnostics []string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("link resolution failed: %s", e.Reason)
}

// Warning returns the user-facing message for the failure reason
func (e *ResolveError) Warning() string {
	switch e.Reason {
	case ReasonAuthRequired:
		return "This link requires signing in. Try a direct audio link instead."
	case ReasonPrivate:
		return "This media is private and cannot be played."
	case ReasonUnavailable:
		return "This media is unavailable."
	case ReasonFormatUnavailable:
		return "No playable audio format was found for this link."
	default:
		return "Could not resolve this link. Try again or use a direct audio link."
	}
}

// ClassifyDiagnostic maps extractor diagnostic text onto a closed set of
// failure reasons. Format-related patterns are checked before general
// availability because their wording overlaps.
func ClassifyDiagnostic(text string) FailureReason {
	lowered := strings.ToLower(text)

	switch {
	case containsAny(lowered, "requested format", "no video formats", "no audio formats", "format is not available"):
		return ReasonFormatUnavailable
	case containsAny(lowered, "sign in", "log in", "login required", "use --cookies", "authentication"):
		return ReasonAuthRequired
	case containsAny(lowered, "private video", "private track", "is private"):
		return ReasonPrivate
	case containsAny(lowered, "unavailable", "not available", "has been removed", "does not exist", "404"):
		return ReasonUnavailable
	default:
		return ReasonGeneric
	}
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// authProfile names a way of supplying site credentials to the extractor
type authProfile struct {
	Name    string
	Browser string // browser whose cookies to use, empty for none
}

var anonymousProfile = authProfile{Name: "anonymous"}

var cookieProfiles = []authProfile{
	{Name: "chrome-cookies", Browser: "chrome"},
	{Name: "firefox-cookies", Browser: "firefox"},
}

// profilesFor returns the ordered authentication profiles for a platform.
// Cookie profiles are only worth the round trips on sign-in-gated platforms.
func profilesFor(platform string) []authProfile {
	if RequiresSignIn(platform) {
		return append([]authProfile{anonymousProfile}, cookieProfiles...)
	}
	return []authProfile{anonymousProfile}
}

// selectorsFor returns the ordered format selectors for a platform: the
// platform's preferred container first, then best available audio
func selectorsFor(platform string) []string {
	switch platform {
	case PlatformYouTube:
		return []string{"bestaudio[ext=m4a]/bestaudio/best", "bestaudio/best"}
	case PlatformSoundCloud:
		return []string{"bestaudio[ext=mp3]/bestaudio/best", "bestaudio/best"}
	default:
		return []string{"bestaudio/best"}
	}
}

// strategy is one way of invoking the extraction capability. Strategies are
// tried in order until one yields a stream URL.
type strategy interface {
	Name() string
	StreamURL(ctx context.Context, url, selector string, profile authProfile) (string, error)
	Metadata(ctx context.Context, url, selector string, profile authProfile) (Metadata, error)
}

// Chain resolves stream URLs and metadata through an ordered list of
// strategies, iterating format selectors outer and authentication profiles
// inner.
type Chain struct {
	strategies []strategy
	timeout    time.Duration
	logger     *zap.Logger
}

// ChainOptions configures the fallback chain
type ChainOptions struct {
	// AttemptTimeout bounds each individual extraction attempt; zero selects
	// DefaultStreamTimeout
	AttemptTimeout time.Duration
	// BinaryPath overrides the yt-dlp binary used by the command-line
	// strategy; empty means "yt-dlp" from PATH
	BinaryPath string
	// PythonPath overrides the interpreter used by the script-hosted
	// strategy; empty means "python3" from PATH
	PythonPath string
}

// NewChain builds the production fallback chain: the in-process binding
// first, the command-line binary second, the interpreter-hosted invocation
// last.
func NewChain(provisioner *Provisioner, opts ChainOptions, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultStreamTimeout
	}

	binary := opts.BinaryPath
	if binary == "" {
		binary = "yt-dlp"
	}
	python := opts.PythonPath
	if python == "" {
		python = "python3"
	}

	return &Chain{
		strategies: []strategy{
			&bindingStrategy{provisioner: provisioner},
			&execStrategy{name: "yt-dlp-binary", argv: []string{binary}},
			&execStrategy{name: "python-module", argv: []string{python, "-m", "yt_dlp"}},
		},
		timeout: timeout,
		logger:  logger,
	}
}

// ResolveStream walks selector x profile x strategy combinations until one
// yields a non-empty stream URL. Exhaustion returns a *ResolveError carrying
// the classified failure reason.
func (c *Chain) ResolveStream(ctx context.Context, url, platform string) (StreamInfo, error) {
	var diagnostics []string

	for _, selector := range selectorsFor(platform) {
		for _, profile := range profilesFor(platform) {
			for _, s := range c.strategies {
				if ctx.Err() != nil {
					return StreamInfo{}, ctx.Err()
				}

				attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
				streamURL, err := s.StreamURL(attemptCtx, url, selector, profile)
				cancel()

				if err != nil {
					diagnostics = append(diagnostics, err.Error())
					c.logger.Debug("stream attempt failed",
						zap.String("strategy", s.Name()),
						zap.String("selector", selector),
						zap.String("profile", profile.Name),
						zap.Error(err),
					)
					continue
				}
				if streamURL = strings.TrimSpace(streamURL); streamURL == "" {
					diagnostics = append(diagnostics, "empty stream url")
					continue
				}

				c.logger.Info("stream resolved",
					zap.String("strategy", s.Name()),
					zap.String("selector", selector),
					zap.String("profile", profile.Name),
				)
				return StreamInfo{
					URL:      streamURL,
					Selector: selector,
					Profile:  profile.Name,
					Strategy: s.Name(),
				}, nil
			}
		}
	}

	return StreamInfo{}, &ResolveError{
		Reason:      ClassifyDiagnostic(strings.Join(diagnostics, "\n")),
		Diagnostics: diagnostics,
	}
}

// FetchMetadata runs a metadata-only pass with the winning selector and
// profile. Failure here never invalidates a successful stream resolution;
// callers treat errors as "no metadata".
func (c *Chain) FetchMetadata(ctx context.Context, url string, win StreamInfo) (Metadata, error) {
	profile := anonymousProfile
	for _, candidate := range cookieProfiles {
		if candidate.Name == win.Profile {
			profile = candidate
			break
		}
	}
	selector := win.Selector
	if selector == "" {
		selector = "bestaudio/best"
	}

	var lastErr error
	for _, s := range c.orderedFrom(win.Strategy) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		meta, err := s.Metadata(attemptCtx, url, selector, profile)
		cancel()

		if err != nil {
			lastErr = err
			continue
		}
		return meta, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no extraction strategy available")
	}
	return Metadata{}, fmt.Errorf("fetch metadata: %w", lastErr)
}

// orderedFrom returns the strategies with the named one moved to the front
func (c *Chain) orderedFrom(name string) []strategy {
	ordered := make([]strategy, 0, len(c.strategies))
	for _, s := range c.strategies {
		if s.Name() == name {
			ordered = append(ordered, s)
		}
	}
	for _, s := range c.strategies {
		if s.Name() != name {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

// execStrategy invokes the extractor as an external command: either the
// yt-dlp binary directly or the module hosted by a Python interpreter
type execStrategy struct {
	name string
	argv []string
}

func (s *execStrategy) Name() string { return s.name }

func (s *execStrategy) StreamURL(ctx context.Context, url, selector string, profile authProfile) (string, error) {
	args := append([]string{}, s.argv[1:]...)
	args = append(args, "--no-playlist", "--no-warnings", "-f", selector)
	if profile.Browser != "" {
		args = append(args, "--cookies-from-browser", profile.Browser)
	}
	args = append(args, "-g", url)

	stdout, err := s.run(ctx, args)
	if err != nil {
		return "", err
	}

	// -g may print one URL per requested format; the first is the audio pick.
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	return strings.TrimSpace(lines[0]), nil
}

func (s *execStrategy) Metadata(ctx context.Context, url, selector string, profile authProfile) (Metadata, error) {
	args := append([]string{}, s.argv[1:]...)
	args = append(args, "--no-playlist", "--no-warnings", "--skip-download", "-f", selector)
	if profile.Browser != "" {
		args = append(args, "--cookies-from-browser", profile.Browser)
	}
	args = append(args, "--dump-single-json", url)

	stdout, err := s.run(ctx, args)
	if err != nil {
		return Metadata{}, err
	}
	return parseMetadataJSON([]byte(stdout))
}

func (s *execStrategy) run(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, s.argv[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = err.Error()
		}
		return "", fmt.Errorf("%s: %s", s.name, diag)
	}
	return stdout.String(), nil
}

// parseMetadataJSON decodes the extractor's JSON document into Metadata,
// flattening the thumbnail list
func parseMetadataJSON(data []byte) (Metadata, error) {
	var doc struct {
		Title      string `json:"title"`
		Uploader   string `json:"uploader"`
		Channel    string `json:"channel"`
		Thumbnail  string `json:"thumbnail"`
		Ext        string `json:"ext"`
		Thumbnails []struct {
			URL string `json:"url"`
		} `json:"thumbnails"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata: %w", err)
	}

	meta := Metadata{
		Title:     strings.TrimSpace(doc.Title),
		Uploader:  strings.TrimSpace(doc.Uploader),
		Thumbnail: strings.TrimSpace(doc.Thumbnail),
		Ext:       strings.TrimSpace(doc.Ext),
	}
	if meta.Uploader == "" {
		meta.Uploader = strings.TrimSpace(doc.Channel)
	}
	for _, thumb := range doc.Thumbnails {
		if url := strings.TrimSpace(thumb.URL); url != "" {
			meta.Thumbnails = append(meta.Thumbnails, url)
		}
	}
	return meta, nil
}
