package linkres

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultProvisionTimeout bounds the on-demand extractor binary install
const DefaultProvisionTimeout = 90 * time.Second

// Provisioner installs the extractor binary on demand. Concurrent callers
// coalesce into a single in-flight install: the first caller starts it and
// every caller awaits the same result.
type Provisioner struct {
	timeout   time.Duration
	logger    *zap.Logger
	group     singleflight.Group
	installed atomic.Bool
}

// NewProvisioner creates a provisioner with the given install deadline. A
// zero timeout selects DefaultProvisionTimeout.
func NewProvisioner(timeout time.Duration, logger *zap.Logger) *Provisioner {
	if timeout <= 0 {
		timeout = DefaultProvisionTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{timeout: timeout, logger: logger}
}

// Ensure makes the extractor binary available, downloading it if missing.
// Safe for concurrent use.
func (p *Provisioner) Ensure(ctx context.Context) error {
	if p.installed.Load() {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	// The install runs on its own deadline, detached from the caller's
	// context: it is a shared operation and a canceled waiter must not abort
	// it for everyone else.
	_, err, shared := p.group.Do("yt-dlp-install", func() (any, error) {
		installCtx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		p.logger.Info("provisioning extractor binary")
		resolved, err := ytdlp.Install(installCtx, &ytdlp.InstallOptions{})
		if err != nil {
			return nil, fmt.Errorf("install yt-dlp: %w", err)
		}
		p.logger.Info("extractor binary ready", zap.String("executable", resolved.Executable))
		return nil, nil
	})
	if err != nil {
		return err
	}
	if shared {
		p.logger.Debug("joined in-flight provisioning")
	}

	p.installed.Store(true)
	return nil
}

// bindingStrategy invokes the extractor through the in-process library
// binding, provisioning its backing binary on demand
type bindingStrategy struct {
	provisioner *Provisioner
}

func (s *bindingStrategy) Name() string { return "library-binding" }

func (s *bindingStrategy) StreamURL(ctx context.Context, url, selector string, profile authProfile) (string, error) {
	if err := s.provisioner.Ensure(ctx); err != nil {
		return "", fmt.Errorf("library-binding: %w", err)
	}

	dl := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		SkipDownload().
		Format(selector).
		GetURL()
	if profile.Browser != "" {
		dl = dl.CookiesFromBrowser(profile.Browser)
	}

	result, err := dl.Run(ctx, url)
	if err != nil {
		diag := err.Error()
		if result != nil && strings.TrimSpace(result.Stderr) != "" {
			diag = strings.TrimSpace(result.Stderr)
		}
		return "", fmt.Errorf("library-binding: %s", diag)
	}

	lines := strings.Split(strings.TrimSpace(result.Stdout), "\n")
	return strings.TrimSpace(lines[0]), nil
}

func (s *bindingStrategy) Metadata(ctx context.Context, url, selector string, profile authProfile) (Metadata, error) {
	if err := s.provisioner.Ensure(ctx); err != nil {
		return Metadata{}, fmt.Errorf("library-binding: %w", err)
	}

	dl := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		SkipDownload().
		Format(selector).
		DumpSingleJSON()
	if profile.Browser != "" {
		dl = dl.CookiesFromBrowser(profile.Browser)
	}

	result, err := dl.Run(ctx, url)
	if err != nil {
		diag := err.Error()
		if result != nil && strings.TrimSpace(result.Stderr) != "" {
			diag = strings.TrimSpace(result.Stderr)
		}
		return Metadata{}, fmt.Errorf("library-binding: %s", diag)
	}
	return parseMetadataJSON([]byte(result.Stdout))
}
