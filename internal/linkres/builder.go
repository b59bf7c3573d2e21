package linkres

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/songdeck/songdeck/internal/cache"
	"github.com/songdeck/songdeck/internal/model"
)

// StreamResolver resolves a source URL into a fetchable stream and metadata
type StreamResolver interface {
	ResolveStream(ctx context.Context, url, platform string) (StreamInfo, error)
	FetchMetadata(ctx context.Context, url string, win StreamInfo) (Metadata, error)
}

// StreamDownloader materializes a stream into the cache directory
type StreamDownloader interface {
	Download(ctx context.Context, streamURL, sourceURL, destBase, platform string) (string, error)
}

// CoverFetcher turns a thumbnail URL into an embeddable data URI
type CoverFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// resolvedMeta is what the builder remembers about a URL between calls so a
// cache hit never goes back to the network
type resolvedMeta struct {
	meta  Metadata
	cover string
	title string
}

// Builder turns a raw URL into a playable, cache-backed link track. A
// Builder call is the unit of idempotence: once the audio is cached, a
// repeat call for the same URL performs no network I/O at all.
type Builder struct {
	resolver   StreamResolver
	downloader StreamDownloader
	covers     CoverFetcher
	cacheDir   string
	logger     *zap.Logger

	mu   sync.Mutex
	meta map[string]resolvedMeta // keyed by cache key, process-scoped
}

// NewBuilder creates a link track builder writing into cacheDir
func NewBuilder(resolver StreamResolver, downloader StreamDownloader, covers CoverFetcher, cacheDir string, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		resolver:   resolver,
		downloader: downloader,
		covers:     covers,
		cacheDir:   cacheDir,
		logger:     logger,
		meta:       make(map[string]resolvedMeta),
	}
}

// Prepare classifies the URL, resolves and caches its audio, and returns the
// finished track. Metadata and cover art are best-effort and never fail the
// call; a missing stream does.
func (b *Builder) Prepare(ctx context.Context, rawURL string) (*model.Track, error) {
	cls, err := Classify(rawURL)
	if err != nil {
		return nil, err
	}

	key := cache.Key(cls.URL)
	if cachedPath, ok := cache.Find(b.cacheDir, key); ok {
		b.logger.Debug("cache hit", zap.String("url", cls.URL), zap.String("path", cachedPath))
		return b.buildTrack(cls, key, cachedPath), nil
	}

	info := StreamInfo{URL: cls.URL}
	if !cls.DirectAudio {
		info, err = b.resolver.ResolveStream(ctx, cls.URL, cls.Platform)
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(b.cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	candidates := []string{info.URL}
	if cls.DirectAudio && cls.URL != info.URL {
		candidates = append(candidates, cls.URL)
	}

	destBase := cache.BasePath(b.cacheDir, key)
	var cachedPath string
	var downloadErr error
	for _, candidate := range candidates {
		cachedPath, downloadErr = b.downloader.Download(ctx, candidate, cls.URL, destBase, cls.Platform)
		if downloadErr == nil {
			break
		}
		b.logger.Warn("download candidate failed",
			zap.String("candidate", candidate),
			zap.Error(downloadErr),
		)
	}
	if downloadErr != nil {
		return nil, fmt.Errorf("cache audio: %w", downloadErr)
	}

	b.rememberMeta(ctx, cls, key, info)

	return b.buildTrack(cls, key, cachedPath), nil
}

// rememberMeta runs the best-effort metadata and cover passes and stores the
// result in the process-scoped cache. Failures degrade to URL-derived
// naming.
func (b *Builder) rememberMeta(ctx context.Context, cls Classification, key string, info StreamInfo) {
	entry := resolvedMeta{title: info.Title}

	if !cls.DirectAudio {
		meta, err := b.resolver.FetchMetadata(ctx, cls.URL, info)
		if err != nil {
			b.logger.Debug("metadata fetch failed", zap.String("url", cls.URL), zap.Error(err))
		} else {
			entry.meta = meta
		}
	}

	if thumb := entry.meta.BestThumbnail(); thumb != "" && b.covers != nil {
		cover, err := b.covers.Fetch(ctx, thumb)
		if err != nil {
			b.logger.Debug("thumbnail fetch failed", zap.String("url", thumb), zap.Error(err))
		} else {
			entry.cover = cover
		}
	}

	b.mu.Lock()
	b.meta[key] = entry
	b.mu.Unlock()
}

func (b *Builder) lookupMeta(key string) resolvedMeta {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.meta[key]
}

func (b *Builder) buildTrack(cls Classification, key, cachedPath string) *model.Track {
	remembered := b.lookupMeta(key)

	title := remembered.meta.Title
	if title == "" {
		title = remembered.title
	}
	if title == "" {
		title = model.TitleFromURL(cls.URL)
	}

	artist := remembered.meta.Uploader
	if artist == "" {
		artist = cls.Host
	}

	return &model.Track{
		ID:             "link:" + key,
		Path:           cls.URL,
		Title:          title,
		FileURL:        model.FileURLFromPath(cachedPath),
		SourceType:     model.SourceTypeLink,
		SourceURL:      cls.URL,
		SourceHost:     cls.Host,
		SourcePlatform: cls.Platform,
		CachedFilePath: cachedPath,
		CoverDataURL:   remembered.cover,
		Artist:         artist,
	}
}
