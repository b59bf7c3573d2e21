package linkres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/songdeck/songdeck/internal/cache"
	"github.com/songdeck/songdeck/internal/model"
)

type fakeResolver struct {
	info     StreamInfo
	meta     Metadata
	err      error
	metaErr  error
	resolves int
}

func (r *fakeResolver) ResolveStream(_ context.Context, _, _ string) (StreamInfo, error) {
	r.resolves++
	return r.info, r.err
}

func (r *fakeResolver) FetchMetadata(_ context.Context, _ string, _ StreamInfo) (Metadata, error) {
	return r.meta, r.metaErr
}

type fakeDownloader struct {
	ext       string
	err       error
	downloads int
}

func (d *fakeDownloader) Download(_ context.Context, _, _, destBase, _ string) (string, error) {
	d.downloads++
	if d.err != nil {
		return "", d.err
	}
	path := destBase + d.ext
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeCovers struct {
	uri     string
	err     error
	fetches int
}

func (c *fakeCovers) Fetch(_ context.Context, _ string) (string, error) {
	c.fetches++
	return c.uri, c.err
}

func TestBuilderPrepare(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{
		info: StreamInfo{URL: "https://cdn.example.com/stream", Selector: "bestaudio/best", Profile: "anonymous", Strategy: "binding"},
		meta: Metadata{Title: "Resolved Title", Uploader: "Resolved Artist", Thumbnail: "https://img/cover.jpg"},
	}
	downloader := &fakeDownloader{ext: ".m4a"}
	covers := &fakeCovers{uri: "data:image/jpeg;base64,Zm9v"}

	builder := NewBuilder(resolver, downloader, covers, dir, nil)
	track, err := builder.Prepare(context.Background(), "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}

	key := cache.Key("https://www.youtube.com/watch?v=abc")
	if track.ID != "link:"+key {
		t.Errorf("track id = %q, expected link:%s", track.ID, key)
	}
	if track.Title != "Resolved Title" {
		t.Errorf("title = %q, expected resolved metadata title", track.Title)
	}
	if track.Artist != "Resolved Artist" {
		t.Errorf("artist = %q, expected resolved uploader", track.Artist)
	}
	if track.SourcePlatform != PlatformYouTube {
		t.Errorf("platform = %q, expected %q", track.SourcePlatform, PlatformYouTube)
	}
	if track.CoverDataURL != covers.uri {
		t.Errorf("cover = %q, expected fetched data URI", track.CoverDataURL)
	}
	if filepath.Ext(track.CachedFilePath) != ".m4a" {
		t.Errorf("cached path = %q, expected .m4a extension", track.CachedFilePath)
	}
	if track.SourceType != model.SourceTypeLink {
		t.Errorf("source type = %q, expected %q", track.SourceType, model.SourceTypeLink)
	}
}

func TestBuilderPrepareSecondCallHitsCache(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{
		info: StreamInfo{URL: "https://cdn.example.com/stream"},
		meta: Metadata{Title: "Cached Title"},
	}
	downloader := &fakeDownloader{ext: ".m4a"}

	builder := NewBuilder(resolver, downloader, nil, dir, nil)
	url := "https://www.youtube.com/watch?v=abc"

	first, err := builder.Prepare(context.Background(), url)
	if err != nil {
		t.Fatalf("first Prepare() error: %v", err)
	}

	second, err := builder.Prepare(context.Background(), url)
	if err != nil {
		t.Fatalf("second Prepare() error: %v", err)
	}

	if resolver.resolves != 1 {
		t.Errorf("resolver invoked %d times, expected 1", resolver.resolves)
	}
	if downloader.downloads != 1 {
		t.Errorf("downloader invoked %d times, expected 1", downloader.downloads)
	}
	if second.ID != first.ID || second.CachedFilePath != first.CachedFilePath {
		t.Errorf("second track differs from first: %+v vs %+v", second, first)
	}
	if second.Title != "Cached Title" {
		t.Errorf("second title = %q, expected remembered metadata", second.Title)
	}
}

func TestBuilderPrepareDirectAudioSkipsResolver(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{}
	downloader := &fakeDownloader{ext: ".mp3"}

	builder := NewBuilder(resolver, downloader, nil, dir, nil)
	track, err := builder.Prepare(context.Background(), "https://example.com/song.mp3")
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}

	if resolver.resolves != 0 {
		t.Errorf("resolver invoked %d times for direct audio, expected 0", resolver.resolves)
	}
	if track.Title != "song" {
		t.Errorf("title = %q, expected URL-derived %q", track.Title, "song")
	}
	if track.Artist != "example.com" {
		t.Errorf("artist = %q, expected host fallback", track.Artist)
	}
}

func TestBuilderPrepareDownloadFailure(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{info: StreamInfo{URL: "https://cdn.example.com/stream"}}
	downloader := &fakeDownloader{err: errors.New("connection reset")}

	builder := NewBuilder(resolver, downloader, nil, dir, nil)
	if _, err := builder.Prepare(context.Background(), "https://www.youtube.com/watch?v=abc"); err == nil {
		t.Fatal("Prepare() succeeded despite download failure")
	}

	if _, ok := cache.Find(dir, cache.Key("https://www.youtube.com/watch?v=abc")); ok {
		t.Error("cache entry exists after failed download")
	}
}

func TestBuilderPrepareMetadataFailureNonFatal(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{
		info:    StreamInfo{URL: "https://cdn.example.com/stream"},
		metaErr: errors.New("metadata pass timed out"),
	}
	downloader := &fakeDownloader{ext: ".m4a"}
	covers := &fakeCovers{}

	builder := NewBuilder(resolver, downloader, covers, dir, nil)
	track, err := builder.Prepare(context.Background(), "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}

	if track.Title != "watch" {
		t.Errorf("title = %q, expected URL-derived fallback %q", track.Title, "watch")
	}
	if covers.fetches != 0 {
		t.Errorf("cover fetched %d times without a thumbnail, expected 0", covers.fetches)
	}
}

func TestBuilderPrepareResolveFailure(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{err: &ResolveError{Reason: ReasonUnavailable}}
	downloader := &fakeDownloader{ext: ".m4a"}

	builder := NewBuilder(resolver, downloader, nil, dir, nil)
	_, err := builder.Prepare(context.Background(), "https://www.youtube.com/watch?v=abc")

	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("error type = %T, expected *ResolveError", err)
	}
	if downloader.downloads != 0 {
		t.Errorf("downloader invoked %d times after failed resolution, expected 0", downloader.downloads)
	}
}
