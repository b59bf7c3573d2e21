package tagreader

import (
	"encoding/base64"
	"os"
	"sync"

	"github.com/dhowden/tag"
	"go.uber.org/zap"

	"github.com/songdeck/songdeck/internal/model"
)

// Details is what embedded tags contribute to a local track's presentation
type Details struct {
	Title        string
	Artist       string
	Album        string
	CoverDataURL string
}

// Reader extracts embedded tag metadata from local audio files, memoizing
// results per path for the lifetime of the process
type Reader struct {
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]Details
}

// NewReader creates a tag reader
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		logger: logger,
		cache:  make(map[string]Details),
	}
}

// Read returns the tag details for path. Files without readable tags still
// yield usable details: the title falls back to the file name.
func (r *Reader) Read(path string) Details {
	r.mu.Lock()
	if cached, ok := r.cache[path]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	details := r.read(path)

	r.mu.Lock()
	r.cache[path] = details
	r.mu.Unlock()

	return details
}

func (r *Reader) read(path string) Details {
	details := Details{Title: model.TitleFromPath(path)}

	f, err := os.Open(path)
	if err != nil {
		r.logger.Debug("opening audio file for tags", zap.String("path", path), zap.Error(err))
		return details
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		r.logger.Debug("reading tags", zap.String("path", path), zap.Error(err))
		return details
	}

	if title := m.Title(); title != "" {
		details.Title = title
	}
	details.Artist = m.Artist()
	details.Album = m.Album()

	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 && pic.MIMEType != "" {
		details.CoverDataURL = "data:" + pic.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(pic.Data)
	}

	return details
}

// Apply fills a track's empty presentation fields from its embedded tags.
// Tags never overwrite values the track already carries.
func (r *Reader) Apply(t *model.Track) {
	if t == nil || t.IsLink() {
		return
	}

	details := r.Read(t.Path)
	if t.Title == "" {
		t.Title = details.Title
	}
	if t.Artist == "" {
		t.Artist = details.Artist
	}
	if t.Album == "" {
		t.Album = details.Album
	}
	if t.CoverDataURL == "" {
		t.CoverDataURL = details.CoverDataURL
	}
}
