package engine

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/songdeck/songdeck/internal/model"
	"github.com/songdeck/songdeck/internal/state"
	"github.com/songdeck/songdeck/internal/tagreader"
)

// LinkPreparer turns a raw URL into a playable, cache-backed track
type LinkPreparer interface {
	Prepare(ctx context.Context, rawURL string) (*model.Track, error)
}

// Engine owns the in-memory player state and coordinates every mutation:
// sanitize, apply, re-normalize, schedule a debounced save
type Engine struct {
	store  *state.Store
	saver  *state.Saver
	links  LinkPreparer
	tags   *tagreader.Reader
	logger *zap.Logger

	mu sync.Mutex
	st *model.PlayerState
}

// New creates an engine over the given collaborators. Pass a nil links
// preparer to disable link tracks (PrepareLinkTrack will fail).
func New(store *state.Store, saver *state.Saver, links LinkPreparer, tags *tagreader.Reader, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		saver:  saver,
		links:  links,
		tags:   tags,
		logger: logger,
		st:     model.DefaultState(),
	}
}

// Load replaces the in-memory state with the persisted one
func (e *Engine) Load() {
	st := e.store.Load()

	e.mu.Lock()
	e.st = st
	e.mu.Unlock()

	e.logger.Info("library loaded",
		zap.Int("playlists", len(st.Playlists)),
		zap.String("active", st.ActivePlaylistID),
	)
}

// Close flushes any pending save synchronously
func (e *Engine) Close() error {
	return e.saver.Flush()
}

// State returns a normalized copy of the current state. Callers may mutate
// the copy freely.
func (e *Engine) State() *model.PlayerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return state.Normalize(e.st)
}

// mutate applies fn under the lock, re-normalizes, and schedules a save
func (e *Engine) mutate(fn func(st *model.PlayerState) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(e.st); err != nil {
		return err
	}
	e.st = state.Normalize(e.st)

	// The saver's timer goroutine reads its snapshot outside this lock, so it
	// gets a private copy the next mutation cannot touch.
	e.saver.Schedule(state.Normalize(e.st))
	return nil
}

// ImportFiles adds the audio files among paths to the active playlist,
// skipping non-audio paths and tracks already present. Returns the number of
// tracks added.
func (e *Engine) ImportFiles(paths []string) int {
	added := 0
	_ = e.mutate(func(st *model.PlayerState) error {
		active := st.ActivePlaylist()
		for _, path := range paths {
			if !model.IsAudioFile(path) {
				continue
			}

			track := model.Track{
				ID:         path,
				Path:       path,
				SourceType: model.SourceTypeFile,
				FileURL:    model.FileURLFromPath(path),
			}
			if e.tags != nil {
				e.tags.Apply(&track)
			}

			normalized, ok := state.NormalizeTrack(track)
			if !ok || active.ContainsTrack(normalized.ID) {
				continue
			}
			active.Tracks = append(active.Tracks, normalized)
			added++
		}
		return nil
	})

	if added > 0 {
		e.logger.Info("imported files", zap.Int("added", added))
	}
	return added
}

// ImportFolder walks dir recursively and imports every audio file found, in
// sorted path order
func (e *Engine) ImportFolder(dir string) (int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && model.IsAudioFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan folder: %w", err)
	}

	sort.Strings(paths)
	return e.ImportFiles(paths), nil
}

// AddTrack appends a track to the active playlist unless a track with the
// same id is already there
func (e *Engine) AddTrack(track model.Track) error {
	return e.mutate(func(st *model.PlayerState) error {
		normalized, ok := state.NormalizeTrack(track)
		if !ok {
			return fmt.Errorf("track has no usable source")
		}

		active := st.ActivePlaylist()
		if active.ContainsTrack(normalized.ID) {
			return nil
		}
		active.Tracks = append(active.Tracks, normalized)
		return nil
	})
}

// RemoveTrack deletes the track with the given id from the active playlist
func (e *Engine) RemoveTrack(trackID string) error {
	return e.mutate(func(st *model.PlayerState) error {
		active := st.ActivePlaylist()
		idx := active.IndexOfTrack(trackID)
		if idx < 0 {
			return fmt.Errorf("track %q not in active playlist", trackID)
		}
		active.Tracks = append(active.Tracks[:idx], active.Tracks[idx+1:]...)
		return nil
	})
}

// ClearActivePlaylist removes every track from the active playlist
func (e *Engine) ClearActivePlaylist() {
	_ = e.mutate(func(st *model.PlayerState) error {
		st.ActivePlaylist().Tracks = []model.Track{}
		return nil
	})
}

// CreatePlaylist adds a new empty playlist and makes it active. Returns the
// new playlist's id.
func (e *Engine) CreatePlaylist(name string) string {
	id := uuid.NewString()
	_ = e.mutate(func(st *model.PlayerState) error {
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Playlist %d", len(st.Playlists)+1)
		}
		st.Playlists = append(st.Playlists, model.Playlist{
			ID:     id,
			Name:   name,
			Tracks: []model.Track{},
		})
		st.ActivePlaylistID = id
		return nil
	})
	return id
}

// DeletePlaylist removes the playlist with the given id. Deleting the last
// remaining playlist is forbidden.
func (e *Engine) DeletePlaylist(playlistID string) error {
	return e.mutate(func(st *model.PlayerState) error {
		if len(st.Playlists) <= 1 {
			return fmt.Errorf("cannot delete the last playlist")
		}

		for i := range st.Playlists {
			if st.Playlists[i].ID == playlistID {
				st.Playlists = append(st.Playlists[:i], st.Playlists[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("playlist %q not found", playlistID)
	})
}

// SetActivePlaylist switches playback to the playlist with the given id
func (e *Engine) SetActivePlaylist(playlistID string) error {
	return e.mutate(func(st *model.PlayerState) error {
		for i := range st.Playlists {
			if st.Playlists[i].ID == playlistID {
				st.ActivePlaylistID = playlistID
				st.CurrentIndex = -1
				st.SelectedIndex = -1
				return nil
			}
		}
		return fmt.Errorf("playlist %q not found", playlistID)
	})
}

// ToggleLiked flips the liked flag for the track with the given id. Liking a
// track that exists in no playlist is a no-op.
func (e *Engine) ToggleLiked(trackID string) {
	_ = e.mutate(func(st *model.PlayerState) error {
		for i, id := range st.LikedTrackIDs {
			if id == trackID {
				st.LikedTrackIDs = append(st.LikedTrackIDs[:i], st.LikedTrackIDs[i+1:]...)
				return nil
			}
		}
		st.LikedTrackIDs = append(st.LikedTrackIDs, trackID)
		return nil
	})
}

// SetCurrentIndex moves playback to the given position in the active playlist
func (e *Engine) SetCurrentIndex(index int) {
	_ = e.mutate(func(st *model.PlayerState) error {
		st.CurrentIndex = index
		return nil
	})
}

// SetVolume sets the playback volume. Out-of-range values clamp.
func (e *Engine) SetVolume(volume float64) {
	_ = e.mutate(func(st *model.PlayerState) error {
		st.Volume = volume
		return nil
	})
}

// SetRepeatMode sets the repeat mode. Unknown values fall back to off.
func (e *Engine) SetRepeatMode(mode model.RepeatMode) {
	_ = e.mutate(func(st *model.PlayerState) error {
		st.RepeatMode = mode
		return nil
	})
}

// SetShuffle enables or disables shuffle
func (e *Engine) SetShuffle(enabled bool) {
	_ = e.mutate(func(st *model.PlayerState) error {
		st.ShuffleEnabled = enabled
		return nil
	})
}

// SetFilterMode sets the track filter. Unknown values fall back to all.
func (e *Engine) SetFilterMode(mode model.FilterMode) {
	_ = e.mutate(func(st *model.PlayerState) error {
		st.FilterMode = mode
		return nil
	})
}

// SetSearchQuery stores the library search query
func (e *Engine) SetSearchQuery(query string) {
	_ = e.mutate(func(st *model.PlayerState) error {
		st.SearchQuery = query
		return nil
	})
}

// UpdateSettings replaces the user settings. The theme accent is validated;
// unusable values keep the current accent.
func (e *Engine) UpdateSettings(settings model.Settings) {
	_ = e.mutate(func(st *model.PlayerState) error {
		settings.ThemeAccent = state.NormalizeThemeAccent(settings.ThemeAccent, st.Settings.ThemeAccent)
		st.Settings = settings
		return nil
	})
}

// PrepareLinkTrack resolves and caches rawURL, adds the resulting track to
// the active playlist, and returns it. An already-cached URL costs no network
// traffic.
func (e *Engine) PrepareLinkTrack(ctx context.Context, rawURL string) (*model.Track, error) {
	if e.links == nil {
		return nil, fmt.Errorf("link resolution is not configured")
	}

	track, err := e.links.Prepare(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if err := e.AddTrack(*track); err != nil {
		return nil, err
	}
	return track, nil
}
