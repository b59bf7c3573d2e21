package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/songdeck/songdeck/internal/model"
)

// Store persists the player state as a JSON document at a fixed path
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore creates a store writing to path
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the state file location
func (s *Store) Path() string {
	return s.path
}

// Load reads, sanitizes, and existence-filters the persisted state. Any read
// or decode failure yields the default state: startup must always produce a
// usable library.
func (s *Store) Load() *model.PlayerState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("reading state file", zap.String("path", s.path), zap.Error(err))
		}
		return model.DefaultState()
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("state file is not valid JSON, starting fresh",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return model.DefaultState()
	}

	st := Sanitize(raw)
	return s.filterMissing(st)
}

// filterMissing drops tracks whose media no longer exists on disk, then
// re-normalizes so indices and liked ids stay consistent with the smaller
// library. Playlists themselves survive even when emptied.
func (s *Store) filterMissing(st *model.PlayerState) *model.PlayerState {
	dropped := 0
	for i := range st.Playlists {
		kept := st.Playlists[i].Tracks[:0]
		for _, track := range st.Playlists[i].Tracks {
			if isRegularFile(track.PlayablePath()) {
				kept = append(kept, track)
				continue
			}
			dropped++
		}
		st.Playlists[i].Tracks = kept
	}

	if dropped > 0 {
		s.logger.Info("dropped tracks with missing media", zap.Int("count", dropped))
	}
	return Normalize(st)
}

func isRegularFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Save normalizes and writes the state atomically: a temp file in the same
// directory, then a rename over the destination
func (s *Store) Save(st *model.PlayerState) error {
	st = Normalize(st)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close state: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state: %w", err)
	}

	s.logger.Debug("state saved", zap.String("path", s.path), zap.Int("bytes", len(data)))
	return nil
}
