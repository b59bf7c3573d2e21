package model

// RepeatMode controls what happens when the current track ends
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// IsValid reports whether the value is one of the known repeat modes
func (m RepeatMode) IsValid() bool {
	return m == RepeatOff || m == RepeatAll || m == RepeatOne
}

// FilterMode selects which tracks the playlist view shows
type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterFavorites FilterMode = "favorites"
)

// IsValid reports whether the value is one of the known filter modes
func (m FilterMode) IsValid() bool {
	return m == FilterAll || m == FilterFavorites
}

// Player defaults applied on first run and when persisted values are unusable
const (
	DefaultVolume      = 0.85
	DefaultThemeAccent = "#25d061"
)

// Settings holds user preferences persisted alongside the library
type Settings struct {
	AutoPlayOnStartup bool   `json:"autoPlayOnStartup"`
	ThemeAccent       string `json:"themeAccent"`
	OutputDeviceID    string `json:"outputDeviceId"`
}

// PlayerState is the process's single source of truth for the library. It is
// reloaded and re-sanitized on every startup and persisted on every mutation.
type PlayerState struct {
	Playlists        []Playlist `json:"playlists"`
	ActivePlaylistID string     `json:"activePlaylistId"`
	CurrentIndex     int        `json:"currentIndex"`
	SelectedIndex    int        `json:"selectedIndex"`
	RepeatMode       RepeatMode `json:"repeatMode"`
	ShuffleEnabled   bool       `json:"shuffleEnabled"`
	Volume           float64    `json:"volume"`
	LikedTrackIDs    []string   `json:"likedTrackIds"`
	SearchQuery      string     `json:"searchQuery"`
	FilterMode       FilterMode `json:"filterMode"`
	Settings         Settings   `json:"settings"`
}

// DefaultState returns the hardcoded first-run state: one empty default
// playlist and nothing playing
func DefaultState() *PlayerState {
	return &PlayerState{
		Playlists: []Playlist{
			{ID: DefaultPlaylistID, Name: DefaultPlaylistName, Tracks: []Track{}},
		},
		ActivePlaylistID: DefaultPlaylistID,
		CurrentIndex:     -1,
		SelectedIndex:    -1,
		RepeatMode:       RepeatOff,
		ShuffleEnabled:   false,
		Volume:           DefaultVolume,
		LikedTrackIDs:    []string{},
		SearchQuery:      "",
		FilterMode:       FilterAll,
		Settings: Settings{
			AutoPlayOnStartup: false,
			ThemeAccent:       DefaultThemeAccent,
			OutputDeviceID:    "",
		},
	}
}

// ActivePlaylist returns the playlist referenced by ActivePlaylistID, falling
// back to the first playlist. Returns nil only when the library is empty,
// which sanitization makes impossible.
func (s *PlayerState) ActivePlaylist() *Playlist {
	for i := range s.Playlists {
		if s.Playlists[i].ID == s.ActivePlaylistID {
			return &s.Playlists[i]
		}
	}
	if len(s.Playlists) > 0 {
		return &s.Playlists[0]
	}
	return nil
}

// TrackExists reports whether any playlist contains a track with the given id
func (s *PlayerState) TrackExists(trackID string) bool {
	for i := range s.Playlists {
		if s.Playlists[i].ContainsTrack(trackID) {
			return true
		}
	}
	return false
}
