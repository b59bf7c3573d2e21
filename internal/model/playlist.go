package model

// Default playlist identity used on first run and as a sanitization fallback
const (
	DefaultPlaylistID   = "default"
	DefaultPlaylistName = "Main Playlist"
)

// Playlist is an ordered, named collection of tracks. Track order is playback
// order.
type Playlist struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Tracks       []Track `json:"tracks"`
	CoverDataURL string  `json:"coverDataUrl,omitempty"`
}

// ContainsTrack reports whether a track with the given id is in the playlist
func (p *Playlist) ContainsTrack(trackID string) bool {
	for i := range p.Tracks {
		if p.Tracks[i].ID == trackID {
			return true
		}
	}
	return false
}

// IndexOfTrack returns the position of the track with the given id, or -1
func (p *Playlist) IndexOfTrack(trackID string) int {
	for i := range p.Tracks {
		if p.Tracks[i].ID == trackID {
			return i
		}
	}
	return -1
}
