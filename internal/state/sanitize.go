package state

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/songdeck/songdeck/internal/cache"
	"github.com/songdeck/songdeck/internal/model"
)

// Sanitize converts arbitrary externally-supplied data (as decoded from JSON)
// into a valid PlayerState. It is total: any input, including nil, yields a
// usable state. Unusable fields fall back individually instead of failing the
// whole document.
func Sanitize(raw any) *model.PlayerState {
	obj := asObject(raw)
	st := &model.PlayerState{}

	if lists := asSlice(obj["playlists"]); len(lists) > 0 {
		for _, item := range lists {
			st.Playlists = append(st.Playlists, coercePlaylist(item))
		}
	} else {
		// Legacy documents carried a single top-level track list.
		legacy := model.Playlist{ID: model.DefaultPlaylistID, Name: model.DefaultPlaylistName}
		for _, item := range asSlice(obj["playlist"]) {
			legacy.Tracks = append(legacy.Tracks, coerceTrack(item))
		}
		st.Playlists = []model.Playlist{legacy}
	}

	st.ActivePlaylistID = asString(obj["activePlaylistId"])
	st.CurrentIndex = asIndex(obj["currentIndex"])
	st.SelectedIndex = asIndex(obj["selectedIndex"])
	st.RepeatMode = model.RepeatMode(asString(obj["repeatMode"]))
	st.ShuffleEnabled = asBool(obj["shuffleEnabled"])
	st.Volume = asFloat(obj["volume"])
	st.SearchQuery = asString(obj["searchQuery"])
	st.FilterMode = model.FilterMode(asString(obj["filterMode"]))

	for _, item := range asSlice(obj["likedTrackIds"]) {
		if id, ok := item.(string); ok {
			st.LikedTrackIDs = append(st.LikedTrackIDs, id)
		}
	}

	settings := asObject(obj["settings"])
	st.Settings = model.Settings{
		AutoPlayOnStartup: asBool(settings["autoPlayOnStartup"]),
		ThemeAccent:       asString(settings["themeAccent"]),
		OutputDeviceID:    asString(settings["outputDeviceId"]),
	}

	return Normalize(st)
}

// Normalize canonicalizes an already-typed PlayerState: enforces at least one
// playlist, unique playlist ids, a valid active playlist reference, in-bounds
// indices, clamped volume, known modes, and liked ids that exist in some
// playlist. Normalize is idempotent.
func Normalize(st *model.PlayerState) *model.PlayerState {
	if st == nil {
		st = &model.PlayerState{}
	}

	out := &model.PlayerState{}

	usedIDs := make(map[string]bool, len(st.Playlists))
	for i := range st.Playlists {
		fallbackID := model.DefaultPlaylistID
		fallbackName := model.DefaultPlaylistName
		if i > 0 {
			fallbackID = fmt.Sprintf("playlist-%d", i+1)
			fallbackName = fmt.Sprintf("Playlist %d", i+1)
		}

		pl := normalizePlaylist(st.Playlists[i], fallbackID, fallbackName)

		id := pl.ID
		for suffix := 2; usedIDs[id]; suffix++ {
			id = fmt.Sprintf("%s-%d", pl.ID, suffix)
		}
		usedIDs[id] = true
		pl.ID = id

		out.Playlists = append(out.Playlists, pl)
	}
	if len(out.Playlists) == 0 {
		out.Playlists = []model.Playlist{
			{ID: model.DefaultPlaylistID, Name: model.DefaultPlaylistName, Tracks: []model.Track{}},
		}
	}

	out.ActivePlaylistID = out.Playlists[0].ID
	for i := range out.Playlists {
		if out.Playlists[i].ID == st.ActivePlaylistID {
			out.ActivePlaylistID = st.ActivePlaylistID
			break
		}
	}

	active := out.ActivePlaylist()
	trackCount := len(active.Tracks)
	if trackCount > 0 {
		out.CurrentIndex = clampIndex(st.CurrentIndex, trackCount)
		if st.SelectedIndex >= 0 {
			out.SelectedIndex = clampIndex(st.SelectedIndex, trackCount)
		} else {
			out.SelectedIndex = -1
		}
	} else {
		out.CurrentIndex = -1
		out.SelectedIndex = -1
	}

	out.RepeatMode = st.RepeatMode
	if !out.RepeatMode.IsValid() {
		out.RepeatMode = model.RepeatOff
	}
	out.FilterMode = st.FilterMode
	if !out.FilterMode.IsValid() {
		out.FilterMode = model.FilterAll
	}

	out.ShuffleEnabled = st.ShuffleEnabled
	out.Volume = clampVolume(st.Volume)
	out.SearchQuery = st.SearchQuery

	out.LikedTrackIDs = []string{}
	seenLiked := make(map[string]bool, len(st.LikedTrackIDs))
	for _, id := range st.LikedTrackIDs {
		if strings.TrimSpace(id) == "" || seenLiked[id] {
			continue
		}
		if out.TrackExists(id) {
			seenLiked[id] = true
			out.LikedTrackIDs = append(out.LikedTrackIDs, id)
		}
	}

	out.Settings = model.Settings{
		AutoPlayOnStartup: st.Settings.AutoPlayOnStartup,
		ThemeAccent:       NormalizeThemeAccent(st.Settings.ThemeAccent, model.DefaultThemeAccent),
		OutputDeviceID:    st.Settings.OutputDeviceID,
	}

	return out
}

func normalizePlaylist(pl model.Playlist, fallbackID, fallbackName string) model.Playlist {
	id := truncate(strings.TrimSpace(pl.ID), model.MaxNameLength)
	if id == "" {
		id = fallbackID
	}

	name := truncate(strings.TrimSpace(pl.Name), model.MaxNameLength)
	if name == "" {
		name = fallbackName
	}

	tracks := make([]model.Track, 0, len(pl.Tracks))
	for i := range pl.Tracks {
		if track, ok := NormalizeTrack(pl.Tracks[i]); ok {
			tracks = append(tracks, track)
		}
	}

	return model.Playlist{
		ID:           id,
		Name:         name,
		Tracks:       tracks,
		CoverDataURL: NormalizeCoverDataURL(pl.CoverDataURL),
	}
}

// NormalizeTrack validates a single track and returns its canonical form. The
// second return value is false when the track has no usable path or URL, or an
// unrecognized audio extension.
func NormalizeTrack(t model.Track) (model.Track, bool) {
	sourceType := model.SourceTypeFile
	if strings.EqualFold(strings.TrimSpace(string(t.SourceType)), string(model.SourceTypeLink)) {
		sourceType = model.SourceTypeLink
	}

	out := model.Track{
		SourceType: sourceType,
		Title:      strings.TrimSpace(t.Title),
		Artist:     truncate(strings.TrimSpace(t.Artist), model.MaxArtistLength),
		Album:      truncate(strings.TrimSpace(t.Album), model.MaxAlbumLength),
	}

	if sourceType == model.SourceTypeLink {
		sourceURL := model.NormalizeAudioURL(t.SourceURL)
		if sourceURL == "" {
			sourceURL = model.NormalizeAudioURL(t.Path)
		}
		if sourceURL == "" {
			return model.Track{}, false
		}

		cached := strings.TrimSpace(t.CachedFilePath)
		if cached == "" || !model.IsAudioFile(cached) {
			return model.Track{}, false
		}

		out.SourceURL = sourceURL
		out.Path = sourceURL
		out.CachedFilePath = cached

		out.SourceHost = strings.TrimSpace(t.SourceHost)
		if out.SourceHost == "" {
			out.SourceHost = hostFromURL(sourceURL)
		}

		out.SourcePlatform = strings.ToLower(strings.TrimSpace(t.SourcePlatform))
		if out.SourcePlatform == "" {
			out.SourcePlatform = "link"
		}

		out.ID = t.ID
		if out.ID == "" {
			out.ID = "link:" + cache.Key(sourceURL)
		}
		if out.Title == "" {
			out.Title = model.TitleFromURL(sourceURL)
		}
	} else {
		if t.Path == "" || !model.IsAudioFile(t.Path) {
			return model.Track{}, false
		}

		out.Path = t.Path
		out.SourcePlatform = "file"

		out.ID = t.ID
		if out.ID == "" {
			out.ID = t.Path
		}
		if out.Title == "" {
			out.Title = model.TitleFromPath(t.Path)
		}
	}

	out.FileURL = t.FileURL
	if out.FileURL == "" {
		out.FileURL = model.FileURLFromPath(out.PlayablePath())
	}
	out.CoverDataURL = NormalizeCoverDataURL(t.CoverDataURL)

	return out, true
}

var (
	hex6 = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	hex3 = regexp.MustCompile(`^#[0-9a-fA-F]{3}$`)
)

// NormalizeThemeAccent validates a theme accent color, expanding 3-digit hex
// to 6 digits and lowercasing; unusable input yields the fallback
func NormalizeThemeAccent(value, fallback string) string {
	raw := strings.TrimSpace(value)
	if hex6.MatchString(raw) {
		return strings.ToLower(raw)
	}
	if hex3.MatchString(raw) {
		r, g, b := raw[1], raw[2], raw[3]
		return strings.ToLower(fmt.Sprintf("#%c%c%c%c%c%c", r, r, g, g, b, b))
	}
	return fallback
}

// NormalizeCoverDataURL keeps only embedded image data URIs
func NormalizeCoverDataURL(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "data:image/") {
		return ""
	}
	return trimmed
}

func hostFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "link"
	}
	return strings.ToLower(parsed.Hostname())
}

func clampIndex(v, length int) int {
	if v < 0 {
		return 0
	}
	if v > length-1 {
		return length - 1
	}
	return v
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Coercion helpers over decoded JSON values. Each returns a zero value for
// anything of the wrong shape.

func asObject(v any) map[string]any {
	obj, _ := v.(map[string]any)
	return obj
}

func asSlice(v any) []any {
	slice, _ := v.([]any)
	return slice
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asFloat(v any) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return 0
}

func asIndex(v any) int {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return -1
	}
	return int(f)
}

func coercePlaylist(v any) model.Playlist {
	obj := asObject(v)
	pl := model.Playlist{
		ID:           asString(obj["id"]),
		Name:         asString(obj["name"]),
		CoverDataURL: asString(obj["coverDataUrl"]),
	}
	for _, item := range asSlice(obj["tracks"]) {
		pl.Tracks = append(pl.Tracks, coerceTrack(item))
	}
	return pl
}

func coerceTrack(v any) model.Track {
	obj := asObject(v)
	return model.Track{
		ID:             asString(obj["id"]),
		Path:           asString(obj["path"]),
		Title:          asString(obj["title"]),
		FileURL:        asString(obj["fileUrl"]),
		SourceType:     model.SourceType(asString(obj["sourceType"])),
		SourceURL:      asString(obj["sourceUrl"]),
		SourceHost:     asString(obj["sourceHost"]),
		SourcePlatform: asString(obj["sourcePlatform"]),
		CachedFilePath: asString(obj["cachedFilePath"]),
		CoverDataURL:   asString(obj["coverDataUrl"]),
		Artist:         asString(obj["artist"]),
		Album:          asString(obj["album"]),
	}
}
